package endpoint

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

func newGenericProvider(namespace string) *NamespaceProvider {
	return NewNamespaceProvider(namespace, GenericFactory(GenericConfig{}))
}

func TestNamespaceProviderProvide(t *testing.T) {
	const namespace = "ms/mock/"
	provider := newGenericProvider(namespace)

	endpoint1 := provider.Provide()
	endpoint2 := provider.Provide()
	endpoint3 := provider.Provide()

	assert.Equal(t, namespace+"1", endpoint1.ID())
	assert.False(t, endpoint1.IsActive())
	assert.Equal(t, namespace+"2", endpoint2.ID())
	assert.False(t, endpoint2.IsActive())
	assert.Equal(t, namespace+"3", endpoint3.ID())
	assert.False(t, endpoint3.IsActive())
}

func TestNamespaceProviderAddsSlash(t *testing.T) {
	provider := newGenericProvider("ms/ivr")
	assert.Equal(t, "ms/ivr/", provider.Namespace())
	assert.Equal(t, "ms/ivr/1", provider.Provide().ID())
}

func TestRegistryResolveLiteral(t *testing.T) {
	r := NewRegistry(nil)
	ep := NewGenericEndpoint("ms/ivr/1", GenericConfig{})
	require.NoError(t, r.Register(ep))

	id, err := param.ParseEndpointID("MS/IVR/1@127.0.0.1:2427")
	require.NoError(t, err)
	got, err := r.ResolveEndpoint(id)
	require.NoError(t, err)
	assert.Same(t, ep, got)

	_, err = r.GetEndpoint("ms/ivr/2")
	assert.ErrorIs(t, err, ErrEndpointNotFound)

	assert.ErrorIs(t, r.Register(NewGenericEndpoint("ms/ivr/1", GenericConfig{})), ErrEndpointExists)
}

func TestRegistryRejectsAllWildcard(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterProvider(newGenericProvider("ms/ivr/")))

	id, err := param.ParseEndpointID("ms/ivr/*@127.0.0.1")
	require.NoError(t, err)
	_, err = r.ResolveEndpoint(id)
	assert.ErrorIs(t, err, ErrWildcardTooComplicated)
	assert.Empty(t, r.Endpoints())
}

func TestRegistryAllocatesAnyWildcard(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterProvider(newGenericProvider("ms/ivr/")))
	// занятое вручную имя пропускается
	require.NoError(t, r.Register(NewGenericEndpoint("ms/ivr/1", GenericConfig{})))

	id, err := param.ParseEndpointID("ms/ivr/$@gw")
	require.NoError(t, err)

	first, err := r.ResolveEndpoint(id)
	require.NoError(t, err)
	assert.Equal(t, "ms/ivr/2", first.ID())
	assert.False(t, first.IsActive())

	second, err := r.ResolveEndpoint(id)
	require.NoError(t, err)
	assert.Equal(t, "ms/ivr/3", second.ID())

	got, err := r.GetEndpoint("ms/ivr/3")
	require.NoError(t, err)
	assert.Same(t, second, got)

	noProvider, err := param.ParseEndpointID("ms/bridge/$")
	require.NoError(t, err)
	_, err = r.ResolveEndpoint(noProvider)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestRegistryConcurrentAllocation(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterProvider(newGenericProvider("ms/ivr/")))
	id, err := param.ParseEndpointID("ms/ivr/$")
	require.NoError(t, err)

	const workers = 64
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ep, err := r.ResolveEndpoint(id)
			if assert.NoError(t, err) {
				ids <- ep.ID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for name := range ids {
		assert.False(t, seen[name], "duplicate endpoint %s", name)
		seen[name] = true
	}
	for i := 1; i <= workers; i++ {
		assert.True(t, seen[fmt.Sprintf("ms/ivr/%d", i)], "suffix %d missing", i)
	}
	assert.Len(t, r.Endpoints(), workers)
}

func TestRegistryUnregisterAndList(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewGenericEndpoint("b/1", GenericConfig{})))
	require.NoError(t, r.Register(NewGenericEndpoint("a/1", GenericConfig{})))

	list := r.Endpoints()
	require.Len(t, list, 2)
	assert.Equal(t, "a/1", list[0].ID())

	ep, ok := r.Unregister("A/1")
	assert.True(t, ok)
	assert.Equal(t, "a/1", ep.ID())
	_, ok = r.Unregister("a/1")
	assert.False(t, ok)

	assert.NoError(t, r.RegisterProvider(newGenericProvider("x/")))
	assert.Error(t, r.RegisterProvider(newGenericProvider("x/")))
	assert.NoError(t, r.Close())
}
