package command

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

type mockEndpoints struct {
	mock.Mock
}

func (m *mockEndpoints) GetEndpoint(name string) (endpoint.Endpoint, error) {
	args := m.Called(name)
	ep, _ := args.Get(0).(endpoint.Endpoint)
	return ep, args.Error(1)
}

func (m *mockEndpoints) ResolveEndpoint(id param.EndpointID) (endpoint.Endpoint, error) {
	args := m.Called(id)
	ep, _ := args.Get(0).(endpoint.Endpoint)
	return ep, args.Error(1)
}

func (m *mockEndpoints) Unregister(name string) (endpoint.Endpoint, bool) {
	args := m.Called(name)
	ep, _ := args.Get(0).(endpoint.Endpoint)
	return ep, args.Bool(1)
}

type mockPackages struct {
	mock.Mock
}

func (m *mockPackages) ResolveSignal(pkg, name string) error {
	return m.Called(pkg, name).Error(0)
}

func (m *mockPackages) ProvideSignal(pkg, name string, params map[string]string, mg packages.MediaGroup) (packages.Signal, error) {
	args := m.Called(pkg, name, params, mg)
	signal, _ := args.Get(0).(packages.Signal)
	return signal, args.Error(1)
}

func (m *mockPackages) ResolveEvent(pkg, name string) (packages.EventType, error) {
	args := m.Called(pkg, name)
	return args.Get(0).(packages.EventType), args.Error(1)
}

type mockEndpoint struct {
	mock.Mock
	id string
	mg packages.MediaGroup
}

func (m *mockEndpoint) ID() string                      { return m.id }
func (m *mockEndpoint) IsActive() bool                  { return false }
func (m *mockEndpoint) MediaGroup() packages.MediaGroup { return m.mg }

func (m *mockEndpoint) RequestNotification(req *endpoint.NotificationRequest) error {
	return m.Called(req).Error(0)
}

// stubSignal сигнал, который ничего не делает
type stubSignal struct {
	pkg, name string
}

func (s *stubSignal) Package() string               { return s.pkg }
func (s *stubSignal) Name() string                  { return s.name }
func (s *stubSignal) Parameters() map[string]string { return nil }

func (s *stubSignal) Execute(ctx context.Context) (*packages.Event, error) {
	return nil, nil
}
