package rtp

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// ErrPortsExhausted в диапазоне не осталось свободных портов
var ErrPortsExhausted = errors.New("rtp port range exhausted")

// PortRange диапазон UDP портов для RTP
type PortRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Validate проверяет корректность диапазона портов
func (r PortRange) Validate() error {
	if r.Min <= 0 || r.Max > 65535 {
		return fmt.Errorf("неверный диапазон портов: Min=%d, Max=%d", r.Min, r.Max)
	}
	if r.Min >= r.Max {
		return fmt.Errorf("минимальный порт должен быть меньше максимального: Min=%d, Max=%d", r.Min, r.Max)
	}
	return nil
}

// PortAllocator выдает четные RTP порты из диапазона.
// Нечетный порт следом резервируется под RTCP.
type PortAllocator struct {
	portRange PortRange
	used      map[int]bool
	next      int
	probe     func(port int) bool
	mutex     sync.Mutex
}

// NewPortAllocator создает аллокатор для диапазона
func NewPortAllocator(portRange PortRange) (*PortAllocator, error) {
	if err := portRange.Validate(); err != nil {
		return nil, err
	}
	start := portRange.Min
	if start%2 != 0 {
		start++
	}
	return &PortAllocator{
		portRange: portRange,
		used:      make(map[int]bool),
		next:      start,
		probe:     canBindPort,
	}, nil
}

// Allocate выделяет следующий свободный четный порт. Поиск идет по кругу
// от последнего выданного порта, чтобы недавно освобожденные порты не
// переиспользовались сразу.
func (pa *PortAllocator) Allocate() (int, error) {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()

	total := pa.Capacity()
	for i := 0; i < total; i++ {
		port := pa.next
		pa.next += 2
		if pa.next+1 > pa.portRange.Max {
			pa.next = pa.portRange.Min + pa.portRange.Min%2
		}

		if pa.used[port] {
			continue
		}
		if pa.probe != nil && !pa.probe(port) {
			continue
		}
		pa.used[port] = true
		return port, nil
	}

	return 0, fmt.Errorf("%w: %d-%d", ErrPortsExhausted, pa.portRange.Min, pa.portRange.Max)
}

// Release возвращает порт в пул
func (pa *PortAllocator) Release(port int) {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()
	delete(pa.used, port)
}

// InUse количество выданных портов
func (pa *PortAllocator) InUse() int {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()
	return len(pa.used)
}

// Capacity количество четных портов в диапазоне с местом под RTCP
func (pa *PortAllocator) Capacity() int {
	first := pa.portRange.Min + pa.portRange.Min%2
	if first+1 > pa.portRange.Max {
		return 0
	}
	return (pa.portRange.Max-first-1)/2 + 1
}

// canBindPort проверяет, что порт не занят другим процессом
func canBindPort(port int) bool {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
