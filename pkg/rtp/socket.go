package rtp

import (
	"fmt"
	"net"
)

// SocketOptions настройки UDP сокета для голосового трафика
type SocketOptions struct {
	// DSCP маркировка QoS, 46 (EF) для голоса. 0 не меняет значение.
	DSCP int `yaml:"dscp"`
	// BufferSize размер буферов приема и отправки в байтах. 0 оставляет системные.
	BufferSize int `yaml:"buffer_size"`
}

// ApplySocketOptions настраивает UDP сокет через системный дескриптор
func ApplySocketOptions(conn *net.UDPConn, opts SocketOptions) error {
	if opts.DSCP == 0 && opts.BufferSize == 0 {
		return nil
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("не удалось получить системный сокет: %w", err)
	}

	var sockOptErr error
	err = rawConn.Control(func(fd uintptr) {
		if opts.BufferSize > 0 {
			if sockOptErr = setSockOptBuffers(int(fd), opts.BufferSize); sockOptErr != nil {
				return
			}
		}
		if opts.DSCP > 0 {
			sockOptErr = setSockOptDSCP(int(fd), opts.DSCP)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка управления сокетом: %w", err)
	}
	return sockOptErr
}
