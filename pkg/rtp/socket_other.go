//go:build !linux

package rtp

// На остальных платформах оставляем системные настройки сокета

func setSockOptBuffers(fd, size int) error {
	return nil
}

func setSockOptDSCP(fd, dscp int) error {
	return nil
}
