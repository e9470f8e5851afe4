package media_sdp

// Direction атрибут направления медиа потока
type Direction string

const (
	DirectionSendRecv Direction = "sendrecv"
	DirectionSendOnly Direction = "sendonly"
	DirectionRecvOnly Direction = "recvonly"
	DirectionInactive Direction = "inactive"
)

// ParseDirection возвращает направление по ключу атрибута
func ParseDirection(attr string) (Direction, bool) {
	switch d := Direction(attr); d {
	case DirectionSendRecv, DirectionSendOnly, DirectionRecvOnly, DirectionInactive:
		return d, true
	}
	return "", false
}

// Reverse направление с точки зрения другой стороны
func (d Direction) Reverse() Direction {
	switch d {
	case DirectionSendOnly:
		return DirectionRecvOnly
	case DirectionRecvOnly:
		return DirectionSendOnly
	default:
		return d
	}
}

// CanSend локальная сторона может отправлять медиа
func (d Direction) CanSend() bool {
	return d == DirectionSendRecv || d == DirectionSendOnly
}

// CanReceive локальная сторона может принимать медиа
func (d Direction) CanReceive() bool {
	return d == DirectionSendRecv || d == DirectionRecvOnly
}
