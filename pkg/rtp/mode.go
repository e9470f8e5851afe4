package rtp

import (
	"errors"
	"strings"

	"github.com/hl2dod/mediaserver/pkg/media_sdp"
)

// ErrUnsupportedMode режим соединения не поддерживается
var ErrUnsupportedMode = errors.New("unsupported connection mode")

// Mode режим RTP соединения (MGCP параметр M)
type Mode int

const (
	ModeInactive Mode = iota
	ModeSendOnly
	ModeRecvOnly
	ModeSendRecv
	ModeConference
	ModeLoopback
	ModeNetworkLoopback
)

var modeNames = map[Mode]string{
	ModeInactive:        "inactive",
	ModeSendOnly:        "sendonly",
	ModeRecvOnly:        "recvonly",
	ModeSendRecv:        "sendrecv",
	ModeConference:      "confrnce",
	ModeLoopback:        "loopback",
	ModeNetworkLoopback: "netwloop",
}

// ParseMode разбирает значение параметра M без учета регистра
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeInactive, ErrUnsupportedMode
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return "unknown"
}

// CanSend медиа может отправляться удаленной стороне
func (m Mode) CanSend() bool {
	return m == ModeSendOnly || m == ModeSendRecv || m == ModeConference
}

// CanReceive входящие пакеты доставляются обработчику
func (m Mode) CanReceive() bool {
	return m == ModeRecvOnly || m == ModeSendRecv || m == ModeConference
}

// IsLoopback входящие пакеты возвращаются отправителю
func (m Mode) IsLoopback() bool {
	return m == ModeLoopback || m == ModeNetworkLoopback
}

// Direction атрибут направления для локального SDP
func (m Mode) Direction() media_sdp.Direction {
	switch m {
	case ModeSendOnly:
		return media_sdp.DirectionSendOnly
	case ModeRecvOnly:
		return media_sdp.DirectionRecvOnly
	case ModeInactive:
		return media_sdp.DirectionInactive
	default:
		return media_sdp.DirectionSendRecv
	}
}
