package connection

import (
	"net"

	"github.com/hl2dod/mediaserver/pkg/media_sdp"
	"github.com/hl2dod/mediaserver/pkg/rtp"
)

// Session RTP канал, которым управляет соединение.
// Реализуется *rtp.Session.
type Session interface {
	Bind(address string) error
	LocalAddr() *net.UDPAddr
	SupportedCodecs() []media_sdp.Codec
	Codecs() []media_sdp.Codec
	SetCodecs(codecs []media_sdp.Codec)
	RemoteAddr() *net.UDPAddr
	SetRemoteAddr(addr *net.UDPAddr)
	Mode() rtp.Mode
	SetMode(mode rtp.Mode)
	Close() error
}

// Callback вызывается один раз по завершении операции
type Callback func(Result)

// OpenContext параметры открытия соединения
type OpenContext struct {
	Mode rtp.Mode
	// Address локальный IP для привязки сокета
	Address string
	// ExternalAddress адрес, объявляемый в локальном SDP. Пустой означает Address.
	ExternalAddress string
	// RemoteDescription SDP удаленной стороны. Пустое значение открывает
	// соединение с локальным предложением.
	RemoteDescription string
	Callback          Callback
}

// ModifyContext параметры изменения открытого соединения
type ModifyContext struct {
	// Mode nil оставляет текущий режим
	Mode              *rtp.Mode
	RemoteDescription string
	Callback          Callback
}

// CloseContext параметры закрытия соединения
type CloseContext struct {
	Callback Callback
}

// Result итог операции: локальный SDP при успехе либо ошибка
type Result struct {
	LocalDescription string
	Err              error
}
