package media_sdp

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pion/sdp/v3"
)

// BuildParams параметры локального описания сессии
type BuildParams struct {
	// Address адрес, объявляемый в c= и o= строках
	Address string
	Port    int
	Codecs  []Codec
	// Direction пустое значение означает sendrecv
	Direction Direction
	Ptime     time.Duration
}

// Builder строит локальные SDP описания для RTP соединений
type Builder struct {
	sessionName string
	username    string
	version     atomic.Uint64
}

// NewBuilder создает построитель с именем сессии для s= строки
func NewBuilder(sessionName string) *Builder {
	if sessionName == "" {
		sessionName = "-"
	}
	b := &Builder{sessionName: sessionName, username: "-"}
	b.version.Store(uint64(time.Now().Unix()))
	return b
}

// Build создает описание сессии с одним аудио потоком
func (b *Builder) Build(p BuildParams) (*sdp.SessionDescription, error) {
	if p.Address == "" {
		return nil, NewSDPError(ErrorCodeSDPGeneration, "не указан адрес")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return nil, NewSDPError(ErrorCodeSDPGeneration, "неверный порт: %d", p.Port)
	}
	if len(p.Codecs) == 0 {
		return nil, NewSDPError(ErrorCodeSDPGeneration, "список кодеков пуст")
	}

	direction := p.Direction
	if direction == "" {
		direction = DirectionSendRecv
	}
	if _, ok := ParseDirection(string(direction)); !ok {
		return nil, NewSDPError(ErrorCodeInvalidDirection, "неизвестное направление: %s", direction)
	}

	addrType := "IP4"
	if ip := net.ParseIP(p.Address); ip != nil && ip.To4() == nil {
		addrType = "IP6"
	}

	version := b.version.Add(1)
	desc := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       b.username,
			SessionID:      version,
			SessionVersion: version,
			NetworkType:    "IN",
			AddressType:    addrType,
			UnicastAddress: p.Address,
		},
		SessionName: sdp.SessionName(b.sessionName),
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: addrType,
			Address:     &sdp.Address{Address: p.Address},
		},
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{StartTime: 0, StopTime: 0}}},
	}

	md := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:  "audio",
			Port:   sdp.RangedPort{Value: p.Port},
			Protos: []string{"RTP", "AVP"},
		},
	}
	for _, c := range p.Codecs {
		md.MediaName.Formats = append(md.MediaName.Formats, strconv.Itoa(int(c.PayloadType)))
		md.WithValueAttribute("rtpmap", strconv.Itoa(int(c.PayloadType))+" "+c.Rtpmap())
		if c.Fmtp != "" {
			md.WithValueAttribute("fmtp", strconv.Itoa(int(c.PayloadType))+" "+c.Fmtp)
		}
	}
	if p.Ptime > 0 {
		md.WithValueAttribute("ptime", strconv.Itoa(int(p.Ptime/time.Millisecond)))
	}
	md.WithPropertyAttribute(string(direction))

	desc.MediaDescriptions = []*sdp.MediaDescription{md}
	return desc, nil
}

// Marshal сериализует описание в текст
func Marshal(desc *sdp.SessionDescription) (string, error) {
	raw, err := desc.Marshal()
	if err != nil {
		return "", WrapSDPError(ErrorCodeSDPGeneration, err, "не удалось сериализовать SDP")
	}
	return string(raw), nil
}
