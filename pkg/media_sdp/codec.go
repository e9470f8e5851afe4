package media_sdp

import (
	"strconv"
	"strings"
)

// Codec описание аудио формата в SDP
type Codec struct {
	PayloadType uint8
	Name        string
	ClockRate   uint32
	Channels    uint16
	Fmtp        string
}

// Стандартные кодеки телефонии
var (
	CodecPCMU           = Codec{PayloadType: 0, Name: "PCMU", ClockRate: 8000, Channels: 1}
	CodecGSM            = Codec{PayloadType: 3, Name: "GSM", ClockRate: 8000, Channels: 1}
	CodecPCMA           = Codec{PayloadType: 8, Name: "PCMA", ClockRate: 8000, Channels: 1}
	CodecG722           = Codec{PayloadType: 9, Name: "G722", ClockRate: 8000, Channels: 1}
	CodecG729           = Codec{PayloadType: 18, Name: "G729", ClockRate: 8000, Channels: 1}
	CodecTelephoneEvent = Codec{PayloadType: 101, Name: "telephone-event", ClockRate: 8000, Channels: 1, Fmtp: "0-15"}
)

// staticPayloadTypes статические payload type из RFC 3551
var staticPayloadTypes = map[uint8]Codec{
	0:  CodecPCMU,
	3:  CodecGSM,
	8:  CodecPCMA,
	9:  CodecG722,
	18: CodecG729,
}

// DefaultCodecs кодеки, поддерживаемые шлюзом по умолчанию
func DefaultCodecs() []Codec {
	return []Codec{CodecPCMU, CodecPCMA, CodecTelephoneEvent}
}

// CodecByName ищет кодек среди известных по имени без учета регистра
func CodecByName(name string) (Codec, bool) {
	for _, c := range append(DefaultCodecs(), CodecGSM, CodecG722, CodecG729) {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Codec{}, false
}

// IsTelephoneEvent true для RFC 4733 событий
func (c Codec) IsTelephoneEvent() bool {
	return strings.EqualFold(c.Name, CodecTelephoneEvent.Name)
}

// Matches сравнивает кодеки по имени и частоте (payload type может отличаться
// у динамических форматов)
func (c Codec) Matches(other Codec) bool {
	return strings.EqualFold(c.Name, other.Name) && c.ClockRate == other.ClockRate
}

// Rtpmap значение атрибута a=rtpmap без payload type
func (c Codec) Rtpmap() string {
	s := c.Name + "/" + strconv.FormatUint(uint64(c.ClockRate), 10)
	if c.Channels > 1 {
		s += "/" + strconv.FormatUint(uint64(c.Channels), 10)
	}
	return s
}

// parseRtpmap разбирает "0 PCMU/8000" или "101 telephone-event/8000"
func parseRtpmap(value string) (Codec, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 {
		return Codec{}, false
	}
	pt, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return Codec{}, false
	}

	enc := strings.Split(parts[1], "/")
	if len(enc) < 2 {
		return Codec{}, false
	}
	rate, err := strconv.ParseUint(enc[1], 10, 32)
	if err != nil {
		return Codec{}, false
	}

	codec := Codec{PayloadType: uint8(pt), Name: enc[0], ClockRate: uint32(rate), Channels: 1}
	if len(enc) > 2 {
		if ch, err := strconv.ParseUint(enc[2], 10, 16); err == nil {
			codec.Channels = uint16(ch)
		}
	}
	return codec, true
}
