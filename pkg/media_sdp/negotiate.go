package media_sdp

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pion/sdp/v3"
)

// DefaultPtime длительность пакета по умолчанию
const DefaultPtime = 20 * time.Millisecond

// Negotiation результат согласования удаленного SDP с локальными возможностями
type Negotiation struct {
	// Codecs общие кодеки в порядке предпочтения удаленной стороны.
	// Payload type взяты из удаленного описания.
	Codecs []Codec
	// RemoteAddr адрес, на который следует отправлять RTP
	RemoteAddr *net.UDPAddr
	// Direction направление с локальной точки зрения
	Direction Direction
	Ptime     time.Duration
}

// Parse разбирает SDP из текстового представления
func Parse(raw string) (*sdp.SessionDescription, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, NewSDPError(ErrorCodeSDPParsing, "пустое описание сессии")
	}

	// pion ожидает CRLF или LF, приводим переводы строк к единому виду
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\n", "\r\n")

	desc := &sdp.SessionDescription{}
	if err := desc.Unmarshal([]byte(normalized)); err != nil {
		return nil, WrapSDPError(ErrorCodeSDPParsing, err, "не удалось разобрать SDP")
	}
	return desc, nil
}

// Negotiate выбирает общие кодеки и извлекает адрес удаленной стороны.
// Возвращает SDPError с ErrorCodeIncompatibleCodec если аудио поток отклонен
// или общих речевых кодеков нет.
func Negotiate(remote *sdp.SessionDescription, supported []Codec) (*Negotiation, error) {
	if remote == nil {
		return nil, NewSDPError(ErrorCodeSDPParsing, "описание сессии отсутствует")
	}

	audio := findAudio(remote)
	if audio == nil {
		return nil, NewSDPError(ErrorCodeIncompatibleCodec, "аудио поток не найден")
	}
	if audio.MediaName.Port.Value == 0 {
		return nil, NewSDPError(ErrorCodeIncompatibleCodec, "аудио поток отклонен")
	}

	codecs := selectCodecs(audio, supported)
	hasVoice := false
	for _, c := range codecs {
		if !c.IsTelephoneEvent() {
			hasVoice = true
			break
		}
	}
	if !hasVoice {
		return nil, NewSDPError(ErrorCodeIncompatibleCodec, "нет общих кодеков: %s",
			strings.Join(audio.MediaName.Formats, " "))
	}

	addr, err := extractConnectionInfo(remote, audio)
	if err != nil {
		return nil, err
	}

	return &Negotiation{
		Codecs:     codecs,
		RemoteAddr: addr,
		Direction:  parseMediaDirection(remote, audio),
		Ptime:      parsePtime(audio),
	}, nil
}

func findAudio(desc *sdp.SessionDescription) *sdp.MediaDescription {
	for _, md := range desc.MediaDescriptions {
		if md.MediaName.Media == "audio" {
			return md
		}
	}
	return nil
}

// selectCodecs пересекает форматы m= строки с поддерживаемыми кодеками
func selectCodecs(md *sdp.MediaDescription, supported []Codec) []Codec {
	rtpmaps := make(map[uint8]Codec)
	fmtps := make(map[uint8]string)
	for _, attr := range md.Attributes {
		switch attr.Key {
		case "rtpmap":
			if c, ok := parseRtpmap(attr.Value); ok {
				rtpmaps[c.PayloadType] = c
			}
		case "fmtp":
			parts := strings.SplitN(attr.Value, " ", 2)
			if len(parts) == 2 {
				if pt, err := strconv.ParseUint(parts[0], 10, 8); err == nil {
					fmtps[uint8(pt)] = parts[1]
				}
			}
		}
	}

	var result []Codec
	for _, format := range md.MediaName.Formats {
		pt, err := strconv.ParseUint(format, 10, 8)
		if err != nil {
			continue
		}
		offered, ok := rtpmaps[uint8(pt)]
		if !ok {
			if offered, ok = staticPayloadTypes[uint8(pt)]; !ok {
				continue
			}
		}
		for _, local := range supported {
			if local.Matches(offered) {
				offered.Fmtp = fmtps[offered.PayloadType]
				if offered.Fmtp == "" {
					offered.Fmtp = local.Fmtp
				}
				result = append(result, offered)
				break
			}
		}
	}
	return result
}

// extractConnectionInfo адрес из c= уровня медиа либо сессии
func extractConnectionInfo(desc *sdp.SessionDescription, md *sdp.MediaDescription) (*net.UDPAddr, error) {
	conn := md.ConnectionInformation
	if conn == nil {
		conn = desc.ConnectionInformation
	}
	if conn == nil || conn.Address == nil {
		return nil, NewSDPError(ErrorCodeSDPParsing, "отсутствует c= строка")
	}

	host := conn.Address.Address
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", host)
		if err != nil {
			return nil, WrapSDPError(ErrorCodeSDPParsing, err, "неверный адрес соединения: %s", host)
		}
		ip = resolved.IP
	}

	return &net.UDPAddr{IP: ip, Port: md.MediaName.Port.Value}, nil
}

// parseMediaDirection направление с локальной точки зрения. Атрибут медиа
// уровня имеет приоритет над атрибутом сессии.
func parseMediaDirection(desc *sdp.SessionDescription, md *sdp.MediaDescription) Direction {
	remote := DirectionSendRecv
	for _, attr := range desc.Attributes {
		if d, ok := ParseDirection(attr.Key); ok {
			remote = d
		}
	}
	for _, attr := range md.Attributes {
		if d, ok := ParseDirection(attr.Key); ok {
			remote = d
		}
	}
	return remote.Reverse()
}

func parsePtime(md *sdp.MediaDescription) time.Duration {
	if value, ok := md.Attribute("ptime"); ok {
		if ms, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return DefaultPtime
}
