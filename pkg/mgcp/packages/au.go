package packages

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AdvancedAudioPackageName пакет Advanced Audio (RFC 2897)
const AdvancedAudioPackageName = "AU"

// Сигналы и события пакета AU
const (
	SignalPlayAnnouncement = "pa"
	SignalPlayCollect      = "pc"
	SignalPlayRecord       = "pr"
	SignalEndSignal        = "es"

	EventOperationComplete = "oc"
	EventOperationFailed   = "of"
)

// Коды возврата в параметре rc
const (
	ReturnCodeSuccess    = "100"
	ReturnCodeFailure    = "300"
	ReturnCodeBadAudioID = "312"
	ReturnCodeNoDigits   = "326"
)

// AdvancedAudioPackage реализация пакета AU
type AdvancedAudioPackage struct{}

// NewAdvancedAudioPackage создает пакет AU
func NewAdvancedAudioPackage() *AdvancedAudioPackage {
	return &AdvancedAudioPackage{}
}

// Name возвращает "AU"
func (p *AdvancedAudioPackage) Name() string {
	return AdvancedAudioPackageName
}

// HasEvent проверяет поддержку события
func (p *AdvancedAudioPackage) HasEvent(name string) bool {
	switch strings.ToLower(name) {
	case EventOperationComplete, EventOperationFailed:
		return true
	}
	return false
}

// HasSignal проверяет поддержку сигнала
func (p *AdvancedAudioPackage) HasSignal(name string) bool {
	switch strings.ToLower(name) {
	case SignalPlayAnnouncement, SignalPlayCollect, SignalPlayRecord, SignalEndSignal:
		return true
	}
	return false
}

// Signal создает сигнал и проверяет его параметры
func (p *AdvancedAudioPackage) Signal(name string, params map[string]string, mg MediaGroup) (Signal, error) {
	base := auSignal{name: strings.ToLower(name), params: copyParams(params), mg: mg}

	switch base.name {
	case SignalPlayAnnouncement:
		req, err := playRequest(params)
		if err != nil {
			return nil, err
		}
		return &playSignal{auSignal: base, req: req}, nil

	case SignalPlayCollect:
		req, err := collectRequest(params)
		if err != nil {
			return nil, err
		}
		return &collectSignal{auSignal: base, req: req}, nil

	case SignalPlayRecord:
		req, err := recordRequest(params)
		if err != nil {
			return nil, err
		}
		return &recordSignal{auSignal: base, req: req}, nil

	case SignalEndSignal:
		return &endSignal{auSignal: base}, nil
	}

	return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedSignal, AdvancedAudioPackageName, name)
}

// auSignal общая часть сигналов AU
type auSignal struct {
	name   string
	params map[string]string
	mg     MediaGroup
}

func (s *auSignal) Package() string { return AdvancedAudioPackageName }

func (s *auSignal) Name() string { return s.name }

func (s *auSignal) Parameters() map[string]string { return copyParams(s.params) }

func (s *auSignal) completed(params map[string]string) *Event {
	if params == nil {
		params = make(map[string]string)
	}
	params["rc"] = ReturnCodeSuccess
	return &Event{
		EventType: EventType{Package: AdvancedAudioPackageName, Name: EventOperationComplete},
		Params:    params,
	}
}

func (s *auSignal) failed(rc string) *Event {
	return &Event{
		EventType: EventType{Package: AdvancedAudioPackageName, Name: EventOperationFailed},
		Params:    map[string]string{"rc": rc},
	}
}

// playSignal AU/pa
type playSignal struct {
	auSignal
	req PlayRequest
}

func (s *playSignal) Execute(ctx context.Context) (*Event, error) {
	if err := s.mg.Play(ctx, s.req); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return s.failed(ReturnCodeBadAudioID), nil
	}
	return s.completed(nil), nil
}

// collectSignal AU/pc
type collectSignal struct {
	auSignal
	req CollectRequest
}

func (s *collectSignal) Execute(ctx context.Context) (*Event, error) {
	digits, err := s.mg.Collect(ctx, s.req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return s.failed(ReturnCodeFailure), nil
	}
	if digits == "" {
		return s.failed(ReturnCodeNoDigits), nil
	}
	return s.completed(map[string]string{"dc": digits}), nil
}

// recordSignal AU/pr
type recordSignal struct {
	auSignal
	req RecordRequest
}

func (s *recordSignal) Execute(ctx context.Context) (*Event, error) {
	id, err := s.mg.Record(ctx, s.req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return s.failed(ReturnCodeFailure), nil
	}
	return s.completed(map[string]string{"ri": id}), nil
}

// endSignal AU/es останавливает текущие операции медиа-группы
type endSignal struct {
	auSignal
}

func (s *endSignal) Execute(ctx context.Context) (*Event, error) {
	s.mg.Stop()
	return nil, nil
}

func playRequest(params map[string]string) (PlayRequest, error) {
	req := PlayRequest{Iterations: 1}

	an := splitValueList(params["an"])
	if len(an) == 0 {
		return req, fmt.Errorf("%w: pa requires an", ErrInvalidParameter)
	}
	req.Announcements = an

	if v, ok := params["it"]; ok {
		it, err := strconv.Atoi(v)
		if err != nil || (it < 1 && it != -1) {
			return req, fmt.Errorf("%w: it=%q", ErrInvalidParameter, v)
		}
		req.Iterations = it
	}

	iv, err := durationParam(params, "iv")
	if err != nil {
		return req, err
	}
	req.Interval = iv
	return req, nil
}

func collectRequest(params map[string]string) (CollectRequest, error) {
	req := CollectRequest{
		Prompt:    splitValueList(params["ip"]),
		MinDigits: 1,
		MaxDigits: 1,
	}

	var err error
	if req.MinDigits, err = intParam(params, "mn", req.MinDigits); err != nil {
		return req, err
	}
	if req.MaxDigits, err = intParam(params, "mx", req.MinDigits); err != nil {
		return req, err
	}
	if req.MinDigits < 1 || req.MaxDigits < req.MinDigits {
		return req, fmt.Errorf("%w: mn=%d mx=%d", ErrInvalidParameter, req.MinDigits, req.MaxDigits)
	}
	if req.Timeout, err = durationParam(params, "fdt"); err != nil {
		return req, err
	}
	return req, nil
}

func recordRequest(params map[string]string) (RecordRequest, error) {
	req := RecordRequest{Prompt: splitValueList(params["ip"])}

	length, err := durationParam(params, "rlt")
	if err != nil {
		return req, err
	}
	req.MaxLength = length
	return req, nil
}

// intParam целое значение параметра или значение по умолчанию
func intParam(params map[string]string, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, key, v)
	}
	return n, nil
}

// durationParam значение в миллисекундах
func durationParam(params map[string]string, key string) (time.Duration, error) {
	ms, err := intParam(params, key, 0)
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, fmt.Errorf("%w: %s=%d", ErrInvalidParameter, key, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// splitValueList разбирает "a.wav" или "(a.wav b.wav)" или "a.wav,b.wav"
func splitValueList(v string) []string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(strings.TrimPrefix(v, "("), ")")
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
