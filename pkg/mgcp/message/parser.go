package message

import (
	"strconv"
	"strings"
)

const (
	maxTransactionID = 999999999
	protocolName     = "MGCP"
)

// ParserOption опция для настройки парсера
type ParserOption func(*Parser)

// Parser разбирает текстовые сообщения MGCP.
// Парсер не интерпретирует значения параметров: синтаксис S/R/N
// проверяется командами, которым эти параметры нужны.
type Parser struct {
	strict        bool
	maxParameters int
}

// NewParser создает новый парсер
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		strict:        true,
		maxParameters: 64,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithStrict включает проверку версии протокола и домена конечной точки
func WithStrict(strict bool) ParserOption {
	return func(p *Parser) {
		p.strict = strict
	}
}

// WithMaxParameters ограничивает количество строк параметров
func WithMaxParameters(count int) ParserOption {
	return func(p *Parser) {
		p.maxParameters = count
	}
}

// Parse определяет тип сообщения по первой строке и разбирает его
func (p *Parser) Parse(data []byte) (Message, error) {
	lines := splitLines(data)
	first, _ := firstLine(lines)
	if first < 0 {
		return nil, newParseError(0, 0, "empty message")
	}

	if isResponseLine(lines[first]) {
		return p.parseResponse(lines, first)
	}
	return p.parseRequest(lines, first)
}

// ParseRequest разбирает запрос
func (p *Parser) ParseRequest(data []byte) (*Request, error) {
	lines := splitLines(data)
	first, _ := firstLine(lines)
	if first < 0 {
		return nil, newParseError(0, 0, "empty message")
	}
	return p.parseRequest(lines, first)
}

// ParseResponse разбирает ответ
func (p *Parser) ParseResponse(data []byte) (*Response, error) {
	lines := splitLines(data)
	first, _ := firstLine(lines)
	if first < 0 {
		return nil, newParseError(0, 0, "empty message")
	}
	return p.parseResponse(lines, first)
}

// parseRequest разбирает строку команды: VERB TXID ENDPOINT@DOMAIN MGCP 1.0
func (p *Parser) parseRequest(lines []string, first int) (*Request, error) {
	fields := strings.Fields(lines[first])
	if len(fields) < 5 {
		return nil, newParseError(first+1, 0, "invalid command line: %q", lines[first])
	}

	txID, err := parseTransactionID(fields[1])
	if err != nil {
		return nil, newParseError(first+1, 0, "invalid transaction id %q", fields[1])
	}

	verb := Verb(strings.ToUpper(fields[0]))
	endpointID := fields[2]
	if p.strict && !strings.Contains(endpointID, "@") {
		return nil, newParseError(first+1, txID, "endpoint name without domain: %q", endpointID)
	}

	if !strings.EqualFold(fields[3], protocolName) {
		return nil, newParseError(first+1, txID, "unsupported protocol %q", fields[3])
	}
	version := fields[3] + " " + fields[4]
	if p.strict && fields[4] != "1.0" {
		return nil, newParseError(first+1, txID, "unsupported protocol version %q", fields[4])
	}

	req := &Request{
		parameters:    newParameters(),
		verb:          verb,
		transactionID: txID,
		endpointID:    endpointID,
		version:       version,
	}

	if err := p.parseParameters(lines, first+1, txID, &req.parameters); err != nil {
		return nil, err
	}
	return req, nil
}

// parseResponse разбирает строку ответа: CODE TXID [комментарий]
func (p *Parser) parseResponse(lines []string, first int) (*Response, error) {
	fields := strings.SplitN(strings.TrimSpace(lines[first]), " ", 3)
	if len(fields) < 2 {
		return nil, newParseError(first+1, 0, "invalid response line: %q", lines[first])
	}

	code, err := strconv.Atoi(fields[0])
	if err != nil || code < 100 || code > 999 {
		return nil, newParseError(first+1, 0, "invalid response code %q", fields[0])
	}

	txID, err := parseTransactionID(fields[1])
	if err != nil {
		return nil, newParseError(first+1, 0, "invalid transaction id %q", fields[1])
	}

	resp := &Response{
		parameters:    newParameters(),
		code:          ResponseCode(code),
		transactionID: txID,
	}
	if len(fields) == 3 {
		resp.comment = strings.TrimSpace(fields[2])
	}

	if err := p.parseParameters(lines, first+1, txID, &resp.parameters); err != nil {
		return nil, err
	}
	return resp, nil
}

// parseParameters читает строки "NAME:VALUE" до пустой строки; остаток считается телом
func (p *Parser) parseParameters(lines []string, start, txID int, params *parameters) error {
	i := start
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}

		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return newParseError(i+1, txID, "parameter line without name: %q", line)
		}

		name := Parameter(strings.TrimSpace(line[:colon]))
		if strings.ContainsAny(string(name), " \t") {
			return newParseError(i+1, txID, "invalid parameter name %q", name)
		}

		if p.maxParameters > 0 && len(params.order) >= p.maxParameters {
			return newParseError(i+1, txID, "too many parameters (max %d)", p.maxParameters)
		}
		params.SetParameter(name, strings.TrimSpace(line[colon+1:]))
	}

	// Тело (SDP) идет после пустой строки
	if i < len(lines) {
		body := lines[i+1:]
		for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
			body = body[:len(body)-1]
		}
		if len(body) > 0 {
			params.body = strings.Join(body, "\r\n") + "\r\n"
		}
	}
	return nil
}

// SplitPiggyback разделяет датаграмму с несколькими сообщениями,
// разделенными строкой из одной точки (RFC 3435, раздел 3.5.5)
func SplitPiggyback(data []byte) [][]byte {
	lines := splitLines(data)
	var (
		result  [][]byte
		current []string
	)
	flush := func() {
		if _, line := firstLine(current); line != "" {
			result = append(result, []byte(strings.Join(current, "\n")))
		}
		current = nil
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "." {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return result
}

func splitLines(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

// firstLine пропускает пустые строки в начале сообщения
func firstLine(lines []string) (int, string) {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return i, line
		}
	}
	return -1, ""
}

func isResponseLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields[0]) != 3 {
		return false
	}
	_, err := strconv.Atoi(fields[0])
	return err == nil
}

func parseTransactionID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if id < 1 || id > maxTransactionID {
		return 0, strconv.ErrRange
	}
	return id, nil
}
