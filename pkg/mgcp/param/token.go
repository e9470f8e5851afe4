package param

import (
	"fmt"
	"strings"
)

// Token элемент списка событий или сигналов: "pkg/name[@conn][(args)]"
type Token struct {
	Package    string
	Name       string
	Connection string // необязательный суффикс "@connectionId"
	Args       string // содержимое скобок без внешних скобок
	HasArgs    bool
}

// FullName возвращает "pkg/name"
func (t Token) FullName() string {
	return t.Package + "/" + t.Name
}

func (t Token) String() string {
	s := t.FullName()
	if t.Connection != "" {
		s += "@" + t.Connection
	}
	if t.HasArgs {
		s += "(" + t.Args + ")"
	}
	return s
}

// SplitList делит значение параметра по запятым верхнего уровня.
// Запятые внутри скобок относятся к аргументам элемента.
func SplitList(s string) ([]string, error) {
	var (
		items []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unexpected ')' at %d in %q", ErrMalformed, i, s)
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced parenthesis in %q", ErrMalformed, s)
	}

	if last := strings.TrimSpace(s[start:]); last != "" || len(items) > 0 {
		items = append(items, last)
	}
	for _, item := range items {
		if item == "" {
			return nil, fmt.Errorf("%w: empty list item in %q", ErrMalformed, s)
		}
	}
	return items, nil
}

// ParseToken разбирает один элемент списка
func ParseToken(s string) (Token, error) {
	s = strings.TrimSpace(s)
	var tok Token

	name := s
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Token{}, fmt.Errorf("%w: unterminated argument list in %q", ErrMalformed, s)
		}
		name = s[:open]
		tok.Args = strings.TrimSpace(s[open+1 : len(s)-1])
		tok.HasArgs = true
	} else if strings.IndexByte(s, ')') >= 0 {
		return Token{}, fmt.Errorf("%w: unexpected ')' in %q", ErrMalformed, s)
	}

	if at := strings.IndexByte(name, '@'); at >= 0 {
		tok.Connection = name[at+1:]
		name = name[:at]
		if tok.Connection == "" {
			return Token{}, fmt.Errorf("%w: empty connection id in %q", ErrMalformed, s)
		}
	}

	slash := strings.IndexByte(name, '/')
	if slash <= 0 || slash == len(name)-1 {
		return Token{}, fmt.Errorf("%w: expected pkg/name in %q", ErrMalformed, s)
	}
	tok.Package = strings.TrimSpace(name[:slash])
	tok.Name = strings.TrimSpace(name[slash+1:])
	if strings.ContainsAny(tok.Package, " \t/") || strings.ContainsAny(tok.Name, " \t") {
		return Token{}, fmt.Errorf("%w: invalid name in %q", ErrMalformed, s)
	}
	return tok, nil
}

// ParseTokens разбирает список элементов. Пустая строка дает пустой список.
func ParseTokens(s string) ([]Token, error) {
	items, err := SplitList(s)
	if err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(items))
	for _, item := range items {
		tok, err := ParseToken(item)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// ParseSignalParameters разбирает аргументы сигнала "an=url it=1" в словарь.
// Значение может быть заключено в кавычки или скобки и тогда содержит пробелы.
func ParseSignalParameters(args string) (map[string]string, error) {
	params := make(map[string]string)
	fields, err := splitFields(args)
	if err != nil {
		return nil, err
	}

	for _, field := range fields {
		key, value := field, ""
		if eq := strings.IndexByte(field, '='); eq >= 0 {
			key, value = field[:eq], field[eq+1:]
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("%w: parameter without name in %q", ErrMalformed, args)
		}
		params[key] = unquote(value)
	}
	return params, nil
}

// splitFields делит строку по пробелам вне кавычек и скобок
func splitFields(s string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		depth   int
		quoted  bool
	)
	flush := func() {
		if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unexpected ')' in %q", ErrMalformed, s)
			}
		case (c == ' ' || c == '\t') && depth == 0:
			flush()
			continue
		}
		current.WriteByte(c)
	}
	if quoted || depth != 0 {
		return nil, fmt.Errorf("%w: unterminated value in %q", ErrMalformed, s)
	}
	flush()
	return fields, nil
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}
