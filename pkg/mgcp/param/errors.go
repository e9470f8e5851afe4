package param

import "errors"

var (
	// ErrMalformed синтаксическая ошибка значения параметра
	ErrMalformed = errors.New("malformed parameter")
	// ErrUnknownAction неизвестное действие у запрошенного события
	ErrUnknownAction = errors.New("unknown event action")
)
