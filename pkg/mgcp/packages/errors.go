package packages

import "errors"

// Ошибки разрешения сигналов и событий. Неизвестный пакет и неизвестный
// элемент известного пакета отображаются в разные коды ответа.
var (
	ErrUnrecognizedPackage = errors.New("unrecognized package")
	ErrUnsupportedSignal   = errors.New("unsupported signal")
	ErrUnsupportedEvent    = errors.New("unsupported event")
	ErrInvalidParameter    = errors.New("invalid signal parameter")
)
