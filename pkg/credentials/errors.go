package credentials

import "errors"

var (
	// ErrInvalidFormat: конверт структурно некорректен.
	ErrInvalidFormat = errors.New("credentials: invalid envelope format")
	// ErrDecryption: тег не совпал или расшифровка невозможна. Пользователю нужно переподключиться.
	ErrDecryption = errors.New("credentials: decryption failed")
	// ErrSerialization: значение нельзя сериализовать в JSON.
	ErrSerialization = errors.New("credentials: value is not serializable")
	ErrMissingSecret = errors.New("credentials: secret is required in production")
)
