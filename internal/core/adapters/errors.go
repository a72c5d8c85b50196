package adapters

import (
	"errors"
	"fmt"
)

// UnknownAdapterTypeError: код типа не зарегистрирован. Ошибка конфигурации, не повторяется.
type UnknownAdapterTypeError struct {
	TypeCode string
}

func (e *UnknownAdapterTypeError) Error() string {
	return fmt.Sprintf("unknown adapter type %q", e.TypeCode)
}

// UnsupportedOperationError: адаптер не умеет запрошенную операцию.
type UnsupportedOperationError struct {
	Capability string
	Adapter    Type
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("adapter %s does not support %s", e.Adapter, e.Capability)
}

// ConnectionError: сетевая ошибка или ошибка API внешней стороны.
// Message содержит текст от поставщика; наружу его лучше не отдавать.
type ConnectionError struct {
	Adapter    Type
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ConnectionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Adapter, e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Adapter, e.Op, msg)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError сообщает, является ли err (или его причина) ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
