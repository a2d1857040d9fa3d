package domain

import (
	"errors"
	"fmt"
)

// ErrorKind - тип сбоя. Каждый компонент конвейера сообщает о своих ошибках одним из них.
type ErrorKind string

const (
	KindExtraction      ErrorKind = "extraction"
	KindDiscovery       ErrorKind = "discovery"
	KindStoreQuery      ErrorKind = "store_query"
	KindDetailFetch     ErrorKind = "detail_fetch"
	KindImageFetch      ErrorKind = "image_fetch"
	KindImageStore      ErrorKind = "image_store"
	KindStoreWrite      ErrorKind = "store_write"
	KindStoreRead       ErrorKind = "store_read"
	KindPatternNotFound ErrorKind = "pattern_not_found"
	KindUnknownProperty ErrorKind = "unknown_property"
	KindImageRetrieval  ErrorKind = "image_retrieval"
	KindSend            ErrorKind = "send"
)

// Error - ошибка компонента с исходной причиной внутри.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError создает ошибку заданного типа. err может быть nil.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf - то же, что NewError, но причина собирается из формата.
func Errorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет сравнивать по типу: errors.Is(err, &domain.Error{Kind: domain.KindSend}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf возвращает тип самой внешней ошибки домена в цепочке.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsKind сообщает, есть ли в цепочке ошибка домена указанного типа.
func IsKind(err error, kind ErrorKind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// EnsureKind оставляет уже типизированную ошибку как есть,
// а любую другую (таймаут, отмена контекста) заворачивает в kind.
func EnsureKind(err error, kind ErrorKind, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}
	return NewError(kind, op, err)
}
