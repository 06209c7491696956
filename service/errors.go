package service

import (
	"errors"
	"fmt"
)

// ErrorKind 纹理流程的错误类别
type ErrorKind string

const (
	KindInputMissing      ErrorKind = "input_missing"
	KindNoSurface         ErrorKind = "no_surface"
	KindGeometry          ErrorKind = "geometry_error"
	KindNotFound          ErrorKind = "not_found"
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindInvalidParameter  ErrorKind = "invalid_parameter"
)

var (
	ErrInputMissing      = &PipelineError{Kind: KindInputMissing}
	ErrNoSurface         = &PipelineError{Kind: KindNoSurface}
	ErrGeometry          = &PipelineError{Kind: KindGeometry}
	ErrNotFound          = &PipelineError{Kind: KindNotFound}
	ErrDimensionMismatch = &PipelineError{Kind: KindDimensionMismatch}
	ErrInvalidParameter  = &PipelineError{Kind: KindInvalidParameter}
)

// ErrQueueTimeout 等待处理队列超时
var ErrQueueTimeout = errors.New("processing queue is full")

// PipelineError 带类别的错误
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is 按类别匹配，使 errors.Is(err, ErrNotFound) 成立
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, err error, format string, args ...any) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf 返回错误类别，非 PipelineError 返回空串
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
