package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput 请求参数错误（对应 HTTP 400）
var ErrInvalidInput = errors.New("invalid input")

// InputError 带说明的参数错误
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

func invalidInput(reason string, err error) error {
	return &InputError{Reason: reason, Err: err}
}

// IsInvalidInput reports whether err was caused by the caller's input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// StepError 创建流程中某一步失败
type StepError struct {
	Step       string
	RichMenuID string
	Err        error
}

func (e *StepError) Error() string {
	if e.RichMenuID != "" {
		return fmt.Sprintf("%s rich menu %s: %v", e.Step, e.RichMenuID, e.Err)
	}
	return fmt.Sprintf("%s rich menu: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
