package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation.
type ErrorKind string

const (
	KindTransport     ErrorKind = "transport"
	KindEmptyContext  ErrorKind = "empty_context"
	KindWrongModality ErrorKind = "wrong_modality"
	KindNoContent     ErrorKind = "no_content"
)

var (
	ErrTransport     = errors.New("transport error")
	ErrEmptyContext  = errors.New("empty context")
	ErrWrongModality = errors.New("wrong modality")
	ErrNoContent     = errors.New("no content")
)

const (
	MsgEmptyContext  = "No message found to generate image from."
	MsgWrongModality = "Model returned text instead of image"
	MsgNoContent     = "No image was returned by the API"
)

// GenerationError is the error returned by every failed generation. Error()
// yields Message unchanged so it can be shown to the user as is.
type GenerationError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *GenerationError) Is(target error) bool {
	switch e.Kind {
	case KindTransport:
		return target == ErrTransport
	case KindEmptyContext:
		return target == ErrEmptyContext
	case KindWrongModality:
		return target == ErrWrongModality
	case KindNoContent:
		return target == ErrNoContent
	}
	return false
}

func NewTransportError(status int, message string, err error) *GenerationError {
	if message == "" {
		message = fmt.Sprintf("API Error: %d", status)
	}
	return &GenerationError{Kind: KindTransport, Status: status, Message: message, Err: err}
}

func NewEmptyContextError() *GenerationError {
	return &GenerationError{Kind: KindEmptyContext, Message: MsgEmptyContext}
}

func NewWrongModalityError() *GenerationError {
	return &GenerationError{Kind: KindWrongModality, Message: MsgWrongModality}
}

func NewNoContentError() *GenerationError {
	return &GenerationError{Kind: KindNoContent, Message: MsgNoContent}
}

// KindOf returns the kind of a GenerationError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind, true
	}
	return "", false
}
