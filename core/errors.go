package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrOperationFailed  = errors.New("operation failed")
	ErrUnsupportedStore = errors.New("unsupported store driver")
)

type Error struct {
	Message string             `json:"message,omitempty"`
	Err     []string           `json:"err,omitempty"`
	Fields  []*ValidationError `json:"fields,omitempty"`
}

func NewError(message string, errs ...error) *Error {
	e := &Error{Message: message}

	for _, err := range errs {
		if err == nil {
			continue
		}

		e.Err = append(e.Err, err.Error())

		var verr *ValidationError
		if errors.As(err, &verr) {
			e.Fields = append(e.Fields, verr)
		}
	}

	return e
}

func (e *Error) Error() string {
	//nolint:errchkjson
	data, _ := json.Marshal(e)
	return string(data)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	if len(e.Err) == 0 {
		return nil
	}

	errs := make([]error, len(e.Err))
	for i, err := range e.Err {
		errs[i] = fmt.Errorf("%s", err)
	}

	return errors.Join(errs...)
}

func (e *Error) Messages() []string {
	return e.Err
}
