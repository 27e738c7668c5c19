package models

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput   = errors.New("empty csv input")
	ErrMalformedCSV = errors.New("malformed csv")
	ErrNotFound     = errors.New("not found")
	ErrPersistence  = errors.New("persistence failure")

	ErrFetch  = errors.New("fetch failed")
	ErrDecode = errors.New("decode failed")
	ErrStore  = errors.New("store failed")
)

// SchemaError names the first required column missing from the CSV header.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing column: %s", e.Column)
}

// IsValidation reports whether err rejects the upload before any state is created.
func IsValidation(err error) bool {
	var se *SchemaError
	return errors.As(err, &se) || errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrMalformedCSV)
}

// ImageError is a per-URL failure. Kind is one of ErrFetch, ErrDecode, ErrStore.
type ImageError struct {
	Kind error
	URL  string
	Err  error
}

func (e *ImageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ImageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
