package capture

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of a capture run.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindConfigParse  ErrorKind = "config-parse"
	KindIO           ErrorKind = "io"
	KindEngineLaunch ErrorKind = "engine-launch"
	KindConfigure    ErrorKind = "configure"
	KindNavigation   ErrorKind = "navigation"
	KindCapture      ErrorKind = "capture"
)

var (
	ErrValidation   = errors.New("invalid input")
	ErrConfigParse  = errors.New("malformed configuration")
	ErrIO           = errors.New("i/o failure")
	ErrEngineLaunch = errors.New("browser failed to start")
	ErrConfigure    = errors.New("browser configuration failed")
	ErrNavigation   = errors.New("navigation failed")
	ErrCapture      = errors.New("capture failed")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:   ErrValidation,
	KindConfigParse:  ErrConfigParse,
	KindIO:           ErrIO,
	KindEngineLaunch: ErrEngineLaunch,
	KindConfigure:    ErrConfigure,
	KindNavigation:   ErrNavigation,
	KindCapture:      ErrCapture,
}

// Error is returned by every operation of this package.
// Use errors.Is with one of the Err* sentinels to test the kind.
type Error struct {
	Kind ErrorKind
	// Op names the operation or the option that failed, e.g. "--pdfScale" or "navigate".
	Op  string
	Err error
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", kindSentinels[e.Kind], e.Err)
	}

	return fmt.Sprintf("%s: %s: %v", kindSentinels[e.Kind], e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// UsageError reports whether the failure was caused by the command line input.
func (e *Error) UsageError() bool {
	return e.Kind == KindValidation || e.Kind == KindConfigParse
}
