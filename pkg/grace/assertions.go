package grace

import "fmt"

// Error is an error that can explain itself to a person at the terminal.
type Error interface {
	error

	WhatExpected() string
	WhatHappened() string
	WhatToDo() string
}

type ActionableError struct {
	expected     string
	got          string
	callToAction string
}

func (e *ActionableError) WhatExpected() string {
	return e.expected
}

func (e *ActionableError) WhatHappened() string {
	return e.got
}

func (e *ActionableError) WhatToDo() string {
	return e.callToAction
}

func (e *ActionableError) Error() string {
	if e.callToAction == "" {
		return fmt.Sprintf("expected %s, got %s", e.expected, e.got)
	}

	return fmt.Sprintf("expected %s, got %s; %s", e.expected, e.got, e.callToAction)
}

func RaiseError(expected, got, cta string) Error {
	return &ActionableError{
		expected:     expected,
		got:          got,
		callToAction: cta,
	}
}

// Expectation builds an actionable error where the value is formatted with %q
func Expectation(expected string, got any, cta string) Error {
	return RaiseError(expected, fmt.Sprintf("%q", fmt.Sprint(got)), cta)
}
