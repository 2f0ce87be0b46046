package grace_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sre-norns/glimpse/pkg/grace"
	"github.com/stretchr/testify/require"
)

type badInput struct{}

func (badInput) Error() string    { return "bad input" }
func (badInput) UsageError() bool { return true }

func TestActionableError(t *testing.T) {
	err := grace.RaiseError("a value in [0.1, 2]", "5", "pass a smaller --pdfScale")
	require.Equal(t, "a value in [0.1, 2]", err.WhatExpected())
	require.Equal(t, "5", err.WhatHappened())
	require.Equal(t, "pass a smaller --pdfScale", err.WhatToDo())
	require.Equal(t, "expected a value in [0.1, 2], got 5; pass a smaller --pdfScale", err.Error())

	short := grace.Expectation("one of png,jpeg,webp", "gif", "")
	require.Equal(t, `expected one of png,jpeg,webp, got "gif"`, short.Error())
}

func TestExitCode(t *testing.T) {
	testCases := map[string]struct {
		given  error
		expect int
	}{
		"nil":              {given: nil, expect: grace.ExitOK},
		"generic":          {given: errors.New("boom"), expect: grace.ExitFailure},
		"canceled":         {given: context.Canceled, expect: grace.ExitCanceled},
		"wrapped-canceled": {given: fmt.Errorf("navigate: %w", context.Canceled), expect: grace.ExitCanceled},
		"usage":            {given: badInput{}, expect: grace.ExitUsage},
		"wrapped-usage":    {given: fmt.Errorf("resolve: %w", badInput{}), expect: grace.ExitUsage},
		"deadline":         {given: context.DeadlineExceeded, expect: grace.ExitFailure},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.expect, grace.ExitCode(test.given))
		})
	}
}
