package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log/level"
	"github.com/sre-norns/wyrd/pkg/manifest"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sre-norns/glimpse/pkg/capture"
	"github.com/sre-norns/glimpse/pkg/grace"
)

var sampleResult = capture.Result{
	Status: capture.RunFinishedSuccess,
	URL:    "https://example.com",
	Artifacts: []capture.Artifact{
		{Rel: capture.RelScreenshot, MimeType: "image/png", Path: "screenshot.png", Size: 1024},
		{Rel: capture.RelPDF, MimeType: "application/pdf", Path: "screenshot.pdf", Size: 2048},
	},
	Labels:    manifest.Labels{capture.LabelBrowserVersionMajor: "126"},
	Duration:  1500 * time.Millisecond,
	LastState: capture.StatePDFCaptured,
}

func TestFormatters(t *testing.T) {
	testCases := map[reportFormat]func(t *testing.T, out []byte){
		reportNone: func(t *testing.T, out []byte) {
			require.Empty(t, out)
		},
		reportJSON: func(t *testing.T, out []byte) {
			var got capture.Result
			require.NoError(t, json.Unmarshal(out, &got))
			require.Equal(t, sampleResult, got)
		},
		reportYAML: func(t *testing.T, out []byte) {
			var got map[string]any
			require.NoError(t, yaml.Unmarshal(out, &got))
			require.Equal(t, "success", got["status"])
			require.Equal(t, "pdf-captured", got["lastState"])
			require.Len(t, got["artifacts"], 2)
		},
		reportTable: func(t *testing.T, out []byte) {
			text := string(out)
			require.Contains(t, text, "https://example.com: success")
			require.Contains(t, text, "screenshot.pdf")
			require.Contains(t, text, "browser.version.major")
			require.Contains(t, strings.ToLower(text), "1.5s")
		},
	}

	for name, tc := range testCases {
		format, check := name, tc
		t.Run(string(format), func(t *testing.T) {
			f, err := getFormatter(format)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, f(&buf, sampleResult))
			check(t, buf.Bytes())
		})
	}

	_, err := getFormatter("xml")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn")

	level.Info(logger).Log("msg", "hidden")
	level.Warn(logger).Log("msg", "shown", "url", "https://example.com")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "warn", entry["level"])
	require.Contains(t, entry, "ts")
	require.Contains(t, entry, "caller")
}

func TestUsageErrorExitCode(t *testing.T) {
	require.Equal(t, grace.ExitUsage, grace.ExitCode(usageError{errors.New("unexpected flag --bogus")}))
	require.Equal(t, grace.ExitUsage, grace.ExitCode(&capture.Error{Kind: capture.KindValidation, Err: os.ErrInvalid}))
	require.Equal(t, grace.ExitFailure, grace.ExitCode(&capture.Error{Kind: capture.KindNavigation, Err: os.ErrDeadlineExceeded}))
}
