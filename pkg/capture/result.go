package capture

import (
	"context"
	"errors"
	"time"

	"github.com/sre-norns/wyrd/pkg/manifest"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunNotFinished      RunStatus = ""
	RunFinishedSuccess  RunStatus = "success"
	RunFinishedError    RunStatus = "errored"
	RunFinishedCanceled RunStatus = "canceled"
	RunFinishedTimeout  RunStatus = "timeout"
)

func statusOf(err error) RunStatus {
	switch {
	case err == nil:
		return RunFinishedSuccess
	case errors.Is(err, context.Canceled):
		return RunFinishedCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return RunFinishedTimeout
	default:
		return RunFinishedError
	}
}

// State of a run. States only move forward.
type State string

const (
	StateCreated         State = "created"
	StateLaunched        State = "launched"
	StateConfigured      State = "configured"
	StateNavigatedLogin  State = "navigated-login"
	StateNavigatedTarget State = "navigated-target"
	StateDelayed         State = "delayed"
	StateCaptured        State = "captured"
	StatePDFCaptured     State = "pdf-captured"
	StateClosed          State = "closed"
)

// Relation types of artifacts
const (
	RelScreenshot = "screenshot"
	RelPDF        = "pdf"
	RelHAR        = "har"
	RelMetrics    = "metrics"
)

// Artifact is a file produced by a run.
type Artifact struct {
	// Relation type: screenshot / pdf / har / metrics
	Rel      string `json:"rel" yaml:"rel"`
	MimeType string `json:"mimeType" yaml:"mimeType"`
	// Encoding is the content encoding of a compressed file
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Path     string `json:"path" yaml:"path"`
	Size     int    `json:"size" yaml:"size"`
}

type Result struct {
	Status    RunStatus       `json:"status" yaml:"status"`
	URL       string          `json:"url" yaml:"url"`
	Artifacts []Artifact      `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Labels    manifest.Labels `json:"labels,omitempty" yaml:"labels,omitempty"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	// LastState is the furthest state reached before the browser was closed
	LastState State  `json:"lastState" yaml:"lastState"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}
