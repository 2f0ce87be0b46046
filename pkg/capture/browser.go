package capture

import (
	"context"

	"github.com/go-kit/log"
)

// Browser is a single page of a running browser, exclusively owned by one run.
type Browser interface {
	// Version returns the browser product, e.g. "HeadlessChrome/126.0.6478.126".
	Version(ctx context.Context) (string, error)

	SetUserAgent(ctx context.Context, userAgent string) error
	SetCookies(ctx context.Context, cookies []Cookie) error
	SetExtraHeaders(ctx context.Context, headers map[string]string) error

	// Navigate loads the url and blocks until the wait condition is met or ctx is done.
	Navigate(ctx context.Context, url string, waitUntil WaitCondition) error

	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	PDF(ctx context.Context, opts PDFOptions) ([]byte, error)

	// Close releases the browser. Calling it more than once is safe.
	Close(ctx context.Context) error
}

// HARExporter is implemented by browsers able to record network traffic.
type HARExporter interface {
	// StartHAR begins recording. It must be called before the first navigation.
	StartHAR(ctx context.Context) error
	// HAR returns the traffic recorded so far as a JSON document.
	HAR() ([]byte, error)
}

type LaunchOptions struct {
	Viewport Viewport
	Engine   EngineOptions
}

// Launcher starts a new browser.
type Launcher func(ctx context.Context, opts LaunchOptions, logger log.Logger) (Browser, error)
