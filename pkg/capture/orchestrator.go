package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sre-norns/wyrd/pkg/manifest"
)

// CloseTimeout bounds the browser teardown, which runs even after the run context is cancelled.
var CloseTimeout = 10 * time.Second

type session struct {
	cfg     *Config
	logger  log.Logger
	metrics *runMetrics
	browser Browser
	result  Result
}

// Run captures the page described by cfg using a browser obtained from launch.
// The browser is always closed before Run returns. The Result is filled in even when an error is returned.
func Run(ctx context.Context, cfg *Config, launch Launcher, logger log.Logger) (Result, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	s := &session{
		cfg:     cfg,
		logger:  log.With(logger, "url", cfg.URL),
		metrics: newRunMetrics(),
		result: Result{
			URL:       cfg.URL,
			LastState: StateCreated,
			Labels:    manifest.MergeLabels(RuntimeLabels(), configLabels(cfg)),
		},
	}

	start := time.Now()
	err := s.run(ctx, launch)
	elapsed := time.Since(start)

	s.metrics.finish(err, elapsed)
	if path := cfg.MetricsPath(); path != "" {
		if merr := s.writeMetrics(path); merr != nil {
			level.Warn(s.logger).Log("msg", "failed to write metrics", "path", path, "err", merr)
			if err == nil {
				err = merr
			}
		}
	}

	s.result.Duration = elapsed
	s.result.Status = statusOf(err)
	if err != nil {
		s.result.Error = err.Error()
	}

	return s.result, err
}

func (s *session) advance(state State) {
	s.result.LastState = state
	level.Debug(s.logger).Log("msg", "state", "state", state)
}

func (s *session) run(ctx context.Context, launch Launcher) error {
	done := s.metrics.observe("launch")
	level.Info(s.logger).Log("msg", "launching browser", "width", s.cfg.Viewport.Width, "height", s.cfg.Viewport.Height)
	browser, err := launch(ctx, LaunchOptions{Viewport: s.cfg.Viewport, Engine: s.cfg.Engine}, s.logger)
	done()
	if err != nil {
		return newError(KindEngineLaunch, "launch", err)
	}

	s.browser = browser
	s.advance(StateLaunched)
	defer func() {
		if cerr := s.close(ctx); cerr != nil {
			level.Warn(s.logger).Log("msg", "failed to close browser", "err", cerr)
		}
		level.Debug(s.logger).Log("msg", "state", "state", StateClosed, "last", s.result.LastState)
	}()

	if product, verr := browser.Version(ctx); verr != nil {
		level.Warn(s.logger).Log("msg", "failed to get browser version", "err", verr)
	} else {
		s.result.Labels = manifest.MergeLabels(s.result.Labels, BrowserLabels(product))
		level.Debug(s.logger).Log("msg", "browser started", "product", product)
	}

	if err := s.configure(ctx); err != nil {
		return err
	}
	s.advance(StateConfigured)

	if s.cfg.LoginURL != "" {
		if err := s.navigate(ctx, "login", s.cfg.LoginURL); err != nil {
			return err
		}
		s.advance(StateNavigatedLogin)
	}

	if err := s.navigate(ctx, "navigate", s.cfg.URL); err != nil {
		return err
	}
	s.advance(StateNavigatedTarget)

	if s.cfg.Delay > 0 {
		if err := s.delay(ctx); err != nil {
			return err
		}
		s.advance(StateDelayed)
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return newError(KindIO, "outputDir", err)
	}

	if err := s.screenshot(ctx); err != nil {
		return err
	}
	s.advance(StateCaptured)

	if s.cfg.PDF != nil {
		if err := s.pdf(ctx); err != nil {
			return err
		}
		s.advance(StatePDFCaptured)
	}

	if path := s.cfg.HARPath(); path != "" {
		if err := s.exportHAR(path); err != nil {
			return err
		}
	}

	return nil
}

func (s *session) configure(ctx context.Context) error {
	if s.cfg.HARFile != "" {
		if recorder, ok := s.browser.(HARExporter); ok {
			if err := recorder.StartHAR(ctx); err != nil {
				return newError(KindConfigure, "har", err)
			}
		} else {
			level.Warn(s.logger).Log("msg", "browser can not record HAR, ignoring --harFile")
		}
	}

	if s.cfg.UserAgent != "" {
		if err := s.browser.SetUserAgent(ctx, s.cfg.UserAgent); err != nil {
			return newError(KindConfigure, "userAgent", err)
		}
	}

	if len(s.cfg.Cookies) > 0 {
		cookies, err := ResolveCookies(s.cfg.Cookies, s.cfg.URL)
		if err != nil {
			return err
		}

		level.Debug(s.logger).Log("msg", "setting cookies", "count", len(cookies))
		if err := s.browser.SetCookies(ctx, cookies); err != nil {
			return newError(KindConfigure, "cookies", err)
		}
	}

	if len(s.cfg.Headers) > 0 {
		headers, err := ResolveHeaders(s.cfg.Headers)
		if err != nil {
			return err
		}

		level.Debug(s.logger).Log("msg", "setting extra headers", "count", len(headers))
		if err := s.browser.SetExtraHeaders(ctx, headers); err != nil {
			return newError(KindConfigure, "headers", err)
		}
	}

	return nil
}

func (s *session) navigate(ctx context.Context, step, url string) error {
	defer s.metrics.observe(step)()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	level.Info(s.logger).Log("msg", "navigating", "to", url, "waitUntil", s.cfg.WaitUntil)
	if err := s.browser.Navigate(ctx, url, s.cfg.WaitUntil); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%q not ready after %v: %w", url, s.cfg.Timeout, err)
		}
		return newError(KindNavigation, step, err)
	}

	return nil
}

func (s *session) delay(ctx context.Context) error {
	defer s.metrics.observe("delay")()

	timer := time.NewTimer(s.cfg.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *session) screenshot(ctx context.Context) error {
	done := s.metrics.observe("screenshot")
	data, err := s.browser.Screenshot(ctx, s.cfg.ScreenshotOptions())
	done()
	if err != nil {
		return newError(KindCapture, "screenshot", err)
	}

	return s.write(Artifact{Rel: RelScreenshot, MimeType: s.cfg.Format.MimeType(), Path: s.cfg.ScreenshotPath()}, data)
}

func (s *session) pdf(ctx context.Context) error {
	done := s.metrics.observe("pdf")
	data, err := s.browser.PDF(ctx, *s.cfg.PDF)
	done()
	if err != nil {
		return newError(KindCapture, "pdf", err)
	}

	return s.write(Artifact{Rel: RelPDF, MimeType: "application/pdf", Path: s.cfg.PDFPath()}, data)
}

func (s *session) exportHAR(path string) error {
	recorder, ok := s.browser.(HARExporter)
	if !ok {
		return nil
	}

	data, err := recorder.HAR()
	if err != nil {
		return newError(KindCapture, "har", err)
	}

	return s.writeCompressed(Artifact{Rel: RelHAR, MimeType: "application/json", Path: path}, data)
}

func (s *session) writeMetrics(path string) error {
	data, mimeType, err := EncodeMetrics(s.metrics.registry)
	if err != nil {
		return newError(KindCapture, "metrics", err)
	}

	return s.writeCompressed(Artifact{Rel: RelMetrics, MimeType: mimeType, Path: path}, data)
}

// writeCompressed encodes data according to the artifact file extension, e.g. traffic.har.zst.
func (s *session) writeCompressed(a Artifact, data []byte) error {
	compression := CompressionFor(a.Path)
	encoded, err := compress(data, compression)
	if err != nil {
		return newError(KindIO, a.Rel, err)
	}

	if compression != Identity {
		a.Encoding = string(compression)
	}
	return s.write(a, encoded)
}

func (s *session) write(a Artifact, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return newError(KindIO, a.Rel, err)
	}
	if err := os.WriteFile(a.Path, data, 0o644); err != nil {
		return newError(KindIO, a.Rel, err)
	}

	a.Size = len(data)
	s.metrics.artifact(a)
	s.result.Artifacts = append(s.result.Artifacts, a)
	level.Info(s.logger).Log("msg", "saved", "rel", a.Rel, "path", a.Path, "size", a.Size)

	return nil
}

// close runs on a context detached from ctx cancellation so the browser is released on interrupt too.
func (s *session) close(ctx context.Context) error {
	defer s.metrics.observe("close")()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CloseTimeout)
	defer cancel()

	return s.browser.Close(closeCtx)
}
