// Package chrome drives a Chromium browser over the DevTools protocol.
package chrome

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/sre-norns/glimpse/pkg/capture"
)

// Session is a single browser tab, implementing capture.Browser.
type Session struct {
	logger log.Logger
	remote bool

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	lifecycle *lifecycle

	harMu sync.Mutex
	har   *harRecorder

	closeOnce sync.Once
	closeErr  error
}

var (
	_ capture.Browser     = (*Session)(nil)
	_ capture.HARExporter = (*Session)(nil)
)

func allocatorOptions(opts capture.LaunchOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(int(opts.Viewport.Width), int(opts.Viewport.Height)),
	)

	if opts.Engine.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.Engine.ExecPath))
	}

	return allocOpts
}

func logf(logger log.Logger) func(string, ...any) {
	return func(format string, args ...any) {
		logger.Log("msg", fmt.Sprintf(format, args...))
	}
}

// Launch starts a new browser, or connects to the one at opts.Engine.BrowserURL, and opens a tab.
// The browser lives until Close is called, independently of ctx.
func Launch(ctx context.Context, opts capture.LaunchOptions, logger log.Logger) (capture.Browser, error) {
	return launch(ctx, opts, logger)
}

func launch(ctx context.Context, opts capture.LaunchOptions, logger log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "component", "chrome")

	s := &Session{
		logger:    logger,
		remote:    opts.Engine.BrowserURL != "",
		lifecycle: newLifecycle(),
	}

	parent := context.WithoutCancel(ctx)
	var allocCtx context.Context
	if s.remote {
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(parent, opts.Engine.BrowserURL)
	} else {
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(parent, allocatorOptions(opts)...)
	}

	s.ctx, s.cancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logf(level.Debug(logger))),
		chromedp.WithErrorf(logf(level.Warn(logger))),
	)

	// An empty run allocates the browser and the tab
	if err := s.run(ctx); err != nil {
		s.cancel()
		s.allocCancel()
		return nil, err
	}

	chromedp.ListenTarget(s.ctx, s.onEvent)

	if err := s.run(ctx,
		network.Enable(),
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(opts.Viewport.Width, opts.Viewport.Height),
	); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	return s, nil
}

// run executes actions in the tab, giving up as soon as ctx is done.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return err
}

func (s *Session) onEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventLifecycleEvent:
		s.lifecycle.record(e.LoaderID, e.Name)
	}

	s.harMu.Lock()
	recorder := s.har
	s.harMu.Unlock()
	if recorder != nil {
		recorder.handle(ev)
	}
}

func (s *Session) Version(ctx context.Context) (string, error) {
	var product string
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		_, product, _, _, _, err = browser.GetVersion().Do(ctx)
		return err
	}))

	return product, err
}

// Close shuts the browser down. A browser reached through a DevTools URL is only disconnected from.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		defer s.allocCancel()
		defer s.cancel()

		if s.remote {
			return
		}

		done := make(chan error, 1)
		go func() {
			done <- chromedp.Cancel(s.ctx)
		}()

		select {
		case err := <-done:
			s.closeErr = err
		case <-ctx.Done():
			s.closeErr = ctx.Err()
		}
	})

	return s.closeErr
}
