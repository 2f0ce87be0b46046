package chrome

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-kit/log/level"

	"github.com/sre-norns/glimpse/pkg/capture"
)

// Page lifecycle event names, as reported by Page.lifecycleEvent
const (
	eventLoad              = "load"
	eventDOMContentLoaded  = "DOMContentLoaded"
	eventNetworkIdle       = "networkIdle"
	eventNetworkAlmostIdle = "networkAlmostIdle"
)

func lifecycleEvent(w capture.WaitCondition) string {
	switch w {
	case capture.WaitDOMContentLoaded:
		return eventDOMContentLoaded
	case capture.WaitNetworkIdle0:
		return eventNetworkIdle
	case capture.WaitNetworkIdle2:
		return eventNetworkAlmostIdle
	default:
		return eventLoad
	}
}

// lifecycle remembers which lifecycle events each document loader has fired.
type lifecycle struct {
	mu     sync.Mutex
	events map[cdp.LoaderID]map[string]struct{}
	notify chan struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		events: make(map[cdp.LoaderID]map[string]struct{}),
		notify: make(chan struct{}, 1),
	}
}

func (l *lifecycle) record(loader cdp.LoaderID, name string) {
	l.mu.Lock()
	fired, ok := l.events[loader]
	if !ok {
		fired = make(map[string]struct{})
		l.events[loader] = fired
	}
	fired[name] = struct{}{}
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *lifecycle) fired(loader cdp.LoaderID, name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.events[loader][name]
	return ok
}

// wait blocks until the loader fires the named event or ctx is done.
func (l *lifecycle) wait(ctx context.Context, loader cdp.LoaderID, name string) error {
	for !l.fired(loader, name) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
		}
	}

	return nil
}

func (s *Session) Navigate(ctx context.Context, url string, waitUntil capture.WaitCondition) error {
	var loader cdp.LoaderID
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, loaderID, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return &NavigationError{URL: url, Reason: errorText}
		}

		loader = loaderID
		return nil
	}))
	if err != nil {
		return err
	}

	// Same-document navigations, e.g. to a #fragment, do not create a loader
	if loader == "" {
		level.Debug(s.logger).Log("msg", "same document navigation", "url", url)
		return nil
	}

	return s.lifecycle.wait(ctx, loader, lifecycleEvent(waitUntil))
}

// NavigationError is reported by the browser when a page can not be loaded at all.
type NavigationError struct {
	URL    string
	Reason string
}

func (e *NavigationError) Error() string {
	return "failed to load " + e.URL + ": " + e.Reason
}
