package chrome

import (
	"context"
	"math"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/sre-norns/glimpse/pkg/capture"
)

func (s *Session) SetUserAgent(ctx context.Context, userAgent string) error {
	return s.run(ctx, emulation.SetUserAgentOverride(userAgent))
}

func sameSite(value string) network.CookieSameSite {
	switch strings.ToLower(value) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}

func cookieParams(cookies []capture.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      c.URL,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: sameSite(c.SameSite),
		}
		if c.Expires != nil {
			expires := cdp.TimeSinceEpoch(*c.Expires)
			p.Expires = &expires
		}

		params = append(params, p)
	}

	return params
}

func (s *Session) SetCookies(ctx context.Context, cookies []capture.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	return s.run(ctx, network.SetCookies(cookieParams(cookies)))
}

func (s *Session) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	h := make(network.Headers, len(headers))
	for k, v := range headers {
		h[k] = v
	}

	return s.run(ctx, network.SetExtraHTTPHeaders(h))
}

func screenshotFormat(f capture.ImageFormat) page.CaptureScreenshotFormat {
	switch f {
	case capture.FormatJPEG:
		return page.CaptureScreenshotFormatJpeg
	case capture.FormatWebP:
		return page.CaptureScreenshotFormatWebp
	default:
		return page.CaptureScreenshotFormatPng
	}
}

func (s *Session) Screenshot(ctx context.Context, opts capture.ScreenshotOptions) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := page.CaptureScreenshot().
			WithFormat(screenshotFormat(opts.Format)).
			WithFromSurface(true)

		if opts.FullPage {
			_, _, _, _, _, contentSize, err := page.GetLayoutMetrics().Do(ctx)
			if err != nil {
				return err
			}

			params = params.
				WithCaptureBeyondViewport(true).
				WithClip(&page.Viewport{
					X:      0,
					Y:      0,
					Width:  math.Ceil(contentSize.Width),
					Height: math.Ceil(contentSize.Height),
					Scale:  1,
				})
		}

		var err error
		buf, err = params.Do(ctx)
		return err
	}))

	return buf, err
}

func (s *Session) PDF(ctx context.Context, opts capture.PDFOptions) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithLandscape(opts.Landscape).
			WithPaperWidth(opts.Paper.Width).
			WithPaperHeight(opts.Paper.Height).
			WithMarginTop(opts.Margin.Top).
			WithMarginBottom(opts.Margin.Bottom).
			WithMarginLeft(opts.Margin.Left).
			WithMarginRight(opts.Margin.Right).
			WithScale(opts.Scale).
			Do(ctx)
		return err
	}))

	return buf, err
}
