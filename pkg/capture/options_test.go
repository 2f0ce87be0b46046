package capture_test

import (
	"testing"
	"time"

	"github.com/sre-norns/glimpse/pkg/capture"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := capture.ParseArgs([]string{"https://example.com"})
	require.NoError(t, err)

	require.Equal(t, "https://example.com", cfg.URL)
	require.Equal(t, capture.Viewport{Width: 1920, Height: 1080}, cfg.Viewport)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, time.Duration(0), cfg.Delay)
	require.Equal(t, capture.WaitLoad, cfg.WaitUntil)
	require.Equal(t, capture.FormatPNG, cfg.Format)
	require.False(t, cfg.FullPage)
	require.Nil(t, cfg.PDF)
	require.Empty(t, cfg.Cookies)
	require.Empty(t, cfg.Headers)
	require.Equal(t, "screenshot.png", cfg.ScreenshotPath())
	require.Empty(t, cfg.HARPath())
	require.Empty(t, cfg.MetricsPath())
}

func TestParseArgs(t *testing.T) {
	testCases := map[string]struct {
		given  []string
		expect func(t *testing.T, cfg *capture.Config)
	}{
		"viewport-and-filename": {
			given: []string{"--width=800", "--height=600", "--filename=out", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Equal(t, capture.Viewport{Width: 800, Height: 600}, cfg.Viewport)
				require.Equal(t, "out.png", cfg.ScreenshotPath())
				require.Equal(t, capture.WaitLoad, cfg.WaitUntil)
			},
		},
		"pdf-letter": {
			given: []string{"--pdf", "--pdfFormat=Letter", "--pdfScale=0.5", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.NotNil(t, cfg.PDF)
				require.Equal(t, "Letter", cfg.PDF.Paper.Name)
				require.Equal(t, 8.5, cfg.PDF.Paper.Width)
				require.Equal(t, 11.0, cfg.PDF.Paper.Height)
				require.Equal(t, 0.5, cfg.PDF.Scale)
				require.False(t, cfg.PDF.Landscape)
				require.Equal(t, capture.Margin{}, cfg.PDF.Margin)
				require.Equal(t, "screenshot.png", cfg.ScreenshotPath())
				require.Equal(t, "screenshot.pdf", cfg.PDFPath())
			},
		},
		"pdf-options-ignored-without-pdf": {
			given: []string{"--pdfFormat=Letter", "--pdfLandscape", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Nil(t, cfg.PDF)
			},
		},
		"pdf-margin-and-landscape": {
			given: []string{"--pdf", "--pdfLandscape", `--pdfMargin={"top":"96px","left":"1cm"}`, "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.True(t, cfg.PDF.Landscape)
				require.Equal(t, 1.0, cfg.PDF.Margin.Top)
				require.InDelta(t, 1/2.54, cfg.PDF.Margin.Left, 1e-9)
				require.Zero(t, cfg.PDF.Margin.Bottom)
			},
		},
		"timing-and-wait": {
			given: []string{"--delay=1500", "--timeout=0", "--waitUntil=networkidle2", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Equal(t, 1500*time.Millisecond, cfg.Delay)
				require.Zero(t, cfg.Timeout)
				require.Equal(t, capture.WaitNetworkIdle2, cfg.WaitUntil)
			},
		},
		"format-and-full-page": {
			given: []string{"--format=jpeg", "--fullPage", "--outputDir=shots", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Equal(t, capture.FormatJPEG, cfg.Format)
				require.True(t, cfg.FullPage)
				require.Equal(t, "shots/screenshot.jpeg", cfg.ScreenshotPath())
				require.Equal(t, capture.ScreenshotOptions{Format: capture.FormatJPEG, FullPage: true}, cfg.ScreenshotOptions())
			},
		},
		"login-url-alias": {
			given: []string{"--loginUrl=https://example.com/login", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Equal(t, "https://example.com/login", cfg.LoginURL)
			},
		},
		"sources-inline-first": {
			given: []string{
				`--cookies={"name":"a","value":"1"}`, "--cookiesFile=cookies.json",
				`--headers={"X-A":"1"}`, "--headersFile=headers.json",
				"--inputDir=fixtures", "https://example.com",
			},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Equal(t, []capture.Source{
					capture.InlineSource(`{"name":"a","value":"1"}`),
					capture.FileSource{Dir: "fixtures", Path: "cookies.json"},
				}, cfg.Cookies)
				require.Equal(t, []capture.Source{
					capture.InlineSource(`{"X-A":"1"}`),
					capture.FileSource{Dir: "fixtures", Path: "headers.json"},
				}, cfg.Headers)
			},
		},
		"engine": {
			given: []string{"--browserUrl=ws://127.0.0.1:9222/devtools/browser/1", "--chromePath=/usr/bin/chromium", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Equal(t, capture.EngineOptions{
					BrowserURL: "ws://127.0.0.1:9222/devtools/browser/1",
					ExecPath:   "/usr/bin/chromium",
				}, cfg.Engine)
			},
		},
		"extra-outputs": {
			given: []string{"--outputDir=out", "--harFile=run.har", "--metricsFile=run.prom", "https://example.com"},
			expect: func(t *testing.T, cfg *capture.Config) {
				require.Equal(t, "out/run.har", cfg.HARPath())
				require.Equal(t, "out/run.prom", cfg.MetricsPath())
			},
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			cfg, err := capture.ParseArgs(test.given)
			require.NoError(t, err)
			test.expect(t, cfg)
		})
	}
}

func TestParseArgsEnvironment(t *testing.T) {
	t.Setenv("GLIMPSE_USER_AGENT", "glimpse-test")
	t.Setenv("GLIMPSE_WIDTH", "640")

	cfg, err := capture.ParseArgs([]string{"--width=320", "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "glimpse-test", cfg.UserAgent)
	require.Equal(t, int64(320), cfg.Viewport.Width)
}

func TestParseArgsErrors(t *testing.T) {
	testCases := map[string]struct {
		given  []string
		expect error
	}{
		"missing-url":          {given: []string{}, expect: capture.ErrValidation},
		"relative-url":         {given: []string{"example.com"}, expect: capture.ErrValidation},
		"bad-login-url":        {given: []string{"--urlLogin=/login", "https://example.com"}, expect: capture.ErrValidation},
		"zero-width":           {given: []string{"--width=0", "https://example.com"}, expect: capture.ErrValidation},
		"negative-delay":       {given: []string{"--delay=-1", "https://example.com"}, expect: capture.ErrValidation},
		"negative-timeout":     {given: []string{"--timeout=-5", "https://example.com"}, expect: capture.ErrValidation},
		"unknown-wait":         {given: []string{"--waitUntil=idle", "https://example.com"}, expect: capture.ErrValidation},
		"unknown-format":       {given: []string{"--format=gif", "https://example.com"}, expect: capture.ErrValidation},
		"scale-too-large":      {given: []string{"--pdfScale=5", "https://example.com"}, expect: capture.ErrValidation},
		"scale-too-small":      {given: []string{"--pdfScale=0.05", "https://example.com"}, expect: capture.ErrValidation},
		"scale-nan":            {given: []string{"--pdf", "--pdfScale=NaN", "https://example.com"}, expect: capture.ErrValidation},
		"scale-infinite":       {given: []string{"--pdf", "--pdfScale=+Inf", "https://example.com"}, expect: capture.ErrValidation},
		"unknown-paper":        {given: []string{"--pdfFormat=B5", "https://example.com"}, expect: capture.ErrValidation},
		"filename-with-path":   {given: []string{"--filename=a/b", "https://example.com"}, expect: capture.ErrValidation},
		"malformed-cookies":    {given: []string{`--cookies={"name":`, "https://example.com"}, expect: capture.ErrConfigParse},
		"cookies-not-objects":  {given: []string{`--cookies=[1,2]`, "https://example.com"}, expect: capture.ErrConfigParse},
		"malformed-headers":    {given: []string{`--headers=not json`, "https://example.com"}, expect: capture.ErrConfigParse},
		"malformed-margin":     {given: []string{`--pdfMargin={"top":`, "https://example.com"}, expect: capture.ErrConfigParse},
		"margin-unknown-unit":  {given: []string{`--pdfMargin={"top":"10pt"}`, "https://example.com"}, expect: capture.ErrConfigParse},
		"margin-negative":      {given: []string{`--pdfMargin={"top":"-1px"}`, "https://example.com"}, expect: capture.ErrConfigParse},
		"relative-browser-url": {given: []string{"--browserUrl=localhost", "https://example.com"}, expect: capture.ErrValidation},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			cfg, err := capture.ParseArgs(test.given)
			require.Error(t, err)
			require.ErrorIs(t, err, test.expect)
			require.Nil(t, cfg)

			var ce *capture.Error
			require.ErrorAs(t, err, &ce)
			require.True(t, ce.UsageError())
		})
	}
}
