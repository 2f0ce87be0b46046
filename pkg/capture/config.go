package capture

import (
	"path/filepath"
	"time"
)

// WaitCondition determines when a navigation is considered complete.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	// WaitNetworkIdle0 completes when there are no network connections for at least 500 ms.
	WaitNetworkIdle0 WaitCondition = "networkidle0"
	// WaitNetworkIdle2 completes when there are no more than 2 network connections for at least 500 ms.
	WaitNetworkIdle2 WaitCondition = "networkidle2"
)

var WaitConditions = []WaitCondition{WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle0, WaitNetworkIdle2}

// ImageFormat of the produced screenshot.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
	FormatWebP ImageFormat = "webp"
)

var ImageFormats = []ImageFormat{FormatPNG, FormatJPEG, FormatWebP}

func (f ImageFormat) MimeType() string {
	return "image/" + string(f)
}

type Viewport struct {
	Width  int64 `json:"width" yaml:"width"`
	Height int64 `json:"height" yaml:"height"`
}

// EngineOptions select how the browser is obtained.
type EngineOptions struct {
	// BrowserURL of a running browser DevTools endpoint. A new browser is launched when empty.
	BrowserURL string
	// ExecPath of the browser binary. chromedp looks for a well-known binary when empty.
	ExecPath string
}

// PDFOptions are present in the Config only when a PDF is requested.
type PDFOptions struct {
	Paper     PaperFormat
	Landscape bool
	Margin    Margin
	Scale     float64
}

type ScreenshotOptions struct {
	Format   ImageFormat
	FullPage bool
}

// Config is the resolved, immutable description of one capture run.
type Config struct {
	URL      string
	LoginURL string

	Viewport Viewport

	OutputDir string
	Filename  string
	InputDir  string

	UserAgent string
	Cookies   []Source
	Headers   []Source

	Delay     time.Duration
	Timeout   time.Duration
	WaitUntil WaitCondition

	Format   ImageFormat
	FullPage bool

	// PDF is nil unless a PDF was requested
	PDF *PDFOptions

	Engine EngineOptions

	HARFile     string
	MetricsFile string
}

func (c *Config) ScreenshotPath() string {
	return filepath.Join(c.OutputDir, c.Filename+"."+string(c.Format))
}

func (c *Config) PDFPath() string {
	return filepath.Join(c.OutputDir, c.Filename+".pdf")
}

func (c *Config) HARPath() string {
	if c.HARFile == "" {
		return ""
	}
	return filepath.Join(c.OutputDir, c.HARFile)
}

func (c *Config) MetricsPath() string {
	if c.MetricsFile == "" {
		return ""
	}
	return filepath.Join(c.OutputDir, c.MetricsFile)
}

func (c *Config) ScreenshotOptions() ScreenshotOptions {
	return ScreenshotOptions{
		Format:   c.Format,
		FullPage: c.FullPage,
	}
}
