package capture

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sre-norns/glimpse/pkg/grace"
)

// Options is the command line grammar of a capture run.
type Options struct {
	URL      string `arg:"" name:"url" help:"URL of the page to capture"`
	LoginURL string `name:"urlLogin" aliases:"loginUrl" env:"GLIMPSE_URL_LOGIN" help:"URL to navigate to before the target, e.g. to establish a session"`

	Width  int64 `name:"width" default:"1920" env:"GLIMPSE_WIDTH" help:"Viewport width in pixels"`
	Height int64 `name:"height" default:"1080" env:"GLIMPSE_HEIGHT" help:"Viewport height in pixels"`

	OutputDir string `name:"outputDir" default:"." env:"GLIMPSE_OUTPUT_DIR" help:"Directory to write captured files into"`
	Filename  string `name:"filename" default:"screenshot" env:"GLIMPSE_FILENAME" help:"Base name of the captured files, without extension"`
	InputDir  string `name:"inputDir" default:"." env:"GLIMPSE_INPUT_DIR" help:"Directory to resolve --cookiesFile and --headersFile against"`

	UserAgent   string `name:"userAgent" env:"GLIMPSE_USER_AGENT" help:"User agent string to use"`
	Cookies     string `name:"cookies" env:"GLIMPSE_COOKIES" placeholder:"JSON" help:"Cookie object or array of cookie objects"`
	CookiesFile string `name:"cookiesFile" env:"GLIMPSE_COOKIES_FILE" help:"JSON file with cookies, relative to --inputDir"`
	Headers     string `name:"headers" env:"GLIMPSE_HEADERS" placeholder:"JSON" help:"Object of extra HTTP headers"`
	HeadersFile string `name:"headersFile" env:"GLIMPSE_HEADERS_FILE" help:"JSON file with extra HTTP headers, relative to --inputDir"`

	Delay     int64  `name:"delay" default:"0" env:"GLIMPSE_DELAY" help:"Milliseconds to wait after the page is loaded"`
	Timeout   int64  `name:"timeout" default:"30000" env:"GLIMPSE_TIMEOUT" help:"Navigation timeout in milliseconds, 0 disables it"`
	WaitUntil string `name:"waitUntil" default:"load" enum:"${wait_conditions}" env:"GLIMPSE_WAIT_UNTIL" help:"When to consider navigation complete: ${enum}"`

	Format   string `name:"format" default:"png" enum:"${image_formats}" env:"GLIMPSE_FORMAT" help:"Screenshot image format: ${enum}"`
	FullPage bool   `name:"fullPage" env:"GLIMPSE_FULL_PAGE" help:"Capture the full scrollable page"`

	PDF          bool    `name:"pdf" env:"GLIMPSE_PDF" help:"Also render the page as a PDF"`
	PDFFormat    string  `name:"pdfFormat" default:"A4" env:"GLIMPSE_PDF_FORMAT" help:"PDF paper format: ${paper_formats}"`
	PDFLandscape bool    `name:"pdfLandscape" env:"GLIMPSE_PDF_LANDSCAPE" help:"Print the PDF in landscape orientation"`
	PDFMargin    string  `name:"pdfMargin" default:"${default_pdf_margin}" env:"GLIMPSE_PDF_MARGIN" placeholder:"JSON" help:"PDF margins as CSS lengths"`
	PDFScale     float64 `name:"pdfScale" default:"1" env:"GLIMPSE_PDF_SCALE" help:"PDF rendering scale, between 0.1 and 2"`

	HARFile     string `name:"harFile" env:"GLIMPSE_HAR_FILE" help:"Record network traffic as HAR into this file under --outputDir"`
	MetricsFile string `name:"metricsFile" env:"GLIMPSE_METRICS_FILE" help:"Write run metrics in Prometheus text format into this file under --outputDir"`

	BrowserURL string `name:"browserUrl" env:"GLIMPSE_BROWSER_URL" help:"DevTools endpoint of a running browser to use instead of launching one"`
	ChromePath string `name:"chromePath" env:"GLIMPSE_CHROME_PATH,CHROME_PATH" help:"Browser executable to launch"`
}

// Vars used to interpolate defaults and enumerations of Options.
func Vars() kong.Vars {
	waits := make([]string, 0, len(WaitConditions))
	for _, w := range WaitConditions {
		waits = append(waits, string(w))
	}

	formats := make([]string, 0, len(ImageFormats))
	for _, f := range ImageFormats {
		formats = append(formats, string(f))
	}

	return kong.Vars{
		"default_pdf_margin": DefaultPDFMargin,
		"wait_conditions":    strings.Join(waits, ","),
		"image_formats":      strings.Join(formats, ","),
		"paper_formats":      strings.Join(PaperFormatNames(), ", "),
	}
}

func validationError(op string, err error) error {
	return newError(KindValidation, op, err)
}

func checkAbsoluteURL(op, value string) error {
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || (u.Host == "" && u.Scheme != "file" && u.Scheme != "data" && u.Scheme != "about") {
		return validationError(op, grace.Expectation("an absolute URL", value, "include the scheme, e.g. https://example.com"))
	}
	return nil
}

// Validate checks the values kong cannot check with struct tags.
func (o *Options) Validate() error {
	if o.URL == "" {
		return validationError("url", grace.RaiseError("a URL to capture", "nothing", "pass the URL as the first argument"))
	}
	if err := checkAbsoluteURL("url", o.URL); err != nil {
		return err
	}
	if o.LoginURL != "" {
		if err := checkAbsoluteURL("--urlLogin", o.LoginURL); err != nil {
			return err
		}
	}

	if o.Width <= 0 {
		return validationError("--width", grace.RaiseError("a positive width", fmt.Sprint(o.Width), ""))
	}
	if o.Height <= 0 {
		return validationError("--height", grace.RaiseError("a positive height", fmt.Sprint(o.Height), ""))
	}
	if o.Delay < 0 {
		return validationError("--delay", grace.RaiseError("a non-negative delay", fmt.Sprint(o.Delay), ""))
	}
	if o.Timeout < 0 {
		return validationError("--timeout", grace.RaiseError("a non-negative timeout", fmt.Sprint(o.Timeout), "use 0 to disable the timeout"))
	}

	if o.Filename == "" || strings.ContainsAny(o.Filename, `/\`) || o.Filename == "." || o.Filename == ".." {
		return validationError("--filename", grace.Expectation("a bare file name", o.Filename, "use --outputDir to choose the directory"))
	}

	if !validWaitCondition(WaitCondition(o.WaitUntil)) {
		return validationError("--waitUntil", grace.Expectation("one of "+Vars()["wait_conditions"], o.WaitUntil, ""))
	}
	if !validImageFormat(ImageFormat(o.Format)) {
		return validationError("--format", grace.Expectation("one of "+Vars()["image_formats"], o.Format, ""))
	}

	// NaN fails both comparisons
	if !(o.PDFScale >= MinPDFScale && o.PDFScale <= MaxPDFScale) {
		return validationError("--pdfScale", grace.RaiseError(fmt.Sprintf("a value in [%v, %v]", MinPDFScale, MaxPDFScale), fmt.Sprint(o.PDFScale), ""))
	}
	if _, ok := LookupPaperFormat(o.PDFFormat); !ok {
		return validationError("--pdfFormat", grace.Expectation("one of "+Vars()["paper_formats"], o.PDFFormat, ""))
	}
	if _, err := ParseMargin(o.PDFMargin); err != nil {
		return newError(KindConfigParse, "--pdfMargin", err)
	}

	if o.Cookies != "" {
		if _, err := decodeObjects([]byte(o.Cookies)); err != nil {
			return newError(KindConfigParse, "--cookies", err)
		}
	}
	if o.Headers != "" {
		if _, err := decodeObjects([]byte(o.Headers)); err != nil {
			return newError(KindConfigParse, "--headers", err)
		}
	}

	if o.BrowserURL != "" {
		if err := checkAbsoluteURL("--browserUrl", o.BrowserURL); err != nil {
			return err
		}
	}

	return nil
}

func validWaitCondition(w WaitCondition) bool {
	for _, known := range WaitConditions {
		if w == known {
			return true
		}
	}
	return false
}

func validImageFormat(f ImageFormat) bool {
	for _, known := range ImageFormats {
		if f == known {
			return true
		}
	}
	return false
}

// Resolve validates the options and builds the Config of the run.
func (o *Options) Resolve() (*Config, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		URL:       o.URL,
		LoginURL:  o.LoginURL,
		Viewport:  Viewport{Width: o.Width, Height: o.Height},
		OutputDir: o.OutputDir,
		Filename:  o.Filename,
		InputDir:  o.InputDir,
		UserAgent: o.UserAgent,
		Delay:     time.Duration(o.Delay) * time.Millisecond,
		Timeout:   time.Duration(o.Timeout) * time.Millisecond,
		WaitUntil: WaitCondition(o.WaitUntil),
		Format:    ImageFormat(o.Format),
		FullPage:  o.FullPage,
		Engine: EngineOptions{
			BrowserURL: o.BrowserURL,
			ExecPath:   o.ChromePath,
		},
		HARFile:     o.HARFile,
		MetricsFile: o.MetricsFile,
	}

	if o.Cookies != "" {
		cfg.Cookies = append(cfg.Cookies, InlineSource(o.Cookies))
	}
	if o.CookiesFile != "" {
		cfg.Cookies = append(cfg.Cookies, FileSource{Dir: o.InputDir, Path: o.CookiesFile})
	}
	if o.Headers != "" {
		cfg.Headers = append(cfg.Headers, InlineSource(o.Headers))
	}
	if o.HeadersFile != "" {
		cfg.Headers = append(cfg.Headers, FileSource{Dir: o.InputDir, Path: o.HeadersFile})
	}

	if o.PDF {
		paper, _ := LookupPaperFormat(o.PDFFormat)
		margin, _ := ParseMargin(o.PDFMargin)
		cfg.PDF = &PDFOptions{
			Paper:     paper,
			Landscape: o.PDFLandscape,
			Margin:    margin,
			Scale:     o.PDFScale,
		}
	}

	return cfg, nil
}

// ParseArgs parses command line arguments into a Config, without running any hooks or exiting.
func ParseArgs(args []string, options ...kong.Option) (*Config, error) {
	var opts Options
	parser, err := kong.New(&opts, append([]kong.Option{Vars()}, options...)...)
	if err != nil {
		return nil, err
	}

	if _, err := parser.Parse(args); err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, validationError("args", err)
	}

	return opts.Resolve()
}
