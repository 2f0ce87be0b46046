package capture

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/sre-norns/wyrd/pkg/manifest"
	"golang.org/x/mod/semver"
)

const (
	LabelOS           = "glimpse.os"
	LabelArch         = "glimpse.arch"
	LabelBuildVersion = "glimpse.version"

	LabelBrowserProduct      = "browser.product"
	LabelBrowserVersion      = "browser.version"
	LabelBrowserVersionMajor = LabelBrowserVersion + ".major"

	LabelWaitUntil = "capture.waitUntil"
	LabelFormat    = "capture.format"
)

func RuntimeLabels() manifest.Labels {
	labels := manifest.Labels{
		LabelArch: runtime.GOARCH,
		LabelOS:   runtime.GOOS,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		labels[LabelBuildVersion] = bi.Main.Version
	}

	return labels
}

// BrowserLabels splits a browser product string, e.g. "HeadlessChrome/126.0.6478.126", into labels.
func BrowserLabels(product string) manifest.Labels {
	product = strings.TrimSpace(product)
	if product == "" {
		return manifest.Labels{}
	}

	name, version, found := strings.Cut(product, "/")
	if !found {
		return manifest.Labels{LabelBrowserProduct: name}
	}

	labels := manifest.Labels{
		LabelBrowserProduct: name,
		LabelBrowserVersion: version,
	}

	// Chrome versions have four parts, semver wants at most three
	parts := strings.SplitN(version, ".", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	if major := semver.Major("v" + strings.Join(parts, ".")); major != "" {
		labels[LabelBrowserVersionMajor] = major[1:]
	}

	return labels
}

func configLabels(cfg *Config) manifest.Labels {
	return manifest.Labels{
		LabelWaitUntil: string(cfg.WaitUntil),
		LabelFormat:    string(cfg.Format),
	}
}
