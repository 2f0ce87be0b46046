package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const DefaultPDFMargin = `{"top":"0px","left":"0px","bottom":"0px","right":"0px"}`

const (
	MinPDFScale = 0.1
	MaxPDFScale = 2.0
)

// PaperFormat is a named page size, in inches.
type PaperFormat struct {
	Name   string
	Width  float64
	Height float64
}

var paperFormats = map[string]PaperFormat{
	"letter":  {Name: "Letter", Width: 8.5, Height: 11},
	"legal":   {Name: "Legal", Width: 8.5, Height: 14},
	"tabloid": {Name: "Tabloid", Width: 11, Height: 17},
	"ledger":  {Name: "Ledger", Width: 17, Height: 11},
	"a0":      {Name: "A0", Width: 33.1, Height: 46.8},
	"a1":      {Name: "A1", Width: 23.4, Height: 33.1},
	"a2":      {Name: "A2", Width: 16.54, Height: 23.4},
	"a3":      {Name: "A3", Width: 11.7, Height: 16.54},
	"a4":      {Name: "A4", Width: 8.27, Height: 11.7},
	"a5":      {Name: "A5", Width: 5.83, Height: 8.27},
	"a6":      {Name: "A6", Width: 4.13, Height: 5.83},
}

// LookupPaperFormat finds a paper format by its case-insensitive name.
func LookupPaperFormat(name string) (PaperFormat, bool) {
	f, ok := paperFormats[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

func PaperFormatNames() []string {
	names := make([]string, 0, len(paperFormats))
	for _, f := range paperFormats {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// Margin of a PDF page, in inches.
type Margin struct {
	Top    float64 `json:"top" yaml:"top"`
	Left   float64 `json:"left" yaml:"left"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Right  float64 `json:"right" yaml:"right"`
}

// ParseMargin decodes a JSON object of CSS lengths, e.g. {"top":"30px","left":"1cm"}.
// Missing sides are zero.
func ParseMargin(data string) (Margin, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	if err := dec.Decode(&raw); err != nil {
		return Margin{}, fmt.Errorf("failed to parse margin JSON: %w", err)
	}
	if raw == nil {
		return Margin{}, fmt.Errorf("margin must be a JSON object")
	}

	var m Margin
	sides := map[string]*float64{
		"top":    &m.Top,
		"left":   &m.Left,
		"bottom": &m.Bottom,
		"right":  &m.Right,
	}

	for key, value := range raw {
		side, ok := sides[key]
		if !ok {
			return Margin{}, fmt.Errorf("unknown margin side %q", key)
		}

		inches, err := parseLength(value)
		if err != nil {
			return Margin{}, fmt.Errorf("margin %q: %w", key, err)
		}
		*side = inches
	}

	return m, nil
}

var unitsPerInch = map[string]float64{
	"px": 96,
	"in": 1,
	"cm": 2.54,
	"mm": 25.4,
}

// parseLength converts a JSON number (pixels) or a CSS length string into inches.
func parseLength(value json.RawMessage) (float64, error) {
	var number float64
	if err := json.Unmarshal(value, &number); err == nil {
		return checkLength(number / unitsPerInch["px"])
	}

	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return 0, fmt.Errorf("expected a number or a string, got %s", value)
	}

	text = strings.ToLower(strings.TrimSpace(text))
	unit := "px"
	if len(text) > 2 {
		if _, known := unitsPerInch[text[len(text)-2:]]; known {
			unit = text[len(text)-2:]
			text = strings.TrimSpace(text[:len(text)-2])
		}
	}

	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", text)
	}

	return checkLength(number / unitsPerInch[unit])
}

func checkLength(inches float64) (float64, error) {
	if inches < 0 || math.IsNaN(inches) || math.IsInf(inches, 0) {
		return 0, fmt.Errorf("length must be a non-negative number")
	}
	return inches, nil
}
