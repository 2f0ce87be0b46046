package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/sre-norns/glimpse/pkg/capture"
)

type reportFormat string

const (
	reportNone  reportFormat = "none"
	reportYAML  reportFormat = "yaml"
	reportYML   reportFormat = "yml"
	reportJSON  reportFormat = "json"
	reportTable reportFormat = "table"
)

type formatter func(io.Writer, capture.Result) error

func noneFormatter(io.Writer, capture.Result) error {
	return nil
}

func yamlFormatter(w io.Writer, result capture.Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func jsonFormatter(w io.Writer, result capture.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "\t")

	return encoder.Encode(result)
}

func tableFormatter(w io.Writer, result capture.Result) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s: %s", result.URL, result.Status)

	t.AppendHeader(table.Row{"Rel", "MIME type", "Path", "Size"})
	for _, a := range result.Artifacts {
		t.AppendRow(table.Row{a.Rel, a.MimeType, a.Path, a.Size})
	}

	keys := make([]string, 0, len(result.Labels))
	for k := range result.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > 0 {
		t.AppendSeparator()
		for _, k := range keys {
			t.AppendRow(table.Row{"label", k, result.Labels[k], ""})
		}
	}

	footer := table.Row{"duration", result.Duration.String(), "state", string(result.LastState)}
	if result.Error != "" {
		footer = table.Row{"error", result.Error, "state", string(result.LastState)}
	}
	t.AppendFooter(footer)

	t.Render()
	return nil
}

func getFormatter(format reportFormat) (formatter, error) {
	switch format {
	case reportNone, "":
		return noneFormatter, nil
	case reportYAML, reportYML:
		return yamlFormatter, nil
	case reportJSON:
		return jsonFormatter, nil
	case reportTable:
		return tableFormatter, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
