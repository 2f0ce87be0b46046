package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Source of cookies or headers: either inline JSON or a JSON file.
type Source interface {
	// Load returns the raw JSON document.
	Load() ([]byte, error)
	fmt.Stringer
}

// InlineSource is JSON text given on the command line.
type InlineSource string

func (s InlineSource) Load() ([]byte, error) {
	return []byte(s), nil
}

func (s InlineSource) String() string {
	return "inline"
}

// FileSource is a JSON file, relative to Dir unless Path is absolute.
type FileSource struct {
	Dir  string
	Path string
}

func (s FileSource) Location() string {
	if filepath.IsAbs(s.Path) {
		return s.Path
	}
	return filepath.Join(s.Dir, s.Path)
}

func (s FileSource) Load() ([]byte, error) {
	return os.ReadFile(s.Location())
}

func (s FileSource) String() string {
	return s.Location()
}

// Cookie to be set in the browser before navigation.
type Cookie struct {
	Name     string     `json:"name" yaml:"name"`
	Value    string     `json:"value" yaml:"value"`
	URL      string     `json:"url,omitempty" yaml:"url,omitempty"`
	Domain   string     `json:"domain,omitempty" yaml:"domain,omitempty"`
	Path     string     `json:"path,omitempty" yaml:"path,omitempty"`
	Secure   bool       `json:"secure,omitempty" yaml:"secure,omitempty"`
	HTTPOnly bool       `json:"httpOnly,omitempty" yaml:"httpOnly,omitempty"`
	SameSite string     `json:"sameSite,omitempty" yaml:"sameSite,omitempty"`
	Expires  *time.Time `json:"-" yaml:"expires,omitempty"`
}

// UnmarshalJSON accepts `expires` as seconds since the epoch.
func (c *Cookie) UnmarshalJSON(data []byte) error {
	type plain Cookie
	var aux struct {
		plain
		Expires *float64 `json:"expires,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*c = Cookie(aux.plain)
	if aux.Expires != nil && *aux.Expires > 0 {
		sec := int64(*aux.Expires)
		t := time.Unix(sec, int64((*aux.Expires-float64(sec))*float64(time.Second))).UTC()
		c.Expires = &t
	}

	return nil
}

// decodeObjects decodes a single JSON object or an array of objects.
func decodeObjects(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	var items []json.RawMessage
	switch trimmed[0] {
	case '{':
		items = []json.RawMessage{trimmed}
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("expected a JSON object or an array of objects")
	}

	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("item %d: expected a JSON object", i)
		}
		if !json.Valid(item) {
			return nil, fmt.Errorf("item %d: invalid JSON", i)
		}
	}

	return items, nil
}

func loadSource(op string, src Source) ([]json.RawMessage, error) {
	data, err := src.Load()
	if err != nil {
		return nil, newError(KindIO, op, err)
	}

	items, err := decodeObjects(data)
	if err != nil {
		return nil, newError(KindConfigParse, op, fmt.Errorf("%v: %w", src, err))
	}

	return items, nil
}

// ResolveCookies reads every source in order and returns the concatenated cookies.
// A cookie with neither url nor domain is bound to targetURL.
func ResolveCookies(sources []Source, targetURL string) ([]Cookie, error) {
	var cookies []Cookie
	for _, src := range sources {
		items, err := loadSource("cookies", src)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			var c Cookie
			if err := json.Unmarshal(item, &c); err != nil {
				return nil, newError(KindConfigParse, "cookies", fmt.Errorf("%v: %w", src, err))
			}
			if c.Name == "" {
				return nil, newError(KindConfigParse, "cookies", fmt.Errorf("%v: cookie without a name", src))
			}
			if c.URL == "" && c.Domain == "" {
				c.URL = targetURL
			}
			cookies = append(cookies, c)
		}
	}

	return cookies, nil
}

// ResolveHeaders merges every header object from the sources in order; later keys win.
func ResolveHeaders(sources []Source) (map[string]string, error) {
	headers := map[string]string{}
	for _, src := range sources {
		items, err := loadSource("headers", src)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			var values map[string]any
			if err := json.Unmarshal(item, &values); err != nil {
				return nil, newError(KindConfigParse, "headers", fmt.Errorf("%v: %w", src, err))
			}

			for k, v := range values {
				s, ok := v.(string)
				if !ok {
					return nil, newError(KindConfigParse, "headers", fmt.Errorf("%v: value of %q is not a string", src, k))
				}
				headers[k] = s
			}
		}
	}

	return headers, nil
}
