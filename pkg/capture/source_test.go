package capture_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sre-norns/glimpse/pkg/capture"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestResolveCookies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cookies.json", `[
		{"name": "session", "value": "abc", "domain": "example.com", "httpOnly": true},
		{"name": "theme", "value": "dark", "expires": 1700000000, "sameSite": "Lax"}
	]`)

	cookies, err := capture.ResolveCookies([]capture.Source{
		capture.InlineSource(`{"name": "consent", "value": "yes", "url": "https://example.com/", "secure": true}`),
		capture.FileSource{Dir: dir, Path: "cookies.json"},
	}, "https://example.com/page")
	require.NoError(t, err)
	require.Len(t, cookies, 3)

	require.Equal(t, capture.Cookie{Name: "consent", Value: "yes", URL: "https://example.com/", Secure: true}, cookies[0])
	require.Equal(t, capture.Cookie{Name: "session", Value: "abc", Domain: "example.com", HTTPOnly: true}, cookies[1])

	expires := time.Unix(1700000000, 0).UTC()
	require.Equal(t, capture.Cookie{
		Name:     "theme",
		Value:    "dark",
		URL:      "https://example.com/page",
		SameSite: "Lax",
		Expires:  &expires,
	}, cookies[2])
}

func TestResolveCookiesErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"name": "a", `)

	testCases := map[string]struct {
		given  capture.Source
		expect error
	}{
		"missing-file":   {given: capture.FileSource{Dir: dir, Path: "nope.json"}, expect: capture.ErrIO},
		"malformed-file": {given: capture.FileSource{Dir: dir, Path: "broken.json"}, expect: capture.ErrConfigParse},
		"empty":          {given: capture.InlineSource("  "), expect: capture.ErrConfigParse},
		"scalar":         {given: capture.InlineSource(`"session=abc"`), expect: capture.ErrConfigParse},
		"no-name":        {given: capture.InlineSource(`{"value": "abc"}`), expect: capture.ErrConfigParse},
		"wrong-type":     {given: capture.InlineSource(`{"name": "a", "secure": "yes"}`), expect: capture.ErrConfigParse},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			_, err := capture.ResolveCookies([]capture.Source{test.given}, "https://example.com")
			require.ErrorIs(t, err, test.expect)
		})
	}
}

func TestResolveHeaders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "headers.json", `{"X-Env": "staging", "Accept-Language": "fr"}`)

	headers, err := capture.ResolveHeaders([]capture.Source{
		capture.InlineSource(`[{"Accept-Language": "en", "X-Trace": "1"}, {"X-Trace": "2"}]`),
		capture.FileSource{Dir: dir, Path: "headers.json"},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"Accept-Language": "fr",
		"X-Trace":         "2",
		"X-Env":           "staging",
	}, headers)
}

func TestResolveHeadersErrors(t *testing.T) {
	_, err := capture.ResolveHeaders([]capture.Source{capture.InlineSource(`{"X-Count": 1}`)})
	require.ErrorIs(t, err, capture.ErrConfigParse)

	_, err = capture.ResolveHeaders([]capture.Source{capture.FileSource{Dir: t.TempDir(), Path: "headers.json"}})
	require.ErrorIs(t, err, capture.ErrIO)
}

func TestFileSourceLocation(t *testing.T) {
	require.Equal(t, "in/cookies.json", capture.FileSource{Dir: "in", Path: "cookies.json"}.Location())
	require.Equal(t, "/etc/cookies.json", capture.FileSource{Dir: "in", Path: "/etc/cookies.json"}.Location())
}
