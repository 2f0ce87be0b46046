package chrome

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/har"
	"github.com/chromedp/cdproto/network"
)

const harVersion = "1.2"

// Creator recorded in exported HAR logs
var Creator = har.Creator{Name: "glimpse", Version: "dev"}

type harRequest struct {
	request  *network.Request
	response *network.Response

	wallTime time.Time
	start    time.Time
	end      time.Time

	size     int64
	errorMsg string
}

// harRecorder assembles network events of a tab into HAR entries.
type harRecorder struct {
	mu       sync.Mutex
	product  string
	inflight map[network.RequestID]*harRequest
	done     []*harRequest

	// First wall/monotonic pair seen, used to place requests that carry no wall time.
	anchorWall      time.Time
	anchorMonotonic time.Time
	now             func() time.Time
}

func newHARRecorder() *harRecorder {
	return &harRecorder{
		inflight: make(map[network.RequestID]*harRequest),
		now:      time.Now,
	}
}

// wallClock returns the wall time of a request, estimated from the anchor when the browser did not report one.
func (r *harRecorder) wallClock(wall *cdp.TimeSinceEpoch, start time.Time) time.Time {
	if wall != nil {
		t := wall.Time()
		if r.anchorWall.IsZero() && !start.IsZero() {
			r.anchorWall, r.anchorMonotonic = t, start
		}
		return t
	}

	if !r.anchorWall.IsZero() && !start.IsZero() {
		return r.anchorWall.Add(start.Sub(r.anchorMonotonic))
	}
	return r.now()
}

func monotonic(t *cdp.MonotonicTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time()
}

func (r *harRecorder) handle(ev any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if prev, ok := r.inflight[e.RequestID]; ok && e.RedirectResponse != nil {
			// A redirect reuses the request ID
			prev.response = e.RedirectResponse
			prev.end = monotonic(e.Timestamp)
			r.done = append(r.done, prev)
		}

		req := &harRequest{
			request: e.Request,
			start:   monotonic(e.Timestamp),
		}
		req.wallTime = r.wallClock(e.WallTime, req.start)
		r.inflight[e.RequestID] = req

	case *network.EventResponseReceived:
		if req, ok := r.inflight[e.RequestID]; ok {
			req.response = e.Response
		}

	case *network.EventLoadingFinished:
		if req, ok := r.inflight[e.RequestID]; ok {
			req.end = monotonic(e.Timestamp)
			req.size = int64(e.EncodedDataLength)
			r.done = append(r.done, req)
			delete(r.inflight, e.RequestID)
		}

	case *network.EventLoadingFailed:
		if req, ok := r.inflight[e.RequestID]; ok {
			req.end = monotonic(e.Timestamp)
			req.errorMsg = e.ErrorText
			r.done = append(r.done, req)
			delete(r.inflight, e.RequestID)
		}
	}
}

func nameValues(headers network.Headers) []*har.NameValuePair {
	pairs := make([]*har.NameValuePair, 0, len(headers))
	for k, v := range headers {
		value, ok := v.(string)
		if !ok {
			b, _ := json.Marshal(v)
			value = string(b)
		}
		// Chrome joins repeated headers with a newline
		for _, line := range strings.Split(value, "\n") {
			pairs = append(pairs, &har.NameValuePair{Name: k, Value: line})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs
}

func queryString(rawURL string) []*har.NameValuePair {
	pairs := []*har.NameValuePair{}
	u, err := url.Parse(rawURL)
	if err != nil {
		return pairs
	}

	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range query[k] {
			pairs = append(pairs, &har.NameValuePair{Name: k, Value: v})
		}
	}

	return pairs
}

func httpVersion(protocol string) string {
	switch strings.ToLower(protocol) {
	case "":
		return "HTTP/1.1"
	case "h2":
		return "HTTP/2"
	case "h3":
		return "HTTP/3"
	default:
		return strings.ToUpper(protocol)
	}
}

func millis(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

func (req *harRequest) entry() *har.Entry {
	elapsed := millis(req.end.Sub(req.start))
	if req.end.IsZero() {
		elapsed = 0
	}

	e := &har.Entry{
		StartedDateTime: req.wallTime.UTC().Format(time.RFC3339Nano),
		Time:            elapsed,
		Request: &har.Request{
			Method:      req.request.Method,
			URL:         req.request.URL,
			HTTPVersion: "HTTP/1.1",
			Cookies:     []*har.Cookie{},
			Headers:     nameValues(req.request.Headers),
			QueryString: queryString(req.request.URL),
			HeadersSize: -1,
			BodySize:    -1,
		},
		Response: &har.Response{
			Cookies:     []*har.Cookie{},
			Headers:     []*har.NameValuePair{},
			Content:     &har.Content{},
			HeadersSize: -1,
			BodySize:    -1,
		},
		Cache:   &har.Cache{},
		Timings: &har.Timings{Send: 0, Wait: elapsed, Receive: 0},
		Comment: req.errorMsg,
	}

	if resp := req.response; resp != nil {
		version := httpVersion(resp.Protocol)
		e.Request.HTTPVersion = version
		e.Response.Status = resp.Status
		e.Response.StatusText = resp.StatusText
		e.Response.HTTPVersion = version
		e.Response.Headers = nameValues(resp.Headers)
		e.Response.Content = &har.Content{Size: req.size, MimeType: resp.MimeType}
		e.Response.BodySize = req.size
		e.ServerIPAddress = resp.RemoteIPAddress
		for _, h := range e.Response.Headers {
			if strings.EqualFold(h.Name, "location") {
				e.Response.RedirectURL = h.Value
			}
		}
	}

	return e
}

func (r *harRecorder) build() *har.HAR {
	r.mu.Lock()
	defer r.mu.Unlock()

	requests := append([]*harRequest{}, r.done...)
	for _, req := range r.inflight {
		requests = append(requests, req)
	}
	sort.SliceStable(requests, func(i, j int) bool { return requests[i].start.Before(requests[j].start) })

	entries := make([]*har.Entry, 0, len(requests))
	for _, req := range requests {
		if req.request == nil {
			continue
		}
		entries = append(entries, req.entry())
	}

	creator := Creator
	log := &har.Log{
		Version: harVersion,
		Creator: &creator,
		Entries: entries,
	}
	if name, version, ok := strings.Cut(r.product, "/"); ok {
		log.Browser = &har.Creator{Name: name, Version: version}
	}

	return &har.HAR{Log: log}
}

// StartHAR begins recording network traffic of the tab.
func (s *Session) StartHAR(ctx context.Context) error {
	recorder := newHARRecorder()
	if product, err := s.Version(ctx); err == nil {
		recorder.product = product
	}

	s.harMu.Lock()
	s.har = recorder
	s.harMu.Unlock()

	return nil
}

// HAR returns the traffic recorded since StartHAR as JSON.
func (s *Session) HAR() ([]byte, error) {
	s.harMu.Lock()
	recorder := s.har
	s.harMu.Unlock()

	if recorder == nil {
		recorder = newHARRecorder()
	}

	return json.MarshalIndent(recorder.build(), "", "  ")
}
