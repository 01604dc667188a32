package cache

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// PageOptions configures CachePage.
type PageOptions struct {
	Prefix string
	TTL    time.Duration
	// Vary adds a per-request component to the key, such as the viewer.
	Vary   func(r *http.Request) string
	OnHit  func()
	OnMiss func()
}

// CachePage serves GET and HEAD requests from c, filling it from next on a
// miss. Only 200 responses are stored. Concurrent misses on one key share a
// single call to next.
func CachePage(c *PageCache, opts PageOptions) func(http.Handler) http.Handler {
	var fills singleflight.Group

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.Prefix + ":"
			if opts.Vary != nil {
				key += opts.Vary(r)
			}
			key += ":" + r.URL.RequestURI()

			if resp, ok := c.Get(key); ok {
				if opts.OnHit != nil {
					opts.OnHit()
				}
				replay(w, resp)
				return
			}
			if opts.OnMiss != nil {
				opts.OnMiss()
			}

			// Every waiter on key shares this fill; a leader that hangs up
			// must not cancel it.
			fill := r.WithContext(context.WithoutCancel(r.Context()))
			value, _, _ := fills.Do(key, func() (interface{}, error) {
				capture := newCaptureWriter()
				next.ServeHTTP(capture, fill)
				resp := capture.response()
				if resp.Status == http.StatusOK {
					c.Put(key, resp, opts.TTL)
				}
				return resp, nil
			})
			replay(w, value.(*Response))
		})
	}
}

func replay(w http.ResponseWriter, resp *Response) {
	header := w.Header()
	for name, values := range resp.Header {
		header[name] = append([]string(nil), values...)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// captureWriter buffers a response instead of sending it.
type captureWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: http.Header{}}
}

func (cw *captureWriter) Header() http.Header {
	return cw.header
}

func (cw *captureWriter) WriteHeader(status int) {
	if cw.status == 0 {
		cw.status = status
	}
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	return cw.body.Write(b)
}

func (cw *captureWriter) response() *Response {
	status := cw.status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		Status: status,
		Header: cw.header.Clone(),
		Body:   append([]byte(nil), cw.body.Bytes()...),
	}
}
