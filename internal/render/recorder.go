package render

import (
	"fmt"
	"net/http"
	"sync"
)

// Rendered is one call captured by a Recorder.
type Rendered struct {
	Status  int
	Name    string
	Context Context
}

// Recorder is a Renderer that remembers what it was asked to render and
// writes only the template name. Handler tests assert on the context
// instead of parsing HTML.
type Recorder struct {
	mu    sync.Mutex
	calls []Rendered
}

var _ Renderer = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Render(w http.ResponseWriter, status int, name string, data Context) error {
	r.mu.Lock()
	r.calls = append(r.calls, Rendered{Status: status, Name: name, Context: data})
	r.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := fmt.Fprintf(w, "template: %s\n", name)
	return err
}

// Last returns the most recent call, or false when nothing was rendered.
func (r *Recorder) Last() (Rendered, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Rendered{}, false
	}
	return r.calls[len(r.calls)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
