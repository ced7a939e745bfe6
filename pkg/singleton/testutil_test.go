package singleton

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// tagged is a test singleton carrying the construction number of its factory.
type tagged struct {
	Tag int64
}

// taggedFactory returns a factory that numbers its products 1, 2, 3...
func taggedFactory() (func() (*tagged, error), *atomic.Int64) {
	var n atomic.Int64
	return func() (*tagged, error) {
		return &tagged{Tag: n.Add(1)}, nil
	}, &n
}

// resource is a Disposable test singleton.
type resource struct {
	name     string
	disposed atomic.Int32
	err      error
}

func (r *resource) Dispose() error {
	r.disposed.Add(1)
	return r.err
}

// runConcurrently starts n goroutines at once and waits for them.
func runConcurrently(n int, fn func(i int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			fn(i)
		}()
	}
	close(start)
	wg.Wait()
}

// testLogHandler captures log records for testing.
type testLogHandler struct {
	mu    *sync.Mutex
	buf   *bytes.Buffer
	attrs []slog.Attr
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{mu: &sync.Mutex{}, buf: &bytes.Buffer{}}
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		data[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testLogHandler{
		mu:    h.mu,
		buf:   h.buf,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *testLogHandler) WithGroup(_ string) slog.Handler {
	return h
}

// records returns every record logged through this handler or its children.
func (h *testLogHandler) records() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()

	var records []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			records = append(records, m)
		}
	}
	return records
}

// find returns the first record with the given message.
func (h *testLogHandler) find(msg string) map[string]any {
	for _, r := range h.records() {
		if r["msg"] == msg {
			return r
		}
	}
	return nil
}

var errNotReady = errors.New("not ready")
