package streaming

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/logger"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/metrics"
)

// fakeStore serves objects from memory and records how they were fetched.
type fakeStore struct {
	objects    map[string][]byte
	statErr    error
	fetchErr   error
	rangeCalls int
	lastStart  int64
	lastEnd    int64
	failMid    bool
}

func (f *fakeStore) Stat(_ context.Context, name string) (models.MediaObject, error) {
	if f.statErr != nil {
		return models.MediaObject{}, f.statErr
	}
	data, ok := f.objects[name]
	if !ok {
		return models.MediaObject{}, fmt.Errorf("object %q: %w", name, models.ErrNotFound)
	}
	return models.MediaObject{Name: name, Size: int64(len(data)), ContentType: "video/mp4"}, nil
}

func (f *fakeStore) Fetch(_ context.Context, name string) (io.ReadCloser, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.objects[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	if f.failMid {
		return io.NopCloser(io.MultiReader(bytes.NewReader(data[:1]), failingReader{})), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) FetchRange(_ context.Context, name string, start, end int64) (io.ReadCloser, error) {
	f.rangeCalls++
	f.lastStart, f.lastEnd = start, end
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.objects[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("upstream reset") }

func newTestResponder(store *fakeStore) *Responder {
	return NewResponder(store, metrics.New(), logger.NewWithWriter("error", io.Discard))
}

func serve(t *testing.T, s *Responder, method, name, rangeHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(method, "/v1/media/"+name, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	err := s.Respond(w, req, name)
	return w, err
}

func TestRespondFullObject(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte("x"), 4096)
	store := &fakeStore{objects: map[string][]byte{"clip.mp4": body}}
	s := newTestResponder(store)

	w, err := serve(t, s, http.MethodGet, "clip.mp4", "")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != "4096" {
		t.Errorf("Content-Length = %q, want 4096", got)
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Body.Len() != len(body) {
		t.Errorf("body length = %d, want %d", w.Body.Len(), len(body))
	}
	if store.rangeCalls != 0 {
		t.Errorf("full request made %d range fetches", store.rangeCalls)
	}
}

func TestRespondPartialContent(t *testing.T) {
	t.Parallel()

	body := make([]byte, 1_000_000)
	for i := range body {
		body[i] = byte(i % 251)
	}
	store := &fakeStore{objects: map[string][]byte{"clip.mp4": body}}
	s := newTestResponder(store)

	w, err := serve(t, s, http.MethodGet, "clip.mp4", "bytes=500000-")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 500000-999999/1000000" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := w.Header().Get("Content-Length"); got != "500000" {
		t.Errorf("Content-Length = %q, want 500000", got)
	}
	if w.Body.Len() != 500000 {
		t.Errorf("body length = %d, want 500000", w.Body.Len())
	}
	if !bytes.Equal(w.Body.Bytes(), body[500000:]) {
		t.Error("relayed bytes do not match the requested window")
	}
	if store.rangeCalls != 1 {
		t.Errorf("expected exactly one upstream range fetch, got %d", store.rangeCalls)
	}
	if store.lastStart != 500000 || store.lastEnd != 999999 {
		t.Errorf("upstream window = [%d, %d], want [500000, 999999]", store.lastStart, store.lastEnd)
	}
}

func TestRespondExactWindowBytes(t *testing.T) {
	t.Parallel()

	body := make([]byte, 10000)
	store := &fakeStore{objects: map[string][]byte{"clip.mp4": body}}
	s := newTestResponder(store)

	for _, window := range []struct{ start, end int64 }{
		{0, 0}, {0, 9999}, {1, 9998}, {5000, 5000}, {9999, 9999},
	} {
		header := fmt.Sprintf("bytes=%d-%d", window.start, window.end)
		w, err := serve(t, s, http.MethodGet, "clip.mp4", header)
		if err != nil {
			t.Fatalf("Respond(%s) returned error: %v", header, err)
		}
		wantLen := window.end - window.start + 1
		if int64(w.Body.Len()) != wantLen {
			t.Errorf("Respond(%s) emitted %d bytes, want %d", header, w.Body.Len(), wantLen)
		}
		wantCR := fmt.Sprintf("bytes %d-%d/10000", window.start, window.end)
		if got := w.Header().Get("Content-Range"); got != wantCR {
			t.Errorf("Respond(%s) Content-Range = %q, want %q", header, got, wantCR)
		}
	}
}

func TestRespondRangeNotSatisfiable(t *testing.T) {
	t.Parallel()

	store := &fakeStore{objects: map[string][]byte{"clip.mp4": make([]byte, 100)}}
	s := newTestResponder(store)

	w, err := serve(t, s, http.MethodGet, "clip.mp4", "bytes=100-")
	if !errors.Is(err, models.ErrRangeNotSatisfiable) {
		t.Fatalf("error = %v, want ErrRangeNotSatisfiable", err)
	}
	// No 206 headers may be emitted for an unsatisfiable window.
	if got := w.Header().Get("Content-Range"); got != "bytes */100" {
		t.Errorf("Content-Range = %q, want %q", got, "bytes */100")
	}
	if store.rangeCalls != 0 {
		t.Errorf("unsatisfiable request still made %d upstream fetches", store.rangeCalls)
	}
}

func TestRespondNotFound(t *testing.T) {
	t.Parallel()

	s := newTestResponder(&fakeStore{objects: map[string][]byte{}})

	_, err := serve(t, s, http.MethodGet, "missing.mp4", "")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestRespondUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	s := newTestResponder(&fakeStore{statErr: models.ErrUpstreamUnavailable})

	_, err := serve(t, s, http.MethodGet, "clip.mp4", "")
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestRespondHead(t *testing.T) {
	t.Parallel()

	store := &fakeStore{objects: map[string][]byte{"clip.mp4": make([]byte, 2048)}}
	s := newTestResponder(store)

	w, err := serve(t, s, http.MethodHead, "clip.mp4", "bytes=0-1023")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != strconv.Itoa(1024) {
		t.Errorf("Content-Length = %q, want 1024", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("HEAD response carried %d body bytes", w.Body.Len())
	}
	if store.rangeCalls != 0 {
		t.Errorf("HEAD still fetched upstream %d times", store.rangeCalls)
	}
}

func TestRespondFetchFailureLeavesHeadersClean(t *testing.T) {
	t.Parallel()

	// Stat succeeds, the body fetch does not. The error must come back before
	// any size-bearing header is set, or the caller's error response would
	// declare the object's length while carrying a short error body.
	for _, tc := range []struct {
		name        string
		rangeHeader string
	}{
		{"full", ""},
		{"window", "bytes=0-499999"},
	} {
		store := &fakeStore{
			objects:  map[string][]byte{"clip.mp4": make([]byte, 500000)},
			fetchErr: models.ErrUpstreamUnavailable,
		}
		s := newTestResponder(store)

		w, err := serve(t, s, http.MethodGet, "clip.mp4", tc.rangeHeader)
		if !errors.Is(err, models.ErrUpstreamUnavailable) {
			t.Fatalf("%s: error = %v, want ErrUpstreamUnavailable", tc.name, err)
		}
		if got := w.Header().Get("Content-Length"); got != "" {
			t.Errorf("%s: Content-Length = %q after failed fetch, want unset", tc.name, got)
		}
		if got := w.Header().Get("Content-Range"); got != "" {
			t.Errorf("%s: Content-Range = %q after failed fetch, want unset", tc.name, got)
		}
	}
}

func TestRespondMidStreamFailureKeepsHeaders(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		objects: map[string][]byte{"clip.mp4": make([]byte, 64)},
		failMid: true,
	}
	s := newTestResponder(store)

	w, err := serve(t, s, http.MethodGet, "clip.mp4", "")
	// Headers are already out; the responder must not report an error that
	// would tempt the caller into writing a second status.
	if err != nil {
		t.Fatalf("Respond returned error after headers were written: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
