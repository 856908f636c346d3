package streaming

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/metrics"
)

// BlobStore is the upstream the responder relays from.
type BlobStore interface {
	Stat(ctx context.Context, name string) (models.MediaObject, error)
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
	FetchRange(ctx context.Context, name string, start, end int64) (io.ReadCloser, error)
}

// Responder translates a client Range request into one upstream fetch and
// reproduces partial-content semantics on the outward response. Bytes are
// relayed as they arrive; nothing is buffered past io.Copy's chunk.
type Responder struct {
	store   BlobStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewResponder(store BlobStore, m *metrics.Metrics, logger *slog.Logger) *Responder {
	return &Responder{store: store, metrics: m, logger: logger}
}

// Respond serves one media request. The returned error is nil once headers
// have been written, even if the relay aborted mid-stream: at that point there
// is nothing coherent left to send.
func (s *Responder) Respond(w http.ResponseWriter, r *http.Request, name string) error {
	obj, err := s.store.Stat(r.Context(), name)
	if err != nil {
		return err
	}

	rangeHeader := r.Header.Get("Range")

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "no-cache")

	if rangeHeader == "" {
		return s.relayFull(w, r, obj)
	}

	window, err := ParseWindow(rangeHeader, obj.Size)
	if err != nil {
		if errors.Is(err, models.ErrRangeNotSatisfiable) {
			w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(obj.Size, 10))
		}
		return err
	}
	return s.relayWindow(w, r, obj, window)
}

// The size-bearing headers are set only once the upstream stream is in hand:
// a failed fetch must leave the headers clean so the caller can still write a
// coherent error response.

func (s *Responder) relayFull(w http.ResponseWriter, r *http.Request, obj models.MediaObject) error {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	rc, err := s.store.Fetch(r.Context(), obj.Name)
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)
	s.relay(w, rc, obj.Name)
	return nil
}

func (s *Responder) relayWindow(w http.ResponseWriter, r *http.Request, obj models.MediaObject, window Window) error {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Range", window.ContentRange(obj.Size))
		w.Header().Set("Content-Length", strconv.FormatInt(window.Length(), 10))
		w.WriteHeader(http.StatusPartialContent)
		return nil
	}

	rc, err := s.store.FetchRange(r.Context(), obj.Name, window.Start, window.End)
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Range", window.ContentRange(obj.Size))
	w.Header().Set("Content-Length", strconv.FormatInt(window.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	s.relay(w, rc, obj.Name)
	return nil
}

// relay copies upstream to downstream. io.Copy pauses upstream reads when the
// client drains slowly, so a slow consumer never balloons memory. A mid-stream
// failure aborts the connection; headers are already out, so no second status
// is attempted.
func (s *Responder) relay(w http.ResponseWriter, rc io.ReadCloser, name string) {
	n, err := io.Copy(w, rc)
	s.metrics.AddBytesStreamed(n)
	if err != nil {
		s.logger.Error("relay aborted mid-stream",
			slog.String("object", name),
			slog.Int64("bytes_sent", n),
			slog.Any("error", err))
	}
}
