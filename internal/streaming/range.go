package streaming

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
)

// Window is the inclusive byte interval [Start, End] requested by a client,
// already validated against the object's total size.
type Window struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the window.
func (w Window) Length() int64 {
	return w.End - w.Start + 1
}

// ContentRange renders the Content-Range header value for a 206 response.
func (w Window) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", w.Start, w.End, size)
}

// ParseWindow parses a "bytes=<start>-<end>?" header against a known total
// size. The start offset is required; the end defaults to the last byte when
// omitted and is clamped to the last byte when past it. A start at or beyond
// the total size is ErrRangeNotSatisfiable; everything unparsable is
// ErrMalformedRange.
func ParseWindow(header string, size int64) (Window, error) {
	if !strings.HasPrefix(header, "bytes=") {
		return Window{}, fmt.Errorf("%w: unsupported unit in %q", models.ErrMalformedRange, header)
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(spec, ",") {
		return Window{}, fmt.Errorf("%w: multiple ranges in %q", models.ErrMalformedRange, header)
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		return Window{}, fmt.Errorf("%w: missing start in %q", models.ErrMalformedRange, header)
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return Window{}, fmt.Errorf("%w: bad start in %q", models.ErrMalformedRange, header)
	}
	if start >= size {
		return Window{}, fmt.Errorf("%w: start %d beyond size %d", models.ErrRangeNotSatisfiable, start, size)
	}

	end := size - 1
	if parts[1] != "" {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Window{}, fmt.Errorf("%w: bad end in %q", models.ErrMalformedRange, header)
		}
		if end < start {
			return Window{}, fmt.Errorf("%w: end %d before start %d", models.ErrMalformedRange, end, start)
		}
		if end > size-1 {
			end = size - 1
		}
	}

	return Window{Start: start, End: end}, nil
}
