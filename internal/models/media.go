package models

// MediaObject is the upstream metadata resolved for one streaming request.
// Size must be known before any range arithmetic; an object without a known
// size is treated as absent.
type MediaObject struct {
	Name        string
	Size        int64
	ContentType string
}
