package types

import "time"

// UnknownSize marks a transfer whose length was not declared by the sender
const UnknownSize int64 = -1

// FileMetadata contains information about the file being transferred
type FileMetadata struct {
	Name     string `json:"name"`     // Original filename, sent as X-File-Name
	Size     int64  `json:"size"`     // File size in bytes, UnknownSize for live streams
	MimeType string `json:"mimeType"` // MIME type of the file
	Path     string `json:"-"`        // Local path on the side that owns the file
}

// HasSize reports whether the total length is known
func (m FileMetadata) HasSize() bool {
	return m.Size >= 0
}

// ProgressUpdate is a snapshot of a running transfer
type ProgressUpdate struct {
	BytesTransferred int64
	TotalBytes       int64 // UnknownSize when not declared
	NewBytes         int64 // Bytes added by the chunk that produced this update
	Elapsed          time.Duration
	Remaining        time.Duration
	RemainingKnown   bool
	Throughput       float64 // bytes per second
}

// Percentage returns completion in [0, 100], or -1 when the total is unknown
func (p ProgressUpdate) Percentage() float64 {
	if p.TotalBytes < 0 {
		return -1
	}
	if p.TotalBytes == 0 {
		return 100
	}
	return float64(p.BytesTransferred) / float64(p.TotalBytes) * 100
}
