package store

import (
	"time"
)

// TransferInfo describes a single completed object transfer.
type TransferInfo struct {
	BytesTransferred int64
	TransferSpeed    float64 // in MB/s
	Duration         time.Duration
}

// ObjectInfo describes one object returned by a listing.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// calculateTransferSpeedMBps calculates transfer speed in MB/s (decimal megabytes)
// using the formula: bytes / duration_in_seconds / 1,000,000
func calculateTransferSpeedMBps(bytes int64, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(bytes) / duration.Seconds() / 1000 / 1000
}
