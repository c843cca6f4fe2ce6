// Package snapshot implements the adaptive-chunk-size streaming
// download of a device's post-trigger capture buffer.
package snapshot

import (
	"context"
	"errors"

	"github.com/tomrford/scopelink/transport"
	"github.com/tomrford/scopelink/wire"
)

// DownloadError is the flat, tagged error the downloader fails with.
type DownloadError struct {
	Reason string
}

func (e *DownloadError) Error() string { return "snapshot: " + e.Reason }

var (
	ErrChunkFailure = &DownloadError{Reason: "chunk failed even at one sample"}
	ErrNotReady     = &DownloadError{Reason: "snapshot became invalid mid-download"}
)

// Getter is the subset of session.Session the downloader needs.
type Getter interface {
	GetSnapshotData(startSample uint16, count uint8) ([]wire.FrameSample, error)
}

const defaultMaxChunk = 63

// Downloader streams a device's post-trigger buffer in adaptively
// sized chunks, halving on Timeout/CrcMismatch and aborting on
// NotReady or on two consecutive failures at a single-sample chunk.
//
// MaxPayload bounds the byte size of one GET_SNAPSHOT_DATA response;
// it defaults to wire.MaxPayload (a single frame's payload cap) but
// callers may widen it where the transport reassembles multi-frame
// responses, which is why it isn't hardcoded to the wire constant.
type Downloader struct {
	Get        Getter
	MaxPayload int
}

func New(get Getter) *Downloader {
	return &Downloader{Get: get, MaxPayload: wire.MaxPayload}
}

func (d *Downloader) maxChunk(numChannels int) int {
	maxPayload := d.MaxPayload
	if maxPayload <= 0 {
		maxPayload = wire.MaxPayload
	}
	bytesPerSample := numChannels * 4
	if bytesPerSample <= 0 {
		return 1
	}
	chunk := (maxPayload - 1) / bytesPerSample
	if chunk > defaultMaxChunk {
		chunk = defaultMaxChunk
	}
	if chunk < 1 {
		chunk = 1
	}
	return chunk
}

// Download fetches [0, bufferSize) samples and calls emit once per
// successful chunk with the absolute start offset and the decoded
// samples, in order.
func (d *Downloader) Download(ctx context.Context, bufferSize, numChannels int, emit func(start int, samples []wire.FrameSample)) error {
	maxChunk := d.maxChunk(numChannels)
	size := maxChunk
	start := 0
	singleSampleFailures := 0

	for start < bufferSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		count := size
		if remaining := bufferSize - start; count > remaining {
			count = remaining
		}

		samples, err := d.Get.GetSnapshotData(uint16(start), uint8(count))
		if err == nil {
			emit(start, samples)
			start += count
			size = maxChunk
			singleSampleFailures = 0
			continue
		}

		var de *wire.DeviceError
		if errors.As(err, &de) && de.Code == wire.ErrNotReady {
			return ErrNotReady
		}
		var te *transport.Error
		retryable := errors.As(err, &te) && (te.Kind == transport.KindTimeout || te.Kind == transport.KindCrcMismatch)
		if !retryable {
			return err
		}

		if size <= 1 {
			singleSampleFailures++
			if singleSampleFailures >= 2 {
				return ErrChunkFailure
			}
			continue
		}
		size = size / 2
		if size < 1 {
			size = 1
		}
		singleSampleFailures = 0
	}
	return nil
}
