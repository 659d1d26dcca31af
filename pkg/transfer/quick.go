package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/storage"
)

// quickCompare is the cheap pre-check used to decide whether an existing
// destination file needs recopying before checksum validation weighs in.
//
// Sizes must agree or the answer is no. Matching sizes plus an identical
// modification time (preserved by Backend.Copy) count as a match without
// touching file contents; otherwise the two files are streamed and compared
// byte for byte.
func quickCompare(ctx context.Context, fs storage.Backend, src, dst string) (bool, error) {
	si, err := fs.Stat(ctx, src)
	if err != nil {
		return false, fmt.Errorf("failed to stat source: %w", err)
	}
	di, err := fs.Stat(ctx, dst)
	if err != nil {
		return false, fmt.Errorf("failed to stat destination: %w", err)
	}

	if si.Size != di.Size {
		return false, nil
	}
	if si.ModTime.Equal(di.ModTime) {
		return true, nil
	}
	return compareBytes(ctx, fs, src, dst)
}

func compareBytes(ctx context.Context, fs storage.Backend, a, b string) (bool, error) {
	ra, err := fs.Open(ctx, a)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", a, err)
	}
	defer ra.Close()

	rb, err := fs.Open(ctx, b)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", b, err)
	}
	defer rb.Close()

	bufA := make([]byte, checksum.ChunkSize)
	bufB := make([]byte, checksum.ChunkSize)
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if doneA && doneB {
			return true, nil
		}
		if errA != nil && !doneA {
			return false, fmt.Errorf("failed to read %s: %w", a, errA)
		}
		if errB != nil && !doneB {
			return false, fmt.Errorf("failed to read %s: %w", b, errB)
		}
		if doneA != doneB {
			return false, nil
		}
	}
}
