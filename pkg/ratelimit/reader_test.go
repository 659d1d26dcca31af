package ratelimit

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	t.Run("ZeroMeansUnlimited", func(t *testing.T) {
		assert.Nil(t, NewLimiter(0))
		assert.Nil(t, NewLimiter(-1))
	})

	t.Run("SmallCapGetsMinimumBucket", func(t *testing.T) {
		l := NewLimiter(1000)
		require.NotNil(t, l)
		assert.Equal(t, int64(minBucket), l.bucket)
	})

	t.Run("LargeCapGetsOneSecondBucket", func(t *testing.T) {
		l := NewLimiter(8 * 1024 * 1024)
		require.NotNil(t, l)
		assert.Equal(t, int64(8*1024*1024), l.bucket)
	})

	t.Run("StartsWithFullBurst", func(t *testing.T) {
		l := NewLimiter(1024 * 1024)
		require.NotNil(t, l)
		assert.Equal(t, l.bucket, l.tokens)
	})
}

func TestNewReaderPassthroughWithoutLimiter(t *testing.T) {
	base := bytes.NewReader([]byte("recording payload"))
	wrapped := NewReader(context.Background(), base, nil)
	assert.Equal(t, io.Reader(base), wrapped)
}

func TestReaderDeliversContentIntact(t *testing.T) {
	payload := make([]byte, 3*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	r := NewReader(context.Background(), bytes.NewReader(payload), NewLimiter(10*1024*1024))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReaderHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(ctx, bytes.NewReader(make([]byte, 1024)), NewLimiter(1024*1024))
	_, err := r.Read(make([]byte, 64))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaderCapsReadsAtBucketSize(t *testing.T) {
	// a request larger than the bucket must be satisfied in bucket-sized
	// slices, otherwise reserve could never accumulate enough tokens
	payload := make([]byte, minBucket+512)
	r := NewReader(context.Background(), bytes.NewReader(payload), NewLimiter(1))

	n, err := r.Read(make([]byte, len(payload)))
	require.NoError(t, err)
	assert.Equal(t, minBucket, n)
}

func TestTokenAccounting(t *testing.T) {
	t.Run("SpendDebits", func(t *testing.T) {
		l := NewLimiter(1024 * 1024)
		before := l.tokens
		l.spend(1000)
		assert.Equal(t, before-1000, l.tokens)
	})

	t.Run("SpendClampsAtZero", func(t *testing.T) {
		l := NewLimiter(1024)
		l.tokens = 100
		l.spend(200)
		assert.Zero(t, l.tokens)
	})

	t.Run("RefillCreditsElapsedTime", func(t *testing.T) {
		l := NewLimiter(1000)
		l.tokens = 0
		l.last = time.Now().Add(-100 * time.Millisecond)

		l.refill()

		assert.InDelta(t, 100, float64(l.tokens), 60)
	})

	t.Run("RefillCapsAtBucket", func(t *testing.T) {
		l := NewLimiter(1000)
		l.tokens = l.bucket - 10
		l.last = time.Now().Add(-time.Second)

		l.refill()

		assert.Equal(t, l.bucket, l.tokens)
	})
}
