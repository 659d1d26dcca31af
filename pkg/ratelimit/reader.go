// Package ratelimit bounds the read bandwidth of checksum computation so a
// background sweep can hash large recording files without starving an
// acquisition writing to the same disks.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBucket keeps very low caps from degenerating into tiny reads
const minBucket = 64 * 1024

// Limiter is a token bucket shared by every reader it wraps. The cap is
// global across concurrent hash workers, not per file.
type Limiter struct {
	rate   int64 // bytes per second
	bucket int64 // burst ceiling

	mu     sync.Mutex
	tokens int64
	last   time.Time
}

// NewLimiter builds a limiter for the given bytes-per-second cap. A cap of
// zero or less returns nil, which readers treat as unlimited.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	bucket := bytesPerSecond
	if bucket < minBucket {
		bucket = minBucket
	}
	return &Limiter{
		rate:   bytesPerSecond,
		bucket: bucket,
		tokens: bucket, // a fresh limiter allows one full burst
		last:   time.Now(),
	}
}

// NewReader wraps r so its reads draw from the limiter's bucket. A nil
// limiter returns r unchanged.
func NewReader(ctx context.Context, r io.Reader, l *Limiter) io.Reader {
	if l == nil {
		return r
	}
	return &Reader{r: r, limiter: l, ctx: ctx}
}

// Reader is an io.Reader paced by a shared Limiter
type Reader struct {
	r       io.Reader
	limiter *Limiter
	ctx     context.Context
}

func (r *Reader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}

	// never ask for more than one bucket, or reserve could block forever
	want := int64(len(p))
	if want > r.limiter.bucket {
		want = r.limiter.bucket
	}
	r.limiter.reserve(want)

	n, err := r.r.Read(p[:want])
	if n > 0 {
		r.limiter.spend(int64(n))
	}
	return n, err
}

// reserve blocks until the bucket holds at least n tokens
func (l *Limiter) reserve(n int64) {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= n {
			l.mu.Unlock()
			return
		}
		wait := time.Duration(float64(n-l.tokens) / float64(l.rate) * float64(time.Second))
		l.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		time.Sleep(wait)
	}
}

// refill credits tokens for the time elapsed since the last credit, capped
// at the bucket size. Caller holds mu.
func (l *Limiter) refill() {
	now := time.Now()
	credit := int64(float64(now.Sub(l.last)) / float64(time.Second) * float64(l.rate))
	if credit <= 0 {
		return
	}
	l.tokens += credit
	if l.tokens > l.bucket {
		l.tokens = l.bucket
	}
	l.last = now
}

// spend debits what a read actually consumed
func (l *Limiter) spend(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens -= n
	if l.tokens < 0 {
		l.tokens = 0
	}
}
