// Package checksum provides pluggable content-digest providers and the
// policy for when digests are computed automatically.
//
// Every provider must pass a self-test against a known vector before any
// digest it produces is trusted; the Registry runs that test once per
// provider per process.
package checksum

import (
	"context"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/ratelimit"
)

// ChunkSize is the fixed streaming-read chunk for digest computation. It is
// independent of file size so memory stays bounded for arbitrarily large
// recording files.
const ChunkSize = 64 * 1024

// selfTestInput and the per-provider vectors pin down the exact digest
// convention (case, width) as well as the algorithm.
var selfTestInput = []byte("foo")

// Provider computes and validates digests for one algorithm
type Provider interface {
	// Name identifies the algorithm in records and the store
	Name() string

	// Compute streams the file at path and returns its hex digest
	Compute(ctx context.Context, path string) (string, error)

	// ValidFormat reports whether a string conforms to this algorithm's
	// digest format
	ValidFormat(value string) bool

	// SelfTest computes the digest of a known input through the same code
	// path as Compute and fails if it mismatches
	SelfTest() error
}

// chunkedProvider is the shared streaming implementation behind all
// built-in providers.
type chunkedProvider struct {
	name     string
	digestLn int
	testWant string
	newHash  func() hash.Hash
	finish   func(hash.Hash) string

	limiter    *ratelimit.Limiter
	bufferPool sync.Pool
}

func newChunkedProvider(name string, digestLn int, testWant string,
	newHash func() hash.Hash, finish func(hash.Hash) string) *chunkedProvider {
	return &chunkedProvider{
		name:     name,
		digestLn: digestLn,
		testWant: testWant,
		newHash:  newHash,
		finish:   finish,
		bufferPool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, ChunkSize)
				return &buf
			},
		},
	}
}

// SetLimiter caps the aggregate read bandwidth of all Compute calls made
// through this provider. A nil limiter disables capping.
func (p *chunkedProvider) SetLimiter(l *ratelimit.Limiter) {
	p.limiter = l
}

func (p *chunkedProvider) Name() string { return p.name }

func (p *chunkedProvider) Compute(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for %s digest: %w", p.name, err)
	}
	defer f.Close()

	return p.digest(ctx, ratelimit.NewReader(ctx, f, p.limiter))
}

func (p *chunkedProvider) digest(ctx context.Context, r io.Reader) (string, error) {
	h := p.newHash()

	bufPtr := p.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer p.bufferPool.Put(bufPtr)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := r.Read(buffer)
		if n > 0 {
			h.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	return p.finish(h), nil
}

func (p *chunkedProvider) ValidFormat(value string) bool {
	if len(value) != p.digestLn {
		return false
	}
	for _, c := range strings.ToLower(value) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func (p *chunkedProvider) SelfTest() error {
	got, err := p.digest(context.Background(), strings.NewReader(string(selfTestInput)))
	if err != nil {
		return fmt.Errorf("%s self-test failed: %w", p.name, err)
	}
	if !strings.EqualFold(got, p.testWant) {
		return fmt.Errorf("%s self-test failed: got %s, want %s", p.name, got, p.testWant)
	}
	return nil
}

// Registry holds the available providers and guarantees each has passed its
// self-test before first use.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	tested    map[string]error
	order     []string
}

// NewRegistry builds a registry over the given providers, cheapest first.
// The first provider is the preferred one when speed matters (e.g. when
// both sides of a comparison are missing checksums).
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		tested:    make(map[string]error),
	}
	for _, p := range providers {
		if _, dup := r.providers[p.Name()]; dup {
			continue
		}
		r.providers[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// DefaultRegistry returns the built-in provider set: crc32 (cheap),
// sha3-256 and sha256 (the acquisition pipeline's hashers).
func DefaultRegistry() *Registry {
	return NewRegistry(NewCRC32(), NewSHA3256(), NewSHA256())
}

// Get returns a self-tested provider by algorithm name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown checksum algorithm: %q", name)
	}
	if err, done := r.tested[name]; done {
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	err := p.SelfTest()
	r.tested[name] = err
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CheckFormat validates a stored digest against its algorithm's format.
// An unset digest passes; a digest without an algorithm, carried by an
// unknown algorithm, or not matching the algorithm's format fails. This is
// the enforcement point for digests entering from persistence rather than
// from a provider.
func (r *Registry) CheckFormat(algorithm, value string) error {
	if value == "" {
		return nil
	}
	if algorithm == "" {
		return &models.ChecksumFormatError{Algorithm: algorithm, Value: value}
	}
	p, err := r.Get(algorithm)
	if err != nil {
		return err
	}
	if !p.ValidFormat(value) {
		return &models.ChecksumFormatError{Algorithm: algorithm, Value: value}
	}
	return nil
}

// Cheapest returns the fastest registered provider
func (r *Registry) Cheapest() (Provider, error) {
	if len(r.order) == 0 {
		return nil, fmt.Errorf("no checksum providers registered")
	}
	return r.Get(r.order[0])
}

// Names lists the registered algorithm names, cheapest first
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
