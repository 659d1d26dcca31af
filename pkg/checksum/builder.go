package checksum

import (
	"context"
	"fmt"
	"os"

	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/ratelimit"
)

// DefaultAutoThreshold is the file size below which a missing checksum is
// generated immediately at record construction. Larger files defer hashing
// until a comparison actually demands it.
const DefaultAutoThreshold int64 = 10 * 1024 * 1024 * 1024

// Builder turns filesystem paths and stored rows into validated FileRecords.
// It owns the policy for when checksums are generated automatically.
type Builder struct {
	registry  *Registry
	algorithm string
	threshold int64
	limiter   *ratelimit.Limiter
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithAlgorithm sets the algorithm used when generating checksums.
// Comparisons still accept records carrying any registered algorithm.
func WithAlgorithm(name string) BuilderOption {
	return func(b *Builder) { b.algorithm = name }
}

// WithAutoThreshold sets the size ceiling for generate-on-construction.
// Zero disables automatic generation entirely; negative means no ceiling.
func WithAutoThreshold(n int64) BuilderOption {
	return func(b *Builder) { b.threshold = n }
}

// WithLimiter caps checksum read bandwidth across all provider calls
func WithLimiter(l *ratelimit.Limiter) BuilderOption {
	return func(b *Builder) { b.limiter = l }
}

// NewBuilder returns a Builder over the given registry
func NewBuilder(registry *Registry, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry:  registry,
		algorithm: AlgorithmCRC32,
		threshold: DefaultAutoThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.limiter != nil {
		for _, name := range registry.Names() {
			if p, ok := registry.providers[name]; ok {
				if lp, ok := p.(interface {
					SetLimiter(*ratelimit.Limiter)
				}); ok {
					lp.SetLimiter(b.limiter)
				}
			}
		}
	}
	return b
}

// Algorithm returns the generation algorithm name
func (b *Builder) Algorithm() string { return b.algorithm }

// FromPath stats the file at path and returns a record for it. Small files
// get a checksum immediately; files above the threshold are returned without
// one so scans of large recording folders stay cheap.
func (b *Builder) FromPath(ctx context.Context, path string) (models.FileRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return models.FileRecord{}, fmt.Errorf("%s is a directory, not a file", path)
	}

	rec, err := models.NewFileRecord(path, info.Size(), models.Checksum{})
	if err != nil {
		return models.FileRecord{}, err
	}

	if b.threshold != 0 && (b.threshold < 0 || info.Size() <= b.threshold) {
		return b.EnsureChecksum(ctx, rec)
	}
	return rec, nil
}

// EnsureChecksum returns rec with a checksum, computing one with the
// configured algorithm if the record lacks one. The file must exist.
func (b *Builder) EnsureChecksum(ctx context.Context, rec models.FileRecord) (models.FileRecord, error) {
	if rec.HasChecksum() {
		return rec, nil
	}
	return b.Generate(ctx, rec, b.algorithm)
}

// EnsureCheapChecksum is EnsureChecksum with the registry's fastest
// algorithm, used when a checksum exists only to confirm a suspected copy.
func (b *Builder) EnsureCheapChecksum(ctx context.Context, rec models.FileRecord) (models.FileRecord, error) {
	if rec.HasChecksum() {
		return rec, nil
	}
	p, err := b.registry.Cheapest()
	if err != nil {
		return models.FileRecord{}, err
	}
	return b.Generate(ctx, rec, p.Name())
}

// Generate computes a fresh checksum with the named algorithm, replacing any
// existing one on the record.
func (b *Builder) Generate(ctx context.Context, rec models.FileRecord, algorithm string) (models.FileRecord, error) {
	p, err := b.registry.Get(algorithm)
	if err != nil {
		return models.FileRecord{}, err
	}
	value, err := p.Compute(ctx, rec.Location)
	if err != nil {
		return models.FileRecord{}, err
	}
	return rec.WithChecksum(models.Checksum{Algorithm: p.Name(), Value: value}), nil
}

// MatchAlgorithm regenerates rec's checksum with other's algorithm when the
// two are not directly comparable, so a digest comparison becomes possible.
func (b *Builder) MatchAlgorithm(ctx context.Context, rec, other models.FileRecord) (models.FileRecord, error) {
	if !other.HasChecksum() {
		return rec, nil
	}
	if rec.HasChecksum() && rec.Checksum.Algorithm == other.Checksum.Algorithm {
		return rec, nil
	}
	return b.Generate(ctx, rec, other.Checksum.Algorithm)
}
