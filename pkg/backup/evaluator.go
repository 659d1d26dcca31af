package backup

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/compare"
	"github.com/avandam/datasweep/pkg/logging"
	"github.com/avandam/datasweep/pkg/models"
	"github.com/avandam/datasweep/pkg/store"
)

// Match is one stored record together with its classification against the
// subject.
type Match struct {
	Kind   models.MatchKind
	Record models.FileRecord
}

// Backup is a copy-candidate match placed on the tier hierarchy, with its
// disk presence at evaluation time.
type Backup struct {
	Tier   models.Tier
	Kind   models.MatchKind
	Record models.FileRecord
	OnDisk bool
}

// Evaluation is the full verdict for one subject file
type Evaluation struct {
	Status  models.BackupStatus
	Matches []Match
	Backups []Backup
}

// Deletable reports whether the evaluation permits clearing the subject.
// True only for a checksum-valid backup confirmed on disk.
func (e Evaluation) Deletable() bool {
	return e.Status.Deletable()
}

// Best returns the highest-ranked backup still on disk, preferring valid
// over unconfirmed over invalid classifications within a tier.
func (e Evaluation) Best() (Backup, bool) {
	for _, b := range e.Backups {
		if b.OnDisk {
			return b, true
		}
	}
	return Backup{}, false
}

// Evaluator resolves a file's position in the backup process by combining
// store matches, tier ranking and on-disk existence checks.
type Evaluator struct {
	store   store.RecordStore
	locator Locator
	builder *checksum.Builder
	log     logging.Logger

	// statFile is swapped in tests that simulate vanished backups
	statFile func(string) bool
}

// NewEvaluator wires an evaluator. A nil logger disables logging.
func NewEvaluator(st store.RecordStore, loc Locator, b *checksum.Builder, log logging.Logger) *Evaluator {
	if log == nil {
		log = logging.NewNullLogger()
	}
	return &Evaluator{
		store:    st,
		locator:  loc,
		builder:  b,
		log:      log,
		statFile: fileExists,
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Evaluate resolves the backup status of rec.
//
// Store matches are re-classified locally, copy candidates are placed on
// tiers and checked for disk presence, and tiers are walked highest rank
// first. A stored valid copy whose file has since vanished never counts.
func (e *Evaluator) Evaluate(ctx context.Context, rec models.FileRecord) (Evaluation, error) {
	records, err := e.store.Matches(ctx, rec)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to fetch matches for %s: %w", rec.Location, err)
	}

	ev := Evaluation{Status: models.StatusUnknown}
	for _, cand := range records {
		ev.Matches = append(ev.Matches, Match{Kind: compare.Classify(rec, cand), Record: cand})
	}

	if len(ev.Matches) == 0 {
		ev.Status = models.StatusNoMatches
		return ev, nil
	}

	for _, m := range ev.Matches {
		if !isCopyKind(m.Kind) {
			continue
		}
		ev.Backups = append(ev.Backups, Backup{
			Tier:   e.locator.TierFor(m.Record.Location),
			Kind:   m.Kind,
			Record: m.Record,
			OnDisk: e.statFile(m.Record.Location),
		})
	}

	if len(ev.Backups) == 0 {
		ev.Status = models.StatusNoCopiesInStore
		return ev, nil
	}

	// Highest tier first; within a tier valid before unconfirmed before
	// invalid, so Best() is the strongest surviving backup.
	sort.SliceStable(ev.Backups, func(i, j int) bool {
		if ev.Backups[i].Tier.Rank() != ev.Backups[j].Tier.Rank() {
			return ev.Backups[i].Tier.Rank() > ev.Backups[j].Tier.Rank()
		}
		return kindStrength(ev.Backups[i].Kind) > kindStrength(ev.Backups[j].Kind)
	})

	var anyOnDisk bool
	for _, b := range ev.Backups {
		if !b.OnDisk {
			continue
		}
		anyOnDisk = true
		if models.ValidSet.Contains(b.Kind) {
			ev.Status = models.ValidOn(b.Tier)
			return ev, nil
		}
	}
	for _, b := range ev.Backups {
		if b.OnDisk && models.UnconfirmedSet.Contains(b.Kind) {
			ev.Status = models.UnconfirmedOn(b.Tier)
			return ev, nil
		}
	}
	if anyOnDisk {
		ev.Status = models.StatusPossibleUnsynced
		return ev, nil
	}

	if !rec.HasChecksum() && !anyMatchChecksum(ev.Matches) {
		ev.Status = models.StatusNoChecksums
		return ev, nil
	}
	ev.Status = models.StatusNoBackupsOnDisk
	return ev, nil
}

func isCopyKind(k models.MatchKind) bool {
	return models.ValidSet.Contains(k) ||
		models.UnconfirmedSet.Contains(k) ||
		models.InvalidSet.Contains(k)
}

func kindStrength(k models.MatchKind) int {
	switch {
	case models.ValidSet.Contains(k):
		return 2
	case models.UnconfirmedSet.Contains(k):
		return 1
	default:
		return 0
	}
}

func anyMatchChecksum(matches []Match) bool {
	for _, m := range matches {
		if m.Record.HasChecksum() {
			return true
		}
	}
	return false
}

// ExchangeIfKnown tries to adopt a checksum the store already holds for this
// exact file instead of re-reading it. Multiple self entries with
// conflicting digests are never guessed between; the subject keeps needing
// its own checksum.
func (e *Evaluator) ExchangeIfKnown(ctx context.Context, rec models.FileRecord) (models.FileRecord, bool, error) {
	if rec.HasChecksum() {
		return rec, false, nil
	}
	selves, err := e.store.Matches(ctx, rec, models.SelfSet)
	if err != nil {
		return rec, false, fmt.Errorf("failed to fetch self matches for %s: %w", rec.Location, err)
	}

	// Digests grouped by algorithm; a disagreement within one algorithm
	// poisons that algorithm, never the others.
	byAlgo := make(map[string]string)
	conflicted := make(map[string]bool)
	var order []string
	for _, s := range selves {
		if !s.HasChecksum() {
			continue
		}
		algo, value := s.Checksum.Algorithm, s.Checksum.Value
		prev, seen := byAlgo[algo]
		if !seen {
			byAlgo[algo] = value
			order = append(order, algo)
			continue
		}
		if prev != value && !conflicted[algo] {
			conflicted[algo] = true
			e.log.Warn(ctx, "conflicting self checksums in store, generating fresh", logging.Fields{
				"location":  rec.Location,
				"algorithm": algo,
				"first":     prev,
				"second":    value,
			})
		}
	}

	if v, ok := byAlgo[e.builder.Algorithm()]; ok && !conflicted[e.builder.Algorithm()] {
		return rec.WithChecksum(models.Checksum{Algorithm: e.builder.Algorithm(), Value: v}), true, nil
	}
	for _, algo := range order {
		if !conflicted[algo] {
			return rec.WithChecksum(models.Checksum{Algorithm: algo, Value: byAlgo[algo]}), true, nil
		}
	}
	return rec, false, nil
}

// EnsureBackupChecksum completes the missing checksum side of an
// unconfirmed evaluation and re-evaluates, which can settle the verdict to
// valid or invalid. Both sides missing get the cheapest algorithm. The
// refined records are written back to the store so the work sticks.
func (e *Evaluator) EnsureBackupChecksum(ctx context.Context, rec models.FileRecord) (models.FileRecord, Evaluation, error) {
	ev, err := e.Evaluate(ctx, rec)
	if err != nil {
		return rec, Evaluation{}, err
	}
	if !ev.Status.Unconfirmed() {
		return rec, ev, nil
	}
	best, ok := ev.Best()
	if !ok {
		return rec, ev, nil
	}

	subject, backup := rec, best.Record
	switch {
	case !subject.HasChecksum() && !backup.HasChecksum():
		if subject, err = e.checksumFor(ctx, subject, models.FileRecord{}); err != nil {
			return rec, ev, err
		}
		if backup, err = e.builder.MatchAlgorithm(ctx, backup, subject); err != nil {
			return rec, ev, err
		}
	case !subject.HasChecksum():
		if subject, err = e.checksumFor(ctx, subject, backup); err != nil {
			return rec, ev, err
		}
	case !backup.HasChecksum():
		if backup, err = e.builder.MatchAlgorithm(ctx, backup, subject); err != nil {
			return rec, ev, err
		}
	}

	// an adopted digest can leave the two sides on different algorithms;
	// regenerate the backup side until they are comparable
	if subject.HasChecksum() && backup.HasChecksum() &&
		subject.Checksum.Algorithm != backup.Checksum.Algorithm {
		if backup, err = e.builder.MatchAlgorithm(ctx, backup, subject); err != nil {
			return rec, ev, err
		}
	}

	for _, refined := range []models.FileRecord{subject, backup} {
		if err := e.store.Add(ctx, refined); err != nil {
			return rec, ev, fmt.Errorf("failed to persist refined record: %w", err)
		}
	}

	ev, err = e.Evaluate(ctx, subject)
	if err != nil {
		return subject, Evaluation{}, err
	}
	return subject, ev, nil
}

// checksumFor completes the subject's checksum: adopt a stored self digest
// when unambiguous, match the other side's algorithm when it has one,
// otherwise use the cheapest provider.
func (e *Evaluator) checksumFor(ctx context.Context, rec, other models.FileRecord) (models.FileRecord, error) {
	rec, adopted, err := e.ExchangeIfKnown(ctx, rec)
	if err != nil {
		return rec, err
	}
	if adopted {
		return rec, nil
	}
	if other.HasChecksum() {
		return e.builder.MatchAlgorithm(ctx, rec, other)
	}
	return e.builder.EnsureCheapChecksum(ctx, rec)
}
