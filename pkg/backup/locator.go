// Package backup resolves where a file's backups should live and what state
// they are in. The evaluator's verdict is the only thing that can make a
// file eligible for deletion, and it fails closed: any doubt reads as "not
// backed up".
package backup

import (
	"sort"
	"strings"

	"github.com/avandam/datasweep/pkg/models"
)

// Candidate is one expected backup path on one tier. Existence is not
// asserted; the evaluator checks the disk.
type Candidate struct {
	Tier models.Tier
	Path string
}

// Locator maps files onto the tier hierarchy
type Locator interface {
	// Candidates returns at most one expected path per configured tier root,
	// highest-ranked tier first
	Candidates(rec models.FileRecord) []Candidate

	// TierFor returns the tier whose root contains the location, or TierOther
	TierFor(location string) models.Tier

	// SessionRoot returns the expected session directory on the given tier,
	// or false when no root is configured for that tier
	SessionRoot(sess models.Session, tier models.Tier) (string, bool)
}

// TierRoot binds a directory tree to a tier
type TierRoot struct {
	Tier models.Tier
	Root string
}

// TreeLocator resolves candidates by joining each tier root with the
// file's session-relative path. Roots are supplied by configuration; the
// locator knows nothing about why a root belongs to a tier.
type TreeLocator struct {
	roots []TierRoot
}

// NewTreeLocator builds a locator over the given roots, sorted by tier rank
// so Candidates comes out highest tier first.
func NewTreeLocator(roots []TierRoot) *TreeLocator {
	sorted := make([]TierRoot, 0, len(roots))
	for _, r := range roots {
		if r.Root == "" {
			continue
		}
		sorted = append(sorted, TierRoot{Tier: r.Tier, Root: models.NormalizeLocation(r.Root)})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tier.Rank() > sorted[j].Tier.Rank()
	})
	return &TreeLocator{roots: sorted}
}

// Candidates returns the expected backup path under every configured root,
// excluding the root the file already lives in. Orphan records have no
// session-relative path and get no candidates.
func (l *TreeLocator) Candidates(rec models.FileRecord) []Candidate {
	if rec.IsOrphan() {
		return nil
	}
	sess, err := models.ParseSession(rec.Location)
	if err != nil {
		return nil
	}
	rel := models.SessionRelative(rec.Location, sess)

	out := make([]Candidate, 0, len(l.roots))
	for _, root := range l.roots {
		p := root.Root + "/" + rel
		if strings.EqualFold(p, rec.Location) {
			continue
		}
		out = append(out, Candidate{Tier: root.Tier, Path: p})
	}
	return out
}

// SessionRoot returns "<tier root>/<session folder>" for the
// highest-ranked root configured on tier.
func (l *TreeLocator) SessionRoot(sess models.Session, tier models.Tier) (string, bool) {
	for _, root := range l.roots {
		if root.Tier == tier {
			return root.Root + "/" + sess.Folder(), true
		}
	}
	return "", false
}

// TierFor returns the tier of the deepest configured root containing
// location
func (l *TreeLocator) TierFor(location string) models.Tier {
	loc := strings.ToLower(models.NormalizeLocation(location))
	best := models.TierOther
	bestLen := 0
	for _, root := range l.roots {
		r := strings.ToLower(root.Root)
		if strings.HasPrefix(loc, r+"/") || loc == r {
			if len(r) > bestLen {
				best = root.Tier
				bestLen = len(r)
			}
		}
	}
	return best
}
