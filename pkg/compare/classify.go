// Package compare classifies the relationship between two file records.
//
// Classification is a fixed-precedence decision tree over the records'
// fields: location, name, size, checksum and subgroup tag. Order matters,
// and the result is not generally symmetric in its operands (see
// models.MatchSelfMissingSelf). The tree is evaluated locally every time a
// store candidate is considered; store-side filtering is a shortcut, never
// an authority.
package compare

import (
	"os"

	"github.com/avandam/datasweep/pkg/models"
)

// sameFileHint is the best-effort answer to "do these two paths address the
// same physical file". Unknown when either path cannot be statted.
type sameFileHint int

const (
	sameFileUnknown sameFileHint = iota
	sameFileYes
	sameFileNo
)

// Classify returns the MatchKind relating subject a to candidate b.
//
// It is a pure function of the two records' fields: identical inputs always
// yield identical results. Swapping the operands yields the name-equivalent
// classification for every kind except the SELF_MISSING_SELF /
// SELF_MISSING_OTHER pair, whose operand-order dependence is deliberate.
func Classify(a, b models.FileRecord) models.MatchKind {
	return classify(a, b, sameFileUnknown)
}

// ClassifyOnDisk is Classify with a best-effort physical-identity check:
// when both locations currently exist, os.SameFile decides whether they
// address the same file (catching hard links and mount aliases that string
// comparison misses). Inaccessible paths degrade to the pure Classify.
func ClassifyOnDisk(a, b models.FileRecord) models.MatchKind {
	return classify(a, b, statSameFile(a.Location, b.Location))
}

func statSameFile(pa, pb string) sameFileHint {
	ia, err := os.Stat(pa)
	if err != nil {
		return sameFileUnknown
	}
	ib, err := os.Stat(pb)
	if err != nil {
		return sameFileUnknown
	}
	if os.SameFile(ia, ib) {
		return sameFileYes
	}
	return sameFileNo
}

func classify(a, b models.FileRecord, hint sameFileHint) models.MatchKind {
	sameLoc := a.SameLocation(b) || hint == sameFileYes
	sameName := a.SameName(b)
	sameSize := a.Size == b.Size
	sameGroup := a.Subgroup == b.Subgroup
	aCS, bCS := a.HasChecksum(), b.HasChecksum()
	sameAlgo := aCS && bCS && a.Checksum.Algorithm == b.Checksum.Algorithm
	sameSum := aCS && bCS && a.Checksum.Value == b.Checksum.Value

	// notSelf blocks the self branch when the filesystem proves the
	// locations are distinct files; notCopy blocks the copy branches when
	// it proves they are the same file.
	notSelf := hint == sameFileNo
	notCopy := hint == sameFileYes

	switch {
	// Same physical file: full identity, or both sides equally incomplete
	// at the same location.
	case !notSelf && a.Identity() == b.Identity():
		return models.MatchSelf
	case !notSelf && sameSum && sameSize && sameLoc:
		return models.MatchSelf

	// Self with one checksum missing. Operand order decides which of the
	// two kinds is returned; downstream checksum completion relies on it.
	case !notSelf && sameSize && sameLoc && !aCS && bCS:
		return models.MatchSelfMissingSelf
	case !notSelf && sameSize && sameLoc && aCS && !bCS:
		return models.MatchSelfMissingOther

	case !notSelf && sameSize && sameLoc && aCS && bCS && !sameAlgo:
		return models.MatchSelfChecksumTypeMismatch

	// Stale entry for the same path: size or comparable checksum disagrees.
	case !notSelf && sameLoc && (!sameSize || (aCS && bCS && sameAlgo && !sameSum)):
		return models.MatchSelfPreviousVersion

	// Copy candidates: same name, size and subgroup at another location,
	// split by which side lacks a checksum.
	case !notCopy && !sameLoc && sameSize && sameName && sameGroup && !aCS && !bCS:
		return models.MatchCopyMissingBoth
	case !notCopy && !sameLoc && sameSize && sameName && sameGroup && aCS && !bCS:
		return models.MatchCopyMissingOther
	case !notCopy && !sameLoc && sameSize && sameName && sameGroup && !aCS && bCS:
		return models.MatchCopyMissingSelf
	case !notCopy && !sameLoc && sameSize && sameName && sameGroup && aCS && bCS && !sameAlgo:
		return models.MatchCopyChecksumTypeMismatch

	// Size and subgroup agree under a different name, checksums cannot yet
	// settle it.
	case !notCopy && !sameLoc && sameSize && !sameName && sameGroup &&
		(!aCS || !bCS || !sameAlgo):
		return models.MatchPossibleCopyRenamed

	// Checksum-confirmed copies.
	case !notCopy && !sameLoc && sameSize && sameName && sameGroup && sameSum:
		return models.MatchValidCopy
	case !notCopy && !sameLoc && sameSize && !sameName && sameGroup && sameSum:
		return models.MatchValidCopyRenamed

	// Same name elsewhere with comparable checksums that disagree with the
	// data: the copy is unsynced, corrupt, or the store entry is stale.
	case !notCopy && !sameLoc && sameName && sameGroup && sameAlgo:
		switch {
		case !sameSize && !sameSum:
			return models.MatchCopyUnsyncedData
		case !sameSize && sameSum:
			// equal digests over unequal sizes cannot describe the same
			// content; the recorded checksum needs regenerating
			return models.MatchCopyUnsyncedChecksum
		default:
			return models.MatchCopyUnsyncedOrCorruptData
		}

	// Equal digests over different data under different names.
	case !notCopy && sameAlgo && sameSum && !sameSize && !sameName:
		return models.MatchChecksumCollision

	// Nothing in common.
	case !notCopy && sameAlgo && !sameSum && !sameSize && !sameName:
		return models.MatchUnrelated
	}

	if aCS && bCS && !sameAlgo {
		return models.MatchUnknownChecksumTypeMismatch
	}
	return models.MatchUnknown
}

// FilterKinds returns the candidates whose classification against subject is
// in any of the given sets. With no sets given, everything outside
// models.IgnoredSet is returned.
func FilterKinds(subject models.FileRecord, candidates []models.FileRecord, sets ...models.MatchSet) []models.FileRecord {
	var out []models.FileRecord
	for _, c := range candidates {
		kind := Classify(subject, c)
		if len(sets) == 0 {
			if !models.IgnoredSet.Contains(kind) {
				out = append(out, c)
			}
			continue
		}
		for _, s := range sets {
			if s.Contains(kind) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
