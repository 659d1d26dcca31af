package models

// MatchKind classifies the relationship between two file records.
//
// The kinds form a closed set; downstream logic never inspects individual
// kinds directly but asks which named set a kind belongs to (SelfSet,
// ValidSet, UnconfirmedSet, InvalidSet, IgnoredSet).
type MatchKind string

const (
	// MatchSelf indicates both records denote the same physical file
	MatchSelf MatchKind = "self"
	// MatchSelfMissingSelf is self where only the subject lacks a checksum.
	// Note the operand-order dependence: swapping the arguments of Classify
	// turns this into MatchSelfMissingOther. Checksum-completion logic is
	// tuned to this, so it stays.
	MatchSelfMissingSelf MatchKind = "self_missing_self"
	// MatchSelfMissingOther is self where only the candidate lacks a checksum
	MatchSelfMissingOther MatchKind = "self_missing_other"
	// MatchSelfChecksumTypeMismatch is self with checksums from different algorithms
	MatchSelfChecksumTypeMismatch MatchKind = "self_checksum_type_mismatch"
	// MatchSelfPreviousVersion is a stale entry: same location, different content
	MatchSelfPreviousVersion MatchKind = "self_previous_version"

	// MatchCopyMissingBoth is a name/size/subgroup match with no checksums at all
	MatchCopyMissingBoth MatchKind = "copy_missing_both"
	// MatchCopyMissingSelf is a copy candidate where the subject lacks a checksum
	MatchCopyMissingSelf MatchKind = "copy_missing_self"
	// MatchCopyMissingOther is a copy candidate where the candidate lacks a checksum
	MatchCopyMissingOther MatchKind = "copy_missing_other"
	// MatchCopyChecksumTypeMismatch is a copy candidate with incomparable algorithms
	MatchCopyChecksumTypeMismatch MatchKind = "copy_checksum_type_mismatch"
	// MatchPossibleCopyRenamed is a same-size same-subgroup candidate under a
	// different name, with checksums indeterminate
	MatchPossibleCopyRenamed MatchKind = "possible_copy_renamed"

	// MatchCopyUnsyncedChecksum has differing sizes but equal checksums: the
	// stored checksum is out of date (equal digests with unequal sizes cannot
	// describe the same content)
	MatchCopyUnsyncedChecksum MatchKind = "copy_unsynced_checksum"
	// MatchCopyUnsyncedOrCorruptData has equal sizes but differing checksums
	MatchCopyUnsyncedOrCorruptData MatchKind = "copy_unsynced_or_corrupt_data"
	// MatchCopyUnsyncedData has both size and checksum differing
	MatchCopyUnsyncedData MatchKind = "copy_unsynced_data"

	// MatchValidCopy is a checksum-confirmed copy under the same name
	MatchValidCopy MatchKind = "valid_copy"
	// MatchValidCopyRenamed is a checksum-confirmed copy under a different name
	MatchValidCopyRenamed MatchKind = "valid_copy_renamed"

	// MatchChecksumCollision is the rare case of equal digests over different data
	MatchChecksumCollision MatchKind = "checksum_collision"
	// MatchUnrelated shares nothing: name, size and checksum all differ
	MatchUnrelated MatchKind = "unrelated"
	// MatchUnknown means insufficient information for any classification
	MatchUnknown MatchKind = "unknown"
	// MatchUnknownChecksumTypeMismatch is unknown with incomparable algorithms
	MatchUnknownChecksumTypeMismatch MatchKind = "unknown_checksum_type_mismatch"
)

// MatchSet is a named grouping of classification outcomes
type MatchSet []MatchKind

// Contains reports set membership
func (s MatchSet) Contains(k MatchKind) bool {
	for _, m := range s {
		if m == k {
			return true
		}
	}
	return false
}

// SelfSet holds kinds where subject and candidate are suspected to be the
// same file.
var SelfSet = MatchSet{
	MatchSelf,
	MatchSelfMissingSelf,
	MatchSelfMissingOther,
	MatchSelfChecksumTypeMismatch,
}

// ValidSet holds kinds where the candidate is a checksum-validated copy of
// the subject. Only these ever justify deleting the subject.
var ValidSet = MatchSet{
	MatchValidCopy,
	MatchValidCopyRenamed,
}

// UnconfirmedSet holds kinds where names and sizes suggest a copy and
// checksums do not contraindicate, but more checksums are needed to confirm.
var UnconfirmedSet = MatchSet{
	MatchCopyMissingBoth,
	MatchCopyMissingSelf,
	MatchCopyMissingOther,
	MatchCopyChecksumTypeMismatch,
	MatchPossibleCopyRenamed,
}

// InvalidSet holds kinds whose checksum or size indicates an invalid copy or
// out-of-date store information.
var InvalidSet = MatchSet{
	MatchCopyUnsyncedChecksum,
	MatchCopyUnsyncedOrCorruptData,
	MatchCopyUnsyncedData,
}

// IgnoredSet holds kinds that are never useful for validating backups
var IgnoredSet = MatchSet{
	MatchUnrelated,
	MatchUnknown,
	MatchUnknownChecksumTypeMismatch,
	MatchChecksumCollision,
	MatchSelfPreviousVersion,
}
