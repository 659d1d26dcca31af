package models

import "strings"

// Tier is a ranked storage-location category in the backup hierarchy.
// Archive is the destination of record; staging tiers hold data awaiting
// archive ingest; local covers acquisition-machine copies; anything else is
// other. Higher-ranked tiers are checked first when resolving backup status.
type Tier string

const (
	TierArchive Tier = "archive"
	TierStaging Tier = "staging"
	TierLocal   Tier = "local"
	TierOther   Tier = "other"
)

// Rank orders tiers, highest first. Unknown tiers rank below other.
func (t Tier) Rank() int {
	switch t {
	case TierArchive:
		return 3
	case TierStaging:
		return 2
	case TierLocal:
		return 1
	case TierOther:
		return 0
	default:
		return -1
	}
}

// BackupStatus is the resolved position of a file in the backup process
type BackupStatus string

const (
	// StatusNoMatches means the store returned nothing relatable at all
	StatusNoMatches BackupStatus = "no_matches"
	// StatusNoCopiesInStore means matches exist but none is a copy candidate
	StatusNoCopiesInStore BackupStatus = "no_copies_in_store"
	// StatusNoBackupsOnDisk means copy candidates exist in the store but
	// none still exists on disk
	StatusNoBackupsOnDisk BackupStatus = "no_backups_in_filesystem"
	// StatusNoChecksums means neither the subject nor any self entry carries
	// a checksum yet
	StatusNoChecksums BackupStatus = "no_checksums"
	// StatusPossibleUnsynced means only invalid copies exist: the data may
	// have changed since backup and needs manual review
	StatusPossibleUnsynced BackupStatus = "possible_unsynced"
	// StatusUnknown is the conservative fallback
	StatusUnknown BackupStatus = "unknown"
)

const (
	validOnPrefix       = "valid_on_"
	unconfirmedOnPrefix = "unconfirmed_on_"
)

// ValidOn returns the status for a confirmed backup on the given tier
func ValidOn(t Tier) BackupStatus {
	return BackupStatus(validOnPrefix + string(t))
}

// UnconfirmedOn returns the status for an unconfirmed copy on the given tier
func UnconfirmedOn(t Tier) BackupStatus {
	return BackupStatus(unconfirmedOnPrefix + string(t))
}

// Deletable reports whether the status permits reclaiming the subject's disk
// space. Only a checksum-valid backup on some tier qualifies; everything
// else fails closed.
func (s BackupStatus) Deletable() bool {
	return strings.HasPrefix(string(s), validOnPrefix)
}

// Unconfirmed reports whether the status calls for checksum completion
func (s BackupStatus) Unconfirmed() bool {
	return strings.HasPrefix(string(s), unconfirmedOnPrefix)
}

// TierOf returns the tier encoded in a valid/unconfirmed status, or ""
func (s BackupStatus) TierOf() Tier {
	str := string(s)
	switch {
	case strings.HasPrefix(str, validOnPrefix):
		return Tier(strings.TrimPrefix(str, validOnPrefix))
	case strings.HasPrefix(str, unconfirmedOnPrefix):
		return Tier(strings.TrimPrefix(str, unconfirmedOnPrefix))
	default:
		return ""
	}
}
