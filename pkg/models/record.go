package models

import (
	"path"
	"strconv"
	"strings"
)

// SizeUnknown marks a record whose on-disk size has not been determined yet.
const SizeUnknown int64 = -1

// Checksum is a content digest tagged with the algorithm that produced it.
// A zero Checksum means "not computed yet".
type Checksum struct {
	// Algorithm is the provider name, e.g. "crc32", "sha256", "sha3-256"
	Algorithm string

	// Value is the lowercase/uppercase hex digest as emitted by the provider
	Value string
}

// IsSet reports whether a digest value is present
func (c Checksum) IsSet() bool {
	return c.Value != ""
}

// FileRecord describes one file at one location at one instant.
//
// Records are plain values and are never mutated after construction: any
// refinement (a newly computed checksum, a discovered size) produces a new
// record via With*. Identity is derived from (checksum, size, normalized
// location), matching the store's notion of a unique entry.
type FileRecord struct {
	// Location is the normalized slash-style path. Comparisons on Location
	// are case-insensitive.
	Location string

	// Name is the final path element
	Name string

	// Size in bytes, or SizeUnknown
	Size int64

	// Checksum is optional until computed
	Checksum Checksum

	// SessionID is the full session folder string ([id]_[animal]_[date]),
	// empty for orphan records
	SessionID string

	// SessionDate is the YYYYMMDD date component of the session folder,
	// empty when SessionID is empty
	SessionDate string

	// Subgroup is the probe-group letter set parsed from the path, empty
	// when the path carries no recognized subgroup pattern
	Subgroup string
}

// NewFileRecord builds a record from an already-normalized view of a file.
// Either a location or a checksum must be provided. Session and subgroup
// fields are derived from the location when present; a location without a
// session identifier yields an orphan record, not an error.
//
// The checksum is taken as given: digests are validated against their
// algorithm's format where they enter the system, by the checksum registry
// when computed and by the store when rows are written and read.
func NewFileRecord(location string, size int64, cs Checksum) (FileRecord, error) {
	if location == "" && !cs.IsSet() {
		return FileRecord{}, ErrEmptyRecord
	}

	rec := FileRecord{
		Size:     size,
		Checksum: cs,
	}

	if location != "" {
		rec.Location = NormalizeLocation(location)
		rec.Name = path.Base(rec.Location)
		if sess, err := ParseSession(rec.Location); err == nil {
			rec.SessionID = sess.Folder()
			rec.SessionDate = sess.Date
		}
		rec.Subgroup = SubgroupTag(strings.TrimSuffix(rec.Location, rec.Name))
	}

	return rec, nil
}

// HasSize reports whether the size is known
func (r FileRecord) HasSize() bool {
	return r.Size != SizeUnknown
}

// HasChecksum reports whether a digest has been computed or supplied
func (r FileRecord) HasChecksum() bool {
	return r.Checksum.IsSet()
}

// IsOrphan reports whether the record lacks a session identifier
func (r FileRecord) IsOrphan() bool {
	return r.SessionID == ""
}

// SameLocation compares normalized locations case-insensitively
func (r FileRecord) SameLocation(other FileRecord) bool {
	return strings.EqualFold(r.Location, other.Location)
}

// SameName compares file names case-insensitively
func (r FileRecord) SameName(other FileRecord) bool {
	return strings.EqualFold(r.Name, other.Name)
}

// Identity returns the tuple that defines record equality in the store:
// digest value, size and lowercased location.
func (r FileRecord) Identity() string {
	return r.Checksum.Value + "|" + itoa(r.Size) + "|" + strings.ToLower(r.Location)
}

// WithChecksum returns a copy of the record carrying the given digest
func (r FileRecord) WithChecksum(cs Checksum) FileRecord {
	r.Checksum = cs
	return r
}

// WithSize returns a copy of the record with a known size
func (r FileRecord) WithSize(size int64) FileRecord {
	r.Size = size
	return r
}

// NormalizeLocation converts a path to the canonical slash-style form used
// for all record comparisons. A leading double slash (network share prefix)
// survives path.Clean, which would otherwise collapse it.
func NormalizeLocation(p string) string {
	unc := strings.HasPrefix(p, "//") || strings.HasPrefix(p, `\\`)
	s := strings.ReplaceAll(p, `\`, "/")
	s = path.Clean(s)
	if unc && !strings.HasPrefix(s, "//") {
		s = "/" + s
	}
	return s
}

func itoa(n int64) string {
	if n == SizeUnknown {
		return "?"
	}
	return strconv.FormatInt(n, 10)
}
