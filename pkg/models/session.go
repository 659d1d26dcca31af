package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Session identifies one recording run. Every file produced by the run
// carries the session folder string ([id]_[animal]_[date]) somewhere in its
// path; files that don't are orphans and take a reduced comparison path.
type Session struct {
	ID     string
	Animal string
	Date   string // YYYYMMDD
}

var (
	sessionPattern  = regexp.MustCompile(`[0-9]{8,}_[0-9]{6}_[0-9]{8}`)
	subgroupPattern = regexp.MustCompile(`_probe_?([A-F]+|[0-5])`)
)

// ParseSession extracts the session folder string from anywhere in a path.
// Returns ErrNoSession when the path carries no recognized session folder.
func ParseSession(p string) (Session, error) {
	m := sessionPattern.FindString(p)
	if m == "" {
		return Session{}, fmt.Errorf("%w: %s", ErrNoSession, p)
	}
	parts := strings.SplitN(m, "_", 3)
	return Session{ID: parts[0], Animal: parts[1], Date: parts[2]}, nil
}

// Folder returns the canonical session folder name
func (s Session) Folder() string {
	return s.ID + "_" + s.Animal + "_" + s.Date
}

// Time parses the session date component
func (s Session) Time() (time.Time, error) {
	return time.Parse("20060102", s.Date)
}

// SubgroupTag extracts the probe-group letter set from a directory path.
// Files in corresponding subgroup folders (e.g. _probeABC vs _probeDEF) can
// share name, size and even checksum while holding different data, so the
// tag participates in copy matching. A single digit 0-5 names the same
// groups and is mapped to its letter. Unrecognized paths return "".
func SubgroupTag(dir string) string {
	m := subgroupPattern.FindStringSubmatch(dir)
	if m == nil {
		return ""
	}
	tag := m[1]
	if len(tag) == 1 && tag[0] >= '0' && tag[0] <= '5' {
		tag = string(rune('A' + (tag[0] - '0')))
	}
	return tag
}

// SessionRelative returns the path of loc relative to the parent of its
// session folder, i.e. "<session folder>/.../name". When the session folder
// does not appear as a directory component the session folder is prepended,
// so the result is always a valid tier-relative path for the locator.
func SessionRelative(loc string, sess Session) string {
	folder := sess.Folder()
	norm := NormalizeLocation(loc)
	parts := strings.Split(norm, "/")
	for i, part := range parts {
		if strings.Contains(part, folder) {
			return strings.Join(parts[i:], "/")
		}
	}
	return folder + "/" + parts[len(parts)-1]
}
