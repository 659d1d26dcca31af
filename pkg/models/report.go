package models

import (
	"time"
)

// SweepError records a single file's failure inside a sweep. One file's
// failure never aborts the sweep; errors are collected here instead.
type SweepError struct {
	Path      string
	Error     string
	Timestamp time.Time
}

// SweepReport is the result of one clearing sweep over a folder
type SweepReport struct {
	OperationID string
	Folder      string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	FilesScanned int
	FilesDeleted int
	FilesSkipped int
	BytesFreed   int64

	Errors []SweepError
}

// CopyResult describes what a copy operation ended up doing
type CopyResult string

const (
	// CopyResultCopied means the bytes were physically copied
	CopyResultCopied CopyResult = "copied"
	// CopyResultValidated means copy and checksum validation both succeeded
	CopyResultValidated CopyResult = "validated"
	// CopyResultSkipped means no copy was needed (a prior valid copy was
	// already confirmed, possibly since cleared from disk)
	CopyResultSkipped CopyResult = "skipped"
	// CopyResultSourceRemoved means validation succeeded and the source was deleted
	CopyResultSourceRemoved CopyResult = "source_removed"
	// CopyResultFailed means the operation gave up; both files untouched
	CopyResultFailed CopyResult = "failed"
)

// CopyOutcome is the result of one copy-validate-(delete) operation
type CopyOutcome struct {
	Result      CopyResult
	Source      string
	Destination string
	Attempts    int
	BytesCopied int64
	Duration    time.Duration
}
