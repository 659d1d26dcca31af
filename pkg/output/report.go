package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/avandam/datasweep/pkg/backup"
	"github.com/avandam/datasweep/pkg/models"
)

// FileStatus pairs one file with its backup evaluation, for status reports
type FileStatus struct {
	Record     models.FileRecord
	Evaluation backup.Evaluation
}

// WriteStatusReport renders the evaluations for a set of files in the given
// format ("human" or "json").
func WriteStatusReport(w io.Writer, statuses []FileStatus, format string) error {
	if format == "json" {
		return writeStatusJSON(w, statuses)
	}
	return writeStatusHuman(w, statuses)
}

func writeStatusHuman(w io.Writer, statuses []FileStatus) error {
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\n", s.Record.Location)
		fmt.Fprintf(w, "  size:     %s\n", formatBytes(s.Record.Size))
		if s.Record.HasChecksum() {
			fmt.Fprintf(w, "  checksum: %s:%s\n", s.Record.Checksum.Algorithm, s.Record.Checksum.Value)
		} else {
			fmt.Fprintf(w, "  checksum: (none)\n")
		}
		fmt.Fprintf(w, "  status:   %s", s.Evaluation.Status)
		if s.Evaluation.Deletable() {
			fmt.Fprintf(w, "  [clearable]")
		}
		fmt.Fprintf(w, "\n")

		for _, b := range s.Evaluation.Backups {
			presence := "on disk"
			if !b.OnDisk {
				presence = "missing"
			}
			fmt.Fprintf(w, "    %-8s %-28s %-8s %s\n", b.Tier, b.Kind, presence, b.Record.Location)
		}
		fmt.Fprintf(w, "\n")
	}

	deletable := 0
	for _, s := range statuses {
		if s.Evaluation.Deletable() {
			deletable++
		}
	}
	fmt.Fprintf(w, "%d files, %d clearable\n", len(statuses), deletable)
	return nil
}

type statusJSON struct {
	Path      string       `json:"path"`
	Size      int64        `json:"size"`
	Checksum  string       `json:"checksum,omitempty"`
	Algorithm string       `json:"algorithm,omitempty"`
	Status    string       `json:"status"`
	Clearable bool         `json:"clearable"`
	Backups   []backupJSON `json:"backups,omitempty"`
}

type backupJSON struct {
	Tier   string `json:"tier"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	OnDisk bool   `json:"on_disk"`
}

func writeStatusJSON(w io.Writer, statuses []FileStatus) error {
	out := make([]statusJSON, 0, len(statuses))
	for _, s := range statuses {
		entry := statusJSON{
			Path:      s.Record.Location,
			Size:      s.Record.Size,
			Checksum:  s.Record.Checksum.Value,
			Algorithm: s.Record.Checksum.Algorithm,
			Status:    string(s.Evaluation.Status),
			Clearable: s.Evaluation.Deletable(),
		}
		for _, b := range s.Evaluation.Backups {
			entry.Backups = append(entry.Backups, backupJSON{
				Tier:   string(b.Tier),
				Kind:   string(b.Kind),
				Path:   b.Record.Location,
				OnDisk: b.OnDisk,
			})
		}
		out = append(out, entry)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
