package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/avandam/datasweep/pkg/checksum"
	"github.com/avandam/datasweep/pkg/compare"
	"github.com/avandam/datasweep/pkg/models"
)

// fileRow is the persisted shape of a FileRecord. One row per
// (location, algorithm) pair, so a file hashed with two algorithms keeps
// both digests.
type fileRow struct {
	ID          uint   `gorm:"primaryKey"`
	Location    string `gorm:"uniqueIndex:uniq_location_algorithm;size:1024"`
	Name        string `gorm:"index;size:255"`
	Size        int64
	Algorithm   string `gorm:"uniqueIndex:uniq_location_algorithm;size:32"`
	Digest      string `gorm:"index;size:64"`
	SessionID   string `gorm:"index;size:64"`
	SessionDate string `gorm:"size:16"`
	Subgroup    string `gorm:"size:16"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (fileRow) TableName() string { return "file_records" }

func rowFromRecord(rec models.FileRecord) fileRow {
	return fileRow{
		Location:    rec.Location,
		Name:        rec.Name,
		Size:        rec.Size,
		Algorithm:   rec.Checksum.Algorithm,
		Digest:      rec.Checksum.Value,
		SessionID:   rec.SessionID,
		SessionDate: rec.SessionDate,
		Subgroup:    rec.Subgroup,
	}
}

// SQLite is the RecordStore over a single sqlite database file
type SQLite struct {
	db      *gorm.DB
	formats *checksum.Registry
}

// Open opens (creating if needed) the record database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open record store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&fileRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate record store: %w", err)
	}
	return &SQLite{db: db, formats: checksum.DefaultRegistry()}, nil
}

// hydrate rebuilds a FileRecord from a row, checking any persisted digest
// against its algorithm's format. The database can be edited or corrupted
// outside this process; a malformed digest fails the record that carries it
// here instead of flowing into classification.
func (s *SQLite) hydrate(r fileRow) (models.FileRecord, error) {
	if err := s.formats.CheckFormat(r.Algorithm, r.Digest); err != nil {
		return models.FileRecord{}, fmt.Errorf("bad stored record for %s: %w", r.Location, err)
	}
	return models.FileRecord{
		Location:    r.Location,
		Name:        r.Name,
		Size:        r.Size,
		Checksum:    models.Checksum{Algorithm: r.Algorithm, Value: r.Digest},
		SessionID:   r.SessionID,
		SessionDate: r.SessionDate,
		Subgroup:    r.Subgroup,
	}, nil
}

// Add upserts rec keyed on (location, algorithm). A checksummed record
// supersedes any checksum-less placeholder row for the same location, so a
// file never reads as both hashed and unhashed.
func (s *SQLite) Add(ctx context.Context, rec models.FileRecord) error {
	if rec.Location == "" {
		return models.ErrEmptyRecord
	}
	if err := s.formats.CheckFormat(rec.Checksum.Algorithm, rec.Checksum.Value); err != nil {
		return fmt.Errorf("refusing to store record for %s: %w", rec.Location, err)
	}
	row := rowFromRecord(rec)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "location"}, {Name: "algorithm"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "size", "digest", "session_id", "session_date", "subgroup", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store record for %s: %w", rec.Location, err)
	}

	if rec.HasChecksum() {
		err = s.db.WithContext(ctx).
			Where("location = ? AND algorithm = ''", rec.Location).
			Delete(&fileRow{}).Error
		if err != nil {
			return fmt.Errorf("failed to drop placeholder row for %s: %w", rec.Location, err)
		}
	}
	return nil
}

// Matches pre-filters candidate rows in SQL, then classifies each candidate
// locally and keeps those falling in the requested sets.
func (s *SQLite) Matches(ctx context.Context, subject models.FileRecord, sets ...models.MatchSet) ([]models.FileRecord, error) {
	rows, err := s.candidates(ctx, subject)
	if err != nil {
		return nil, err
	}

	records := make([]models.FileRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := s.hydrate(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return compare.FilterKinds(subject, records, sets...), nil
}

// candidates narrows the table to rows that could possibly classify as
// anything other than unrelated: same session when the subject has one,
// otherwise same size, digest, name or location.
func (s *SQLite) candidates(ctx context.Context, subject models.FileRecord) ([]fileRow, error) {
	q := s.db.WithContext(ctx).Model(&fileRow{})

	if subject.SessionID != "" {
		q = q.Where("session_id = ?", subject.SessionID)
	} else {
		conds := []string{"size = ?", "LOWER(location) = ?"}
		args := []interface{}{subject.Size, strings.ToLower(subject.Location)}
		if subject.Name != "" {
			conds = append(conds, "name = ?")
			args = append(args, subject.Name)
		}
		if subject.HasChecksum() {
			conds = append(conds, "digest = ?")
			args = append(args, subject.Checksum.Value)
		}
		q = q.Where(strings.Join(conds, " OR "), args...)
	}

	var rows []fileRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query matches for %s: %w", subject.Location, err)
	}
	return rows, nil
}

// BySession returns every stored record for a session
func (s *SQLite) BySession(ctx context.Context, sessionID string) ([]models.FileRecord, error) {
	var rows []fileRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("location, algorithm").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}
	records := make([]models.FileRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := s.hydrate(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the underlying database connection
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
