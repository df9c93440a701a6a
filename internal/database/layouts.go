package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/delve/internal/dungeon"
)

var (
	ErrLayoutExists   = errors.New("layout name already exists")
	ErrLayoutNotFound = errors.New("layout not found")
)

// LayoutSummary is the indexed part of a stored layout.
type LayoutSummary struct {
	ID           int64
	Name         string
	Seed         string
	SeedValue    uint32
	Mode         dungeon.Mode
	BaseUnit     int
	PointCount   int
	SegmentCount int
	DoorwayCount int
	ShiftCount   int
	Fingerprint  string
	GeneratedAt  time.Time
}

// StoredLayout is a summary plus the full layout.
type StoredLayout struct {
	LayoutSummary
	Layout *dungeon.Layout
}

const layoutColumns = `id, name, seed, seed_value, mode, base_unit, point_count, segment_count,
	doorway_count, shift_count, fingerprint, generated_at`

// SaveLayout stores a layout under name and returns its id.
func (d *Database) SaveLayout(name string, l *dungeon.Layout) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("layout name is required")
	}

	stored := *l
	stored.Name = name
	data, err := yaml.Marshal(&stored)
	if err != nil {
		return 0, fmt.Errorf("failed to encode layout: %w", err)
	}

	query := d.qb.BuildWithReturning(`
		INSERT INTO layouts (name, seed, seed_value, mode, base_unit, point_count, segment_count,
			doorway_count, shift_count, fingerprint, generated_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, "id")
	args := []any{
		name, l.Seed, int64(l.SeedValue), string(l.Mode), l.BaseUnit,
		len(l.Points), len(l.Segments), len(l.Doorways), l.ShiftCount,
		l.Fingerprint, l.GeneratedAt.UTC().Format(time.RFC3339Nano), string(data),
	}

	var id int64
	if d.dialect.SupportsLastInsertID() {
		result, err := d.db.Exec(query, args...)
		if err != nil {
			if d.dialect.IsDuplicateKeyError(err) {
				return 0, ErrLayoutExists
			}
			return 0, fmt.Errorf("failed to insert layout: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to get layout ID: %w", err)
		}
	} else if err := d.db.QueryRow(query, args...).Scan(&id); err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return 0, ErrLayoutExists
		}
		return 0, fmt.Errorf("failed to insert layout: %w", err)
	}

	return id, nil
}

// GetLayout loads a layout by id.
func (d *Database) GetLayout(id int64) (*StoredLayout, error) {
	row := d.db.QueryRow(d.qb.Build(`SELECT `+layoutColumns+`, data FROM layouts WHERE id = ?`), id)
	return scanStored(row)
}

// GetLayoutByName loads a layout by name, ignoring case.
func (d *Database) GetLayoutByName(name string) (*StoredLayout, error) {
	row := d.db.QueryRow(d.qb.Build(`SELECT `+layoutColumns+`, data FROM layouts WHERE name = ?`), name)
	return scanStored(row)
}

// ListLayouts returns every stored layout summary, newest first.
func (d *Database) ListLayouts() ([]LayoutSummary, error) {
	rows, err := d.db.Query(`SELECT ` + layoutColumns + ` FROM layouts ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query layouts: %w", err)
	}
	defer rows.Close()

	var out []LayoutSummary
	for rows.Next() {
		var s LayoutSummary
		var generatedAt string
		if err := rows.Scan(summaryFields(&s, &generatedAt)...); err != nil {
			return nil, fmt.Errorf("failed to scan layout: %w", err)
		}
		s.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindByFingerprint returns the summaries of layouts with the given fingerprint.
func (d *Database) FindByFingerprint(fingerprint string) ([]LayoutSummary, error) {
	rows, err := d.db.Query(d.qb.Build(`SELECT `+layoutColumns+` FROM layouts WHERE fingerprint = ? ORDER BY id`), fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to query layouts: %w", err)
	}
	defer rows.Close()

	var out []LayoutSummary
	for rows.Next() {
		var s LayoutSummary
		var generatedAt string
		if err := rows.Scan(summaryFields(&s, &generatedAt)...); err != nil {
			return nil, fmt.Errorf("failed to scan layout: %w", err)
		}
		s.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteLayout removes a layout by id.
func (d *Database) DeleteLayout(id int64) error {
	result, err := d.db.Exec(d.qb.Build(`DELETE FROM layouts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete layout: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return ErrLayoutNotFound
	}
	return nil
}

// LayoutExists checks if a layout name is taken.
func (d *Database) LayoutExists(name string) (bool, error) {
	var count int
	err := d.db.QueryRow(d.qb.Build(`SELECT COUNT(*) FROM layouts WHERE name = ?`), name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check layout: %w", err)
	}
	return count > 0, nil
}

func summaryFields(s *LayoutSummary, generatedAt *string) []any {
	return []any{
		&s.ID, &s.Name, &s.Seed, &s.SeedValue, &s.Mode, &s.BaseUnit, &s.PointCount,
		&s.SegmentCount, &s.DoorwayCount, &s.ShiftCount, &s.Fingerprint, generatedAt,
	}
}

func scanStored(row *sql.Row) (*StoredLayout, error) {
	var s StoredLayout
	var generatedAt, data string
	if err := row.Scan(append(summaryFields(&s.LayoutSummary, &generatedAt), &data)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLayoutNotFound
		}
		return nil, fmt.Errorf("failed to load layout: %w", err)
	}
	s.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generatedAt)

	var l dungeon.Layout
	if err := yaml.Unmarshal([]byte(data), &l); err != nil {
		return nil, fmt.Errorf("failed to decode layout %d: %w", s.ID, err)
	}
	s.Layout = &l
	return &s, nil
}
