package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zestra/zdmt/series"
)

// SQLite implements Store on a single-file SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	return NewSQLite(db)
}

// NewSQLite wraps an existing handle, applying the schema. Used when the
// store and the registry share one database file.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) CreateIndicator(ind *Indicator) (int64, error) {
	if ind.CreatedAt.IsZero() {
		ind.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO indicators
		(name, slug, description, source_type, source_config, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ind.Name, ind.Slug, ind.Description, ind.SourceType,
		ind.SourceConfig, ind.IsActive, ind.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateSlug, ind.Slug)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	ind.ID = id
	return id, nil
}

func (s *SQLite) FindIndicatorBySlug(slug string) (*Indicator, error) {
	row := s.db.QueryRow(`
		SELECT id, name, slug, description, source_type, source_config, is_active, created_at
		FROM indicators
		WHERE slug = ?`, slug)

	var ind Indicator
	err := row.Scan(
		&ind.ID,
		&ind.Name,
		&ind.Slug,
		&ind.Description,
		&ind.SourceType,
		&ind.SourceConfig,
		&ind.IsActive,
		&ind.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		return nil, err
	}
	return &ind, nil
}

func (s *SQLite) ListIndicators(limit int) ([]Indicator, error) {
	rows, err := s.db.Query(`
		SELECT id, name, slug, description, source_type, source_config, is_active, created_at
		FROM indicators
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Indicator
	for rows.Next() {
		var ind Indicator
		if err := rows.Scan(
			&ind.ID,
			&ind.Name,
			&ind.Slug,
			&ind.Description,
			&ind.SourceType,
			&ind.SourceConfig,
			&ind.IsActive,
			&ind.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) DeleteIndicator(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM data_points WHERE indicator_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM indicators WHERE id = ?`, id)
	return err
}

func (s *SQLite) GetSeries(indicatorID int64) (series.Series, error) {
	rows, err := s.db.Query(`
		SELECT date, value
		FROM data_points
		WHERE indicator_id = ?
		ORDER BY date ASC`, indicatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out series.Series
	for rows.Next() {
		var (
			date  string
			value sql.NullFloat64
		)
		if err := rows.Scan(&date, &value); err != nil {
			return nil, err
		}
		t, err := time.Parse(series.DateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q in data_points: %w", date, err)
		}
		p := series.Point{Date: t}
		if value.Valid {
			v := value.Float64
			p.Value = &v
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) UpsertPoints(indicatorID int64, pts series.Series) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO data_points (indicator_id, date, value)
		VALUES (?, ?, ?)
		ON CONFLICT (indicator_id, date) DO UPDATE SET value = excluded.value`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range pts {
		var v interface{}
		if p.Value != nil {
			v = *p.Value
		}
		if _, err := stmt.Exec(indicatorID, p.Date.Format(series.DateFormat), v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
