package registry

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zestra/zdmt/pkg/id"
)

// SQLite implements Registry on a single-file SQLite database. The unique
// index on slug is the arbiter when two writers derive the same slug
// concurrently: the second insert gets ErrDuplicateSlug.
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
// registry and the series store share one database file.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (r *SQLite) Create(c *Calculation) error {
	if c.ID == "" {
		c.ID = id.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`
		INSERT INTO calculations
		(id, name, slug, formula, indicators, output_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, c.Formula,
		strings.Join(c.Indicators, ","), c.OutputType.String(), c.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, c.Slug)
		}
		return err
	}
	return nil
}

func (r *SQLite) Get(calcID string) (*Calculation, error) {
	return r.getWhere(`id = ?`, calcID)
}

func (r *SQLite) GetBySlug(slug string) (*Calculation, error) {
	return r.getWhere(`slug = ?`, slug)
}

func (r *SQLite) getWhere(cond string, arg interface{}) (*Calculation, error) {
	row := r.db.QueryRow(`
		SELECT id, name, slug, formula, indicators, output_type, created_at
		FROM calculations
		WHERE `+cond, arg)

	c, err := scanCalculation(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, arg)
		}
		return nil, err
	}
	return c, nil
}

func (r *SQLite) List(limit int) ([]Calculation, error) {
	rows, err := r.db.Query(`
		SELECT id, name, slug, formula, indicators, output_type, created_at
		FROM calculations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Calculation
	for rows.Next() {
		c, err := scanCalculation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLite) Delete(calcID string) error {
	res, err := r.db.Exec(`DELETE FROM calculations WHERE id = ?`, calcID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, calcID)
	}
	return nil
}

func (r *SQLite) ListReferencing(slug string) ([]Calculation, error) {
	all, err := r.List(1 << 20)
	if err != nil {
		return nil, err
	}
	var out []Calculation
	for _, c := range all {
		for _, ref := range c.Indicators {
			if ref == slug {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (r *SQLite) UniqueSlug(name string) (string, error) {
	base := Slugify(name)
	if base == "" {
		return "", fmt.Errorf("%w: name produces an empty slug", ErrInvalidInput)
	}

	slug := base
	for n := 2; ; n++ {
		var exists int
		err := r.db.QueryRow(`SELECT COUNT(1) FROM calculations WHERE slug = ?`, slug).Scan(&exists)
		if err != nil {
			return "", err
		}
		if exists == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func scanCalculation(scan func(dest ...interface{}) error) (*Calculation, error) {
	var (
		c          Calculation
		indicators string
		outputType string
	)
	if err := scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Formula,
		&indicators,
		&outputType,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	if indicators != "" {
		c.Indicators = strings.Split(indicators, ",")
	}
	ot, err := ParseOutputType(outputType)
	if err != nil {
		return nil, fmt.Errorf("calculation %s: %w", c.ID, err)
	}
	c.OutputType = ot
	return &c, nil
}
