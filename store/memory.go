package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/zestra/zdmt/series"
)

// Memory is an in-memory Store for tests and the formula playground. It
// mirrors SQLite semantics including the unique-slug constraint.
type Memory struct {
	mu         sync.Mutex
	nextID     int64
	indicators map[int64]*Indicator
	points     map[int64]series.Series
}

func NewMemory() *Memory {
	return &Memory{
		nextID:     1,
		indicators: make(map[int64]*Indicator),
		points:     make(map[int64]series.Series),
	}
}

func (m *Memory) CreateIndicator(ind *Indicator) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.indicators {
		if existing.Slug == ind.Slug {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateSlug, ind.Slug)
		}
	}
	if ind.CreatedAt.IsZero() {
		ind.CreatedAt = time.Now().UTC()
	}
	cp := *ind
	cp.ID = m.nextID
	m.nextID++
	m.indicators[cp.ID] = &cp
	ind.ID = cp.ID
	return cp.ID, nil
}

func (m *Memory) FindIndicatorBySlug(slug string) (*Indicator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ind := range m.indicators {
		if ind.Slug == slug {
			cp := *ind
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
}

func (m *Memory) ListIndicators(limit int) ([]Indicator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Indicator, 0, len(m.indicators))
	// Newest first, matching the SQLite ordering.
	for id := m.nextID - 1; id >= 1 && len(out) < limit; id-- {
		if ind, ok := m.indicators[id]; ok {
			out = append(out, *ind)
		}
	}
	return out, nil
}

func (m *Memory) DeleteIndicator(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.indicators, id)
	delete(m.points, id)
	return nil
}

func (m *Memory) GetSeries(indicatorID int64) (series.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pts := m.points[indicatorID]
	out := make(series.Series, len(pts))
	copy(out, pts)
	return out, nil
}

func (m *Memory) UpsertPoints(indicatorID int64, pts series.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := m.points[indicatorID]
	for _, p := range pts {
		replaced := false
		for i := range merged {
			if merged[i].Date.Equal(p.Date) {
				merged[i].Value = p.Value
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, p)
		}
	}
	m.points[indicatorID] = series.New(merged...)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
