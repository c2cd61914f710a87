package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zestra/zdmt/series"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	st, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	st, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('indicators','data_points')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["indicators"])
	assert.True(t, found["data_points"])
}

func TestSQLiteCreateAndFindIndicator(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)

	ind := &Indicator{
		Name:       "US GDP",
		Slug:       "gdp-us",
		SourceType: "fred",
		IsActive:   true,
	}
	id, err := st.CreateIndicator(ind)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := st.FindIndicatorBySlug("gdp-us")
	require.NoError(t, err)
	assert.Equal(t, "US GDP", got.Name)
	assert.Equal(t, "fred", got.SourceType)
	assert.True(t, got.IsActive)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteFindMissing(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	_, err := st.FindIndicatorBySlug("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteDuplicateSlug(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	_, err := st.CreateIndicator(&Indicator{Name: "A", Slug: "dup", SourceType: "csv"})
	require.NoError(t, err)

	_, err = st.CreateIndicator(&Indicator{Name: "B", Slug: "dup", SourceType: "csv"})
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestSQLitePointsRoundTrip(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	id, err := st.CreateIndicator(&Indicator{Name: "U", Slug: "u", SourceType: "csv"})
	require.NoError(t, err)

	d := func(s string) time.Time {
		tm, err := time.Parse(series.DateFormat, s)
		require.NoError(t, err)
		return tm
	}

	// Inserted out of order; reads come back date-ascending.
	pts := series.Series{
		{Date: d("2020-07-01"), Value: series.Float(105)},
		{Date: d("2020-01-01"), Value: series.Float(100)},
		{Date: d("2020-04-01"), Value: nil},
	}
	require.NoError(t, st.UpsertPoints(id, pts))

	got, err := st.GetSeries(id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, d("2020-01-01"), got[0].Date)
	assert.InDelta(t, 100, *got[0].Value, 1e-9)
	assert.Nil(t, got[1].Value)
	assert.Equal(t, d("2020-07-01"), got[2].Date)

	// Upserting the same date replaces the value.
	require.NoError(t, st.UpsertPoints(id, series.Series{
		{Date: d("2020-04-01"), Value: series.Float(102)},
	}))
	got, err = st.GetSeries(id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 102, *got[1].Value, 1e-9)
}

func TestSQLiteDeleteIndicatorCascades(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	id, err := st.CreateIndicator(&Indicator{Name: "X", Slug: "x", SourceType: "csv"})
	require.NoError(t, err)
	require.NoError(t, st.UpsertPoints(id, series.Series{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: series.Float(1)},
	}))

	require.NoError(t, st.DeleteIndicator(id))

	_, err = st.FindIndicatorBySlug("x")
	assert.ErrorIs(t, err, ErrNotFound)
	pts, err := st.GetSeries(id)
	require.NoError(t, err)
	assert.Empty(t, pts)
}

func TestCalculationLinkRoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := EncodeCalculationSource(CalculationSource{
		CalculationID: "01ABC",
		Formula:       "MA(GDP_US, 12)",
	})
	require.NoError(t, err)

	ind := &Indicator{SourceType: SourceCalculation, SourceConfig: cfg}
	link, err := ind.CalculationLink()
	require.NoError(t, err)
	assert.Equal(t, "01ABC", link.CalculationID)
	assert.Equal(t, "MA(GDP_US, 12)", link.Formula)

	raw := &Indicator{SourceType: "fred"}
	_, err = raw.CalculationLink()
	assert.Error(t, err)
}
