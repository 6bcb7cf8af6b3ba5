package marketdata

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/database"
)

func newTestCache(t *testing.T) (*CacheRepository, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewCacheRepository(db.Conn(), zerolog.Nop()), db
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCacheRepository_UpsertAndGetPrices(t *testing.T) {
	cache, _ := newTestCache(t)

	require.NoError(t, cache.UpsertPrices("AAPL", []PricePoint{
		{Date: "2023-05-03", Close: 151.0},
		{Date: "2023-05-01", Close: 150.0},
		{Date: "2023-05-02", Close: 150.5},
	}))

	points, err := cache.GetPrices("AAPL", day("2023-05-01"), day("2023-05-03"))
	require.NoError(t, err)
	require.Len(t, points, 3)

	// Ascending by date regardless of insert order.
	assert.Equal(t, "2023-05-01", points[0].Date)
	assert.Equal(t, "2023-05-03", points[2].Date)
	assert.InDelta(t, 150.5, points[1].Close, 1e-9)
}

func TestCacheRepository_GetPrices_FiltersRange(t *testing.T) {
	cache, _ := newTestCache(t)

	require.NoError(t, cache.UpsertPrices("AAPL", []PricePoint{
		{Date: "2023-05-01", Close: 150.0},
		{Date: "2023-05-02", Close: 150.5},
		{Date: "2023-05-03", Close: 151.0},
	}))

	points, err := cache.GetPrices("AAPL", day("2023-05-02"), day("2023-05-02"))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2023-05-02", points[0].Date)

	points, err = cache.GetPrices("MSFT", day("2023-05-01"), day("2023-05-03"))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestCacheRepository_UpsertOverwrites(t *testing.T) {
	cache, _ := newTestCache(t)

	require.NoError(t, cache.UpsertPrices("AAPL", []PricePoint{{Date: "2023-05-01", Close: 150.0}}))
	require.NoError(t, cache.UpsertPrices("AAPL", []PricePoint{{Date: "2023-05-01", Close: 152.5}}))

	points, err := cache.GetPrices("AAPL", day("2023-05-01"), day("2023-05-01"))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 152.5, points[0].Close, 1e-9)
}

func TestCacheRepository_UpsertEmptyIsNoop(t *testing.T) {
	cache, _ := newTestCache(t)
	require.NoError(t, cache.UpsertPrices("AAPL", nil))
}

func TestCacheRepository_LastFetch(t *testing.T) {
	cache, _ := newTestCache(t)

	rec, err := cache.LastFetch("AAPL")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, cache.MarkFetched("AAPL", day("2020-01-01"), day("2023-01-01")))

	rec, err = cache.LastFetch("AAPL")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, "2020-01-01", rec.StartDate)
	assert.Equal(t, "2023-01-01", rec.EndDate)
	assert.WithinDuration(t, time.Now(), rec.FetchedAt, time.Minute)
}

func TestCacheRepository_StaleSymbols(t *testing.T) {
	cache, db := newTestCache(t)

	require.NoError(t, cache.MarkFetched("OLD", day("2020-01-01"), day("2023-01-01")))
	require.NoError(t, cache.MarkFetched("FRESH", day("2020-01-01"), day("2023-01-01")))

	// Age one record behind the repository's back.
	aged := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	_, err := db.Conn().Exec(`UPDATE price_fetches SET fetched_at = ? WHERE symbol = ?`, aged, "OLD")
	require.NoError(t, err)

	stale, err := cache.StaleSymbols(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD"}, stale)
}

func TestCacheRepository_Stats(t *testing.T) {
	cache, _ := newTestCache(t)

	stats, err := cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, CacheStats{}, stats)

	require.NoError(t, cache.UpsertPrices("AAPL", []PricePoint{
		{Date: "2023-05-01", Close: 150.0},
		{Date: "2023-05-02", Close: 150.5},
	}))
	require.NoError(t, cache.UpsertPrices("MSFT", []PricePoint{
		{Date: "2023-05-01", Close: 310.0},
	}))

	stats, err = cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, CacheStats{Symbols: 2, Rows: 3}, stats)
}
