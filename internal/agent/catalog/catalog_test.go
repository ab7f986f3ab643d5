package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

func ptr(f float64) *float64 { return &f }

func TestBuildListingQuery_Empty(t *testing.T) {
	query, args := buildListingQuery(model.ListingFilter{})

	assert.Contains(t, query, "WHERE 1=1\n")
	assert.Contains(t, query, "LIMIT $1")
	assert.Equal(t, []any{DefaultLimit}, args)
}

func TestBuildListingQuery_AllFilters(t *testing.T) {
	query, args := buildListingQuery(model.ListingFilter{
		Location:    "Lake Tahoe",
		Amenities:   []string{"Fire pit", " BBQ Grill "},
		MinPrice:    ptr(20),
		MaxPrice:    ptr(50),
		MinCapacity: 4,
		ExcludeIDs:  []string{"spot-9"},
		Limit:       3,
	})

	assert.Contains(t, query, "(s.city ILIKE $1 OR s.country ILIKE $1)")
	assert.Contains(t, query, "LOWER(fn.name) = ANY($2)")
	assert.Contains(t, query, "s.price >= $3")
	assert.Contains(t, query, "s.price <= $4")
	assert.Contains(t, query, "s.capacity >= $5")
	assert.Contains(t, query, "NOT (s.id = ANY($6))")
	assert.Contains(t, query, "LIMIT $7")

	require.Len(t, args, 7)
	assert.Equal(t, "%Lake Tahoe%", args[0])
	assert.Equal(t, pq.Array([]string{"fire pit", "bbq grill"}), args[1])
	assert.Equal(t, 20.0, args[2])
	assert.Equal(t, 50.0, args[3])
	assert.Equal(t, 4, args[4])
	assert.Equal(t, pq.Array([]string{"spot-9"}), args[5])
	assert.Equal(t, 3, args[6])
}

func TestBuildListingQuery_EscapesLikePattern(t *testing.T) {
	_, args := buildListingQuery(model.ListingFilter{Location: "100%_lake"})
	assert.Equal(t, `%100\%\_lake%`, args[0])
}

func TestBuildListingQuery_OnlyMaxPrice(t *testing.T) {
	query, args := buildListingQuery(model.ListingFilter{MaxPrice: ptr(80)})
	assert.Contains(t, query, "s.price <= $1")
	assert.NotContains(t, query, "s.price >=")
	assert.Equal(t, []any{80.0, DefaultLimit}, args)
}

func TestMemoryCatalog_CountListingsWithAmenity(t *testing.T) {
	c := NewSeededCatalog()
	ctx := context.Background()

	n, err := c.CountListingsWithAmenity(ctx, "fire PIT")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = c.CountListingsWithAmenity(ctx, "campfire")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryCatalog_SearchListings(t *testing.T) {
	c := NewSeededCatalog()
	ctx := context.Background()

	got, err := c.SearchListings(ctx, model.ListingFilter{
		Location: "tahoe",
		MinPrice: ptr(20),
		MaxPrice: ptr(50),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "spot-001", got[0].ID)

	got, err = c.SearchListings(ctx, model.ListingFilter{
		Amenities:  []string{"fire pit"},
		ExcludeIDs: []string{"spot-007"},
	})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, l := range got {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"spot-003", "spot-001", "spot-005"}, ids, "ordered by price")

	got, err = c.SearchListings(ctx, model.ListingFilter{MinCapacity: 7})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "spot-003", got[0].ID)
}

func TestMemoryCatalog_DefaultLimit(t *testing.T) {
	got, err := NewSeededCatalog().SearchListings(context.Background(), model.ListingFilter{})
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)
}

func TestMemoryCatalog_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSeededCatalog().SearchListings(ctx, model.ListingFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}

type countingCatalog struct {
	calls int
	err   error
}

func (c *countingCatalog) CountListingsWithAmenity(_ context.Context, name string) (int, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return len(name), nil
}

func TestCachedAmenityCatalog(t *testing.T) {
	inner := &countingCatalog{}
	c := NewCachedAmenityCatalog(inner, time.Minute)
	ctx := context.Background()

	n, err := c.CountListingsWithAmenity(ctx, "Wifi")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = c.CountListingsWithAmenity(ctx, " wifi ")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, inner.calls, "second lookup is served from cache")

	c.Flush()
	_, err = c.CountListingsWithAmenity(ctx, "wifi")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedAmenityCatalog_ErrorsNotCached(t *testing.T) {
	inner := &countingCatalog{err: errors.New("connection refused")}
	c := NewCachedAmenityCatalog(inner, time.Minute)
	ctx := context.Background()

	_, err := c.CountListingsWithAmenity(ctx, "shower")
	require.Error(t, err)

	inner.err = nil
	n, err := c.CountListingsWithAmenity(ctx, "shower")
	require.NoError(t, err)
	assert.Equal(t, len("shower"), n)
	assert.Equal(t, 2, inner.calls)
}

func TestSeedListings_Shape(t *testing.T) {
	seen := map[string]bool{}
	for _, l := range SeedListings {
		assert.False(t, seen[l.ID], "duplicate id %s", l.ID)
		seen[l.ID] = true
		assert.NotEmpty(t, strings.TrimSpace(l.Title))
		assert.Positive(t, l.Capacity)
	}
}
