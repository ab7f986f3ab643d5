package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campfinder-assistant/server/internal/agent/model"
	errx "github.com/campfinder-assistant/server/internal/core/error"
)

//go:embed schema.sql
var schemaSQL string

// DefaultLimit caps a listing search when the filter sets none.
const DefaultLimit = 5

// PostgresCatalog answers amenity and listing queries from the spots tables.
type PostgresCatalog struct {
	db *sqlx.DB
}

func NewPostgresCatalog(db *sqlx.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Migrate creates the catalog tables when they do not exist.
func (c *PostgresCatalog) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// CountListingsWithAmenity implements model.AmenityCatalog.
func (c *PostgresCatalog) CountListingsWithAmenity(ctx context.Context, name string) (int, error) {
	const query = `
		SELECT COUNT(DISTINCT sa.spot_id)
		FROM spot_amenities sa
		JOIN amenities a ON a.id = sa.amenity_id
		WHERE LOWER(a.name) = LOWER($1)`

	var n int
	if err := c.db.GetContext(ctx, &n, query, strings.TrimSpace(name)); err != nil {
		return 0, errx.WrapPostgres(err)
	}
	return n, nil
}

type listingRow struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Price        float64        `db:"price"`
	City         string         `db:"city"`
	Country      string         `db:"country"`
	Capacity     int            `db:"capacity"`
	ImageURLs    pq.StringArray `db:"image_urls"`
	AmenityNames pq.StringArray `db:"amenity_names"`
}

func (r listingRow) listing() model.Listing {
	return model.Listing{
		ID:        r.ID,
		Title:     r.Title,
		Price:     r.Price,
		City:      r.City,
		Country:   r.Country,
		Capacity:  r.Capacity,
		Amenities: append([]string{}, r.AmenityNames...),
		ImageURLs: append([]string{}, r.ImageURLs...),
	}
}

// SearchListings implements model.ListingCatalog.
func (c *PostgresCatalog) SearchListings(ctx context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	query, args := buildListingQuery(filter)

	var rows []listingRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errx.WrapPostgres(err)
	}

	out := make([]model.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.listing())
	}
	return out, nil
}

// buildListingQuery turns the filter into a parameterised query. Location is a
// substring match on city or country; amenities match when the spot has any of them.
func buildListingQuery(filter model.ListingFilter) (string, []any) {
	whereClauses := []string{"1=1"}
	args := []any{}
	argIndex := 1

	if loc := strings.TrimSpace(filter.Location); loc != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(s.city ILIKE $%d OR s.country ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(loc)+"%")
		argIndex++
	}
	if names := lowerAll(filter.Amenities); len(names) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM spot_amenities fa JOIN amenities fn ON fn.id = fa.amenity_id
			WHERE fa.spot_id = s.id AND LOWER(fn.name) = ANY($%d))`, argIndex))
		args = append(args, pq.Array(names))
		argIndex++
	}
	if filter.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("s.price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("s.price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}
	if filter.MinCapacity > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("s.capacity >= $%d", argIndex))
		args = append(args, filter.MinCapacity)
		argIndex++
	}
	if len(filter.ExcludeIDs) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("NOT (s.id = ANY($%d))", argIndex))
		args = append(args, pq.Array(filter.ExcludeIDs))
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := fmt.Sprintf(`
		SELECT
			s.id, s.title, s.price, s.city, s.country, s.capacity, s.image_urls,
			COALESCE(ARRAY_AGG(a.name ORDER BY a.name) FILTER (WHERE a.name IS NOT NULL), '{}') AS amenity_names
		FROM spots s
		LEFT JOIN spot_amenities sa ON sa.spot_id = s.id
		LEFT JOIN amenities a ON a.id = sa.amenity_id
		WHERE %s
		GROUP BY s.id
		ORDER BY s.price ASC, s.id ASC
		LIMIT $%d`, strings.Join(whereClauses, " AND "), argIndex)
	args = append(args, limit)

	return query, args
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
