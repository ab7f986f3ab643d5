package pipeline

import (
	"context"
	"strings"

	"github.com/campfinder-assistant/server/internal/agent/model"
	logx "github.com/campfinder-assistant/server/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// maxParallelLookups bounds concurrent catalog lookups per message.
const maxParallelLookups = 8

// amenityAlternatives lists substitutes offered when an amenity has no listings.
// Keys are lowercase.
var amenityAlternatives = map[string][]string{
	"campfire":    {"Fire pit", "BBQ grill", "Outdoor cooking area"},
	"bonfire":     {"Fire pit", "BBQ grill"},
	"grill":       {"BBQ grill", "Outdoor cooking area", "Fire pit"},
	"wifi":        {"Internet", "Wireless internet", "Cell coverage"},
	"internet":    {"Wifi", "Wireless internet"},
	"shower":      {"Hot shower", "Outdoor shower", "Bathroom"},
	"toilet":      {"Restroom", "Bathroom", "Composting toilet"},
	"bathroom":    {"Restroom", "Toilet", "Shower"},
	"electricity": {"Electric hookup", "Power outlet", "Solar power"},
	"pool":        {"Swimming pool", "Lake access", "Hot tub"},
	"hot tub":     {"Jacuzzi", "Sauna", "Swimming pool"},
	"parking":     {"Free parking", "RV parking"},
	"pets":        {"Pet friendly", "Dog friendly"},
	"kitchen":     {"Outdoor cooking area", "Kitchenette", "BBQ grill"},
	"water":       {"Drinking water", "Potable water"},
	"hammock":     {"Picnic table", "Lounge chairs"},
}

// AmenityValidation partitions the requested amenities against the catalog.
type AmenityValidation struct {
	Valid        []string
	Invalid      []string
	Alternatives map[string][]string
}

// AmenityValidator checks amenity names against the catalog concurrently.
type AmenityValidator struct {
	catalog      model.AmenityCatalog
	alternatives map[string][]string
}

func NewAmenityValidator(catalog model.AmenityCatalog) *AmenityValidator {
	return &AmenityValidator{catalog: catalog, alternatives: amenityAlternatives}
}

// Validate splits names into valid and invalid. A catalog failure is fail-open: every
// name is treated as valid and no alternatives are offered.
func (v *AmenityValidator) Validate(ctx context.Context, names []string) AmenityValidation {
	names = dedupeFold(names)
	out := AmenityValidation{
		Valid:        []string{},
		Invalid:      []string{},
		Alternatives: map[string][]string{},
	}
	if len(names) == 0 {
		return out
	}
	if v.catalog == nil {
		out.Valid = names
		return out
	}

	counts, err := v.countAll(ctx, names)
	if err != nil {
		logx.Warn().Err(err).Strs("amenities", names).Msg("amenity validation failed, accepting all")
		out.Valid = names
		return out
	}

	for i, name := range names {
		if counts[i] > 0 {
			out.Valid = append(out.Valid, name)
		} else {
			out.Invalid = append(out.Invalid, name)
		}
	}

	for _, name := range out.Invalid {
		if alts := v.validAlternatives(ctx, name); len(alts) > 0 {
			out.Alternatives[name] = alts
		}
	}
	return out
}

// validAlternatives keeps only the substitutes that exist in the catalog. Lookup
// errors drop the candidate rather than failing the message.
func (v *AmenityValidator) validAlternatives(ctx context.Context, name string) []string {
	candidates := v.alternatives[strings.ToLower(strings.TrimSpace(name))]
	if len(candidates) == 0 {
		return nil
	}

	counts, err := v.countAll(ctx, candidates)
	if err != nil {
		logx.Debug().Err(err).Str("amenity", name).Msg("alternative lookup failed")
		return nil
	}

	var alts []string
	for i, c := range candidates {
		if counts[i] > 0 {
			alts = append(alts, c)
		}
	}
	return alts
}

func (v *AmenityValidator) countAll(ctx context.Context, names []string) ([]int, error) {
	counts := make([]int, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for i, name := range names {
		g.Go(func() error {
			n, err := v.catalog.CountListingsWithAmenity(gctx, name)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// dedupeFold drops blanks and case-insensitive duplicates, keeping first spelling.
func dedupeFold(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
