package dialogue

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

const dateLayout = "Jan 2"

// NarrateCriteria renders the accumulated search criteria as one sentence.
func NarrateCriteria(c model.SearchCriteria) string {
	phrase := criteriaPhrase(c)
	if phrase == "" {
		return "I'm looking for camping spots for you."
	}
	return "I'm looking for camping spots " + phrase + "."
}

func criteriaPhrase(c model.SearchCriteria) string {
	var parts []string
	if c.Location != "" {
		parts = append(parts, "near "+c.Location)
	}
	if s := narrateDates(c.DateRange); s != "" {
		parts = append(parts, s)
	}
	if c.GuestCount > 0 {
		parts = append(parts, pluralize(c.GuestCount, "guest", "guests"))
	}
	if len(c.Amenities) > 0 {
		parts = append(parts, "with "+joinList(c.Amenities))
	}
	if len(c.Features) > 0 {
		parts = append(parts, "close to a "+joinList(c.Features))
	}
	if s := narratePrice(c.PriceRange); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// NarrateResults summarises a recommendation round.
func NarrateResults(count int, c model.SearchCriteria) string {
	switch count {
	case 0:
		if phrase := criteriaPhrase(c); phrase != "" {
			return "I couldn't find any camping spots " + phrase + ". Try widening your dates, budget or location."
		}
		return "I couldn't find any camping spots right now. Try telling me where and when you'd like to go."
	case 1:
		return "I found 1 camping spot that matches what you're looking for."
	default:
		return fmt.Sprintf("I found %d camping spots that match what you're looking for.", count)
	}
}

func narrateDates(d model.DateRange) string {
	if d.Start == nil {
		return ""
	}
	if d.End == nil || sameDay(*d.Start, *d.End) {
		return "on " + d.Start.Format(dateLayout)
	}
	return fmt.Sprintf("from %s to %s", d.Start.Format(dateLayout), d.End.Format(dateLayout))
}

func narratePrice(p model.PriceRange) string {
	switch {
	case p.Min != nil && p.Max != nil:
		return fmt.Sprintf("between $%.0f and $%.0f per night", *p.Min, *p.Max)
	case p.Max != nil:
		return fmt.Sprintf("under $%.0f per night", *p.Max)
	case p.Min != nil:
		return fmt.Sprintf("from $%.0f per night", *p.Min)
	}
	return ""
}

// narrateAlternatives suggests catalog substitutes for amenities no listing has.
func narrateAlternatives(e *model.ExtractedEntities) string {
	if e == nil || len(e.InvalidAmenities) == 0 {
		return ""
	}
	var parts []string
	for _, name := range e.InvalidAmenities {
		alts := e.AlternativeAmenities[name]
		if len(alts) == 0 {
			parts = append(parts, fmt.Sprintf("None of our spots list %s right now.", strings.ToLower(name)))
			continue
		}
		parts = append(parts, fmt.Sprintf("None of our spots list %s, but %s could work instead.", strings.ToLower(name), joinListOr(alts)))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func joinList(items []string) string {
	return joinWith(items, "and")
}

func joinListOr(items []string) string {
	return joinWith(items, "or")
}

func joinWith(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + conj + " " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
