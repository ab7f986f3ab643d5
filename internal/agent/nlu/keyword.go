package nlu

import (
	"context"
	"strings"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

type keywordIntent struct {
	intent   string
	score    float64
	keywords []string
	// onlyBare skips the rule when the message carries search entities.
	onlyBare bool
}

// Checked in order; the first rule with a matching keyword wins.
var keywordIntents = []keywordIntent{
	{"faq.cancellation", 0.9, []string{"cancel", "refund"}, false},
	{"faq.checkin", 0.9, []string{"check-in", "check in", "checkin", "arrival time"}, false},
	{"faq.pets", 0.85, []string{
		"pets allowed", "pet allowed", "dogs allowed", "dog allowed", "allow pets", "allow dogs",
		"bring my dog", "bring my pet", "bring our dog", "bring a dog", "bring a pet", "bring pets", "bring dogs",
		"pet policy", "is it pet friendly?", "is it dog friendly?",
	}, false},
	{"faq.booking", 0.85, []string{"how do i book", "how to book", "make a booking", "reserve"}, false},
	{"comparison", 0.8, []string{"compare", "comparison", "difference", "which is better", "which one", "versus", " vs "}, false},
	{"feedback.negative", 0.8, []string{"don't like", "do not like", "not what i", "none of these", "hate", "not interested", "too expensive"}, true},
	{"feedback.positive", 0.8, []string{"love it", "love this", "perfect", "looks great", "awesome", "exactly what"}, true},
}

var knownAmenities = []string{
	"fire pit", "campfire", "bbq grill", "grill", "hot shower", "shower", "toilet", "restroom",
	"wifi", "electricity", "electric hookup", "parking", "rv parking", "picnic table",
	"drinking water", "hot tub", "pool", "kitchen", "hammock", "pet friendly",
}

var knownFeatures = []string{
	"lake", "river", "mountain", "beach", "forest", "ocean", "waterfall", "desert",
	"canyon", "hot spring", "creek", "trail", "meadow",
}

var knownCountries = []string{
	"usa", "united states", "canada", "mexico", "france", "italy", "spain", "germany",
	"norway", "sweden", "new zealand", "australia", "chile", "argentina", "portugal",
}

// KeywordEngine is an offline NLU engine used when no model API key is configured.
// Location, guests, price and dates are left to the pipeline's text fallbacks.
type KeywordEngine struct{}

func NewKeywordEngine() *KeywordEngine {
	return &KeywordEngine{}
}

// Process implements model.NLUEngine.
func (k *KeywordEngine) Process(_ context.Context, text, _ string) (*model.NLUResult, error) {
	lower := " " + strings.ToLower(text) + " "
	res := &model.NLUResult{Entities: []model.RawEntity{}}

	res.Entities = append(res.Entities, matchVocabulary(lower, model.KindAmenity, knownAmenities)...)
	res.Entities = append(res.Entities, matchVocabulary(lower, model.KindFeature, knownFeatures)...)
	res.Entities = append(res.Entities, matchVocabulary(lower, model.KindCountry, knownCountries)...)

	for _, rule := range keywordIntents {
		if rule.onlyBare && len(res.Entities) > 0 {
			continue
		}
		if containsAny(lower, rule.keywords) {
			res.Intent, res.Score = rule.intent, rule.score
			return res, nil
		}
	}

	res.Intent, res.Score = searchIntent(lower, res.Entities), 0.6
	return res, nil
}

func searchIntent(lower string, entities []model.RawEntity) string {
	kinds := map[model.EntityKind]bool{}
	for _, e := range entities {
		kinds[e.Kind] = true
	}
	switch {
	case len(kinds) > 1:
		return "search.multi"
	case kinds[model.KindAmenity]:
		return "search.amenity"
	case kinds[model.KindFeature]:
		return "search.feature"
	case kinds[model.KindCountry]:
		return "search.location"
	case containsAny(lower, []string{"hello", "hi ", "hey "}):
		return "greeting"
	default:
		return "search.general"
	}
}

// matchVocabulary returns one entity per vocabulary term found on word boundaries.
// Longer terms shadow the shorter terms they contain ("hot shower" over "shower").
func matchVocabulary(lower string, kind model.EntityKind, vocab []string) []model.RawEntity {
	var out []model.RawEntity
	var matched []string
	for _, term := range vocab {
		if !strings.Contains(lower, " "+term+" ") && !strings.Contains(lower, " "+term+"s ") &&
			!strings.Contains(lower, " "+term+",") && !strings.Contains(lower, " "+term+"?") &&
			!strings.Contains(lower, " "+term+".") {
			continue
		}
		if shadowed(term, matched) {
			continue
		}
		matched = append(matched, term)
		acc := 0.75
		out = append(out, model.RawEntity{Kind: kind, SourceText: term, Option: canonical(term), Accuracy: &acc})
	}
	return out
}

func shadowed(term string, matched []string) bool {
	for _, m := range matched {
		if strings.Contains(m, term) || strings.Contains(term, m) {
			return true
		}
	}
	return false
}

// canonical capitalises the first letter: "fire pit" -> "Fire pit".
func canonical(term string) string {
	if term == "" {
		return term
	}
	switch term {
	case "usa":
		return "USA"
	case "wifi":
		return "Wifi"
	case "bbq grill":
		return "BBQ grill"
	case "rv parking":
		return "RV parking"
	}
	return strings.ToUpper(term[:1]) + term[1:]
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
