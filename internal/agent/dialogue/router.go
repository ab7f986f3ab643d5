package dialogue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/campfinder-assistant/server/internal/agent/graph/conversations"
	"github.com/campfinder-assistant/server/internal/agent/model"
)

// faqMinScore is the intent score an FAQ answer needs.
const faqMinScore = 0.7

var priceWords = []string{"price", "cheap", "cheaper", "cheapest", "expensive", "cost", "budget", "afford"}

// SelectBranch classifies one turn. A comparison without at least two cached
// recommendations falls through to preference accumulation.
func SelectBranch(t *model.Turn) model.Branch {
	switch {
	case t.NLU.IntentPrefix() == "faq" && t.NLU.Score > faqMinScore:
		return model.BranchFAQ
	case t.NLU.IntentPrefix() == "feedback":
		return model.BranchFeedback
	case t.NLU.Intent == "comparison" && t.Session != nil && len(t.Session.Context.LastRecommendations) >= 2:
		return model.BranchComparison
	default:
		return model.BranchAccumulate
	}
}

// Router holds the branch handlers. Each handler mutates the turn's session copy and
// sets Turn.Body; nothing is persisted here.
type Router struct {
	composer *Composer
	picker   Picker
}

func NewRouter(picker Picker) *Router {
	if picker == nil {
		picker = NewRandomPicker()
	}
	return &Router{composer: NewComposer(picker), picker: picker}
}

// Compose applies the sentiment prefix to the branch body.
func (r *Router) Compose(t *model.Turn) string {
	return r.composer.Compose(t.Entities.Sentiment, t.Body)
}

func (r *Router) HandleFAQ(t *model.Turn) {
	t.Branch = model.BranchFAQ
	t.Session.State = model.StateInitial

	sub := strings.ReplaceAll(t.NLU.SubIntent(), "-", "")
	if answer, ok := faqAnswers[sub]; ok {
		t.Body = answer
		return
	}
	t.Body = faqFallback
}

func (r *Router) HandleFeedback(t *model.Turn) {
	t.Branch = model.BranchFeedback

	switch t.NLU.SubIntent() {
	case "positive":
		at := t.Now
		t.Session.Context.LastPositiveFeedbackAt = &at
		t.Body = positiveFeedbackReplies[r.picker.Intn(len(positiveFeedbackReplies))]
	case "negative":
		conversations.RecordRejection(t.Session, t.Session.Context.RecommendationIDs())
		t.Body = negativeFeedbackReply
	default:
		t.Body = neutralFeedbackReply
	}
}

func (r *Router) HandleComparison(t *model.Turn) {
	t.Branch = model.BranchComparison
	recs := t.Session.Context.LastRecommendations
	if len(recs) < 2 {
		t.Body = comparisonNeedsResults
		return
	}

	switch comparisonKind(t) {
	case "price":
		t.Body = comparePrices(recs)
	case "feature":
		t.Body = compareFeature(recs[0], recs[1], comparedFeature(t))
	default:
		t.Body = fmt.Sprintf(comparisonGeneric, recs[0].Title, recs[1].Title)
	}
}

// HandleAccumulate merges the extracted entities and narrates what is known so far.
func (r *Router) HandleAccumulate(t *model.Turn) {
	t.Branch = model.BranchAccumulate
	conversations.MergeEntities(t.Session, t.Entities)

	var parts []string
	if conversations.HasMinimumSearchCriteria(t.Session.Preferences) {
		t.Session.Context.ReadyForRecommendations = true
		parts = append(parts, NarrateCriteria(t.Session.Preferences.Criteria()), readyNudge)
	} else {
		parts = append(parts, askForCriteria)
	}

	if s := narrateAlternatives(t.Entities); s != "" {
		parts = append(parts, s)
	}
	t.Body = strings.Join(parts, " ")
}

func comparisonKind(t *model.Turn) string {
	lower := strings.ToLower(t.Message)
	switch {
	case t.NLU.SubIntent() == "price" || !t.Entities.PriceRange.IsZero():
		return "price"
	case containsAnyWord(lower, priceWords):
		return "price"
	case t.NLU.SubIntent() == "feature" || comparedFeature(t) != "":
		return "feature"
	default:
		return "generic"
	}
}

func comparedFeature(t *model.Turn) string {
	if len(t.Entities.Features) > 0 {
		return t.Entities.Features[0]
	}
	if len(t.Entities.Amenities) > 0 {
		return t.Entities.Amenities[0]
	}
	return ""
}

func comparePrices(recs []model.Recommendation) string {
	sorted := append([]model.Recommendation{}, recs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })
	cheapest, priciest := sorted[0], sorted[len(sorted)-1]
	return fmt.Sprintf("%s is the most affordable at $%.0f per night, while %s is the most expensive at $%.0f per night.",
		cheapest.Title, cheapest.Price, priciest.Title, priciest.Price)
}

func compareFeature(a, b model.Recommendation, feature string) string {
	if feature == "" {
		return fmt.Sprintf(comparisonGeneric, a.Title, b.Title)
	}
	describe := func(r model.Recommendation) string {
		if hasFeature(r, feature) {
			return fmt.Sprintf("%s has %s", r.Title, strings.ToLower(feature))
		}
		return fmt.Sprintf("%s doesn't list %s", r.Title, strings.ToLower(feature))
	}
	return describe(a) + ", and " + describe(b) + "."
}

func hasFeature(r model.Recommendation, feature string) bool {
	f := strings.ToLower(feature)
	if strings.Contains(strings.ToLower(r.Title), f) || strings.Contains(strings.ToLower(r.Location), f) {
		return true
	}
	for _, a := range r.Amenities {
		if strings.Contains(strings.ToLower(a), f) {
			return true
		}
	}
	return false
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '?' || r == '.' || r == '!' }) {
		for _, target := range words {
			if w == target {
				return true
			}
		}
	}
	return false
}
