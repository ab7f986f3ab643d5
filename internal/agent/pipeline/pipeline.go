package pipeline

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
	errx "github.com/campfinder-assistant/server/internal/core/error"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// Pipeline turns a raw message into an NLU result plus normalised entities.
type Pipeline struct {
	nlu       model.NLUEngine
	sentiment model.SentimentAnalyzer
	amenities *AmenityValidator
	dates     *DateResolver

	locale           string
	nluTimeout       time.Duration
	sentimentTimeout time.Duration
	fallbackConf     float64
}

type Options struct {
	NLU       model.NLUEngine
	Sentiment model.SentimentAnalyzer
	Amenities *AmenityValidator
	Locale    string
	NLUConfig model.NLUModelConfig
	Config    model.PipelineConfig
}

func New(opts Options) *Pipeline {
	locale := opts.Locale
	if locale == "" {
		locale = opts.NLUConfig.Locale
	}
	if locale == "" {
		locale = "en"
	}
	fallbackConf := opts.Config.LocationFallbackConfidence
	if fallbackConf <= 0 {
		fallbackConf = 0.7
	}
	return &Pipeline{
		nlu:              opts.NLU,
		sentiment:        opts.Sentiment,
		amenities:        opts.Amenities,
		dates:            NewDateResolver(opts.Config.DefaultStayDays),
		locale:           locale,
		nluTimeout:       opts.NLUConfig.Timeout,
		sentimentTimeout: opts.Config.SentimentTimeout,
		fallbackConf:     fallbackConf,
	}
}

// Process never fails: NLU and sentiment errors degrade to intent "error" and a
// neutral score, and every other step falls back to text heuristics. A score
// returned by the NLU engine wins over the sentiment analyzer.
func (p *Pipeline) Process(ctx context.Context, text string, now time.Time) (model.NLUResult, *model.ExtractedEntities) {
	nlu := p.classify(ctx, text)
	entities := model.NewExtractedEntities()
	entities.IntentConfidence = nlu.Score
	if nlu.Sentiment != nil {
		entities.Sentiment = clampSentiment(*nlu.Sentiment)
	} else {
		entities.Sentiment = p.score(ctx, text)
	}

	dateText := p.route(text, nlu.Entities, entities)

	if entities.DateRange.Start == nil {
		if dr, ok := p.dates.Resolve(dateText, now); ok {
			entities.DateRange = dr
		} else if dateText != text {
			if dr, ok := p.dates.Resolve(text, now); ok {
				entities.DateRange = dr
			}
		}
	}

	p.applyFallbacks(text, entities)

	if len(entities.Amenities) > 0 && p.amenities != nil {
		res := p.amenities.Validate(ctx, entities.Amenities)
		entities.Amenities = res.Valid
		entities.InvalidAmenities = res.Invalid
		entities.AlternativeAmenities = res.Alternatives
	}

	entities.MultiPart = kindsPresent(entities) >= 2
	return nlu, entities
}

func (p *Pipeline) classify(ctx context.Context, text string) model.NLUResult {
	degraded := model.NLUResult{Intent: model.IntentError, Score: 0}
	if p.nlu == nil {
		return degraded
	}

	cctx, cancel := withOptionalTimeout(ctx, p.nluTimeout)
	defer cancel()

	res, err := p.nlu.Process(cctx, text, p.locale)
	if err != nil {
		logx.Warn().Err(errx.UpstreamDegraded("nlu", err)).Msg("nlu failed, continuing with defaults")
		return degraded
	}
	if res == nil {
		return degraded
	}
	return *res
}

func (p *Pipeline) score(ctx context.Context, text string) float64 {
	if p.sentiment == nil {
		return 0
	}

	cctx, cancel := withOptionalTimeout(ctx, p.sentimentTimeout)
	defer cancel()

	s, err := p.sentiment.Analyze(cctx, text)
	if err != nil {
		logx.Warn().Err(errx.UpstreamDegraded("sentiment", err)).Msg("sentiment failed, using neutral score")
		return 0
	}
	return s
}

func clampSentiment(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}

// route distributes NLU entities by kind and returns the text to resolve dates from.
func (p *Pipeline) route(text string, raw []model.RawEntity, out *model.ExtractedEntities) string {
	confidences := map[model.EntityKind][]float64{}
	dateText := text
	bestLocation := -1.0

	for _, e := range raw {
		value := e.Value()
		if value == "" {
			continue
		}
		conf := e.Confidence()

		switch e.Kind {
		case model.KindLocation:
			if conf > bestLocation {
				v := value
				out.Location = &v
				bestLocation = conf
			}
		case model.KindAmenity:
			out.Amenities = append(out.Amenities, value)
		case model.KindFeature:
			out.Features = appendFold(out.Features, strings.ToLower(value))
		case model.KindNumber:
			n, ok := parseCount(value)
			if !ok {
				continue
			}
			if out.GuestCount == nil || n > *out.GuestCount {
				out.GuestCount = &n
			}
		case model.KindPrice:
			amount, ok := parseAmount(value)
			if !ok {
				amount, ok = parseAmount(e.SourceText)
			}
			if !ok {
				continue
			}
			if priceBound(e, text) == "min" {
				out.PriceRange.Min = &amount
			} else {
				out.PriceRange.Max = &amount
			}
		case model.KindCountry:
			out.Countries = appendFold(out.Countries, value)
		case model.KindDate:
			dateText = value
		case model.KindUnknown:
			logx.Debug().Str("source", e.SourceText).Msg("dropping entity of unknown kind")
			continue
		}
		confidences[e.Kind] = append(confidences[e.Kind], conf)
	}

	for kind, list := range confidences {
		out.Confidence[kind] = average(list)
	}
	out.LocationConfidence = out.Confidence[model.KindLocation]
	return dateText
}

// applyFallbacks fills gaps the NLU engine left with text heuristics.
func (p *Pipeline) applyFallbacks(text string, out *model.ExtractedEntities) {
	if out.Location == nil {
		if loc, ok := FallbackLocation(text); ok {
			out.Location = &loc
			out.LocationConfidence = p.fallbackConf
			out.Confidence[model.KindLocation] = p.fallbackConf
		}
	}
	if out.GuestCount == nil {
		if n, ok := FallbackGuestCount(text); ok {
			out.GuestCount = &n
		}
	}
	if out.PriceRange.IsZero() {
		out.PriceRange.Min, out.PriceRange.Max = FallbackPriceRange(text)
	}
}

// priceBound decides whether a price entity is a floor or a ceiling. The engine's
// option wins; otherwise the wording of the message decides, defaulting to ceiling.
func priceBound(e model.RawEntity, text string) string {
	switch strings.ToLower(strings.TrimSpace(e.Option)) {
	case "min", "minimum", "from", "floor":
		return "min"
	case "max", "maximum", "to", "ceiling":
		return "max"
	}
	if lo, hi := FallbackPriceRange(text); lo != nil && hi == nil {
		return "min"
	}
	lower := strings.ToLower(text)
	for _, w := range []string{"at least", "more than", "over ", "above ", "minimum"} {
		if strings.Contains(lower, w) {
			return "min"
		}
	}
	return "max"
}

func kindsPresent(e *model.ExtractedEntities) int {
	n := 0
	for _, present := range []bool{
		e.Location != nil,
		len(e.Amenities) > 0 || len(e.InvalidAmenities) > 0,
		len(e.Features) > 0,
		!e.PriceRange.IsZero(),
		e.GuestCount != nil,
		e.DateRange.Start != nil,
		len(e.Countries) > 0,
	} {
		if present {
			n++
		}
	}
	return n
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func appendFold(list []string, v string) []string {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return list
		}
	}
	return append(list, v)
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
