package nlu

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/campfinder-assistant/server/internal/agent/model"
	errx "github.com/campfinder-assistant/server/internal/core/error"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological model output
const (
	maxContentLen = 64 * 1024
	maxRecords    = 200
	maxTupleLen   = 4 * 1024
	maxMetaLen    = 1024
	maxErrSnippet = 120
)

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	inner := s[1 : len(s)-1]
	// at most 5 segments so the metadata object may contain delimiters
	parts := strings.SplitN(inner, tupDelim, 5)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	return &rawTuple{Type: strings.ToLower(strings.TrimSpace(parts[0])), Parts: parts}, nil
}

func parseFloatInRange(s, name string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s invalid number", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return v, nil
}

type entityMeta struct {
	Option string `json:"option"`
}

func parseMeta(s string) (entityMeta, error) {
	var m entityMeta
	s = strings.TrimSpace(s)
	if s == "" {
		return m, nil
	}
	if len(s) > maxMetaLen {
		return m, fmt.Errorf("metadata too large")
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return m, fmt.Errorf("metadata not json object")
	}
	err := json.Unmarshal([]byte(s), &m)
	return m, err
}

// ParseOutput parses the delimited tuple format the NLU prompt asks for:
//
//	(intent<||>search.location<||>0.92)##
//	(entity<||>location<||>tahoe<||>0.88<||>{"option":"Lake Tahoe"})##
//	(sentiment<||>neutral<||>0.7)##
//	<|COMPLETE|>
//
// Malformed records are skipped. Output without any intent yields IntentError.
func ParseOutput(content string) (res *model.NLUResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "nlu_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("nlu parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			res = nil
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "nlu_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	res = &model.NLUResult{Intent: model.IntentError, Entities: []model.RawEntity{}}
	var parseErrs []string
	bestIntent := -1.0

	processed := 0
	for _, rec := range strings.Split(content, recDelim) {
		if processed >= maxRecords {
			logx.Warn().Str("component", "nlu_parser").Int("max_records", maxRecords).Msg("record processing capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			parseErrs = append(parseErrs, "bad_record: "+safeSnippet(rec))
			continue
		}

		switch rt.Type {
		case "intent":
			if len(rt.Parts) < 3 {
				parseErrs = append(parseErrs, "intent: insufficient parts")
				continue
			}
			name := strings.ToLower(strings.TrimSpace(rt.Parts[1]))
			if name == "" || !utf8.ValidString(name) {
				parseErrs = append(parseErrs, "intent: invalid name")
				continue
			}
			conf, err := parseFloatInRange(rt.Parts[2], "intent.confidence", 0, 1)
			if err != nil {
				parseErrs = append(parseErrs, "intent: invalid confidence")
				continue
			}
			if conf > bestIntent {
				bestIntent = conf
				res.Intent = name
				res.Score = conf
			}

		case "entity":
			if len(rt.Parts) < 4 {
				parseErrs = append(parseErrs, "entity: insufficient parts")
				continue
			}
			kind := model.ParseEntityKind(rt.Parts[1])
			text := strings.TrimSpace(rt.Parts[2])
			if text == "" || !utf8.ValidString(text) {
				parseErrs = append(parseErrs, "entity: invalid source text")
				continue
			}
			acc, err := parseFloatInRange(rt.Parts[3], "entity.accuracy", 0, 1)
			if err != nil {
				parseErrs = append(parseErrs, "entity: invalid accuracy")
				continue
			}
			e := model.RawEntity{Kind: kind, SourceText: text, Accuracy: &acc}
			if len(rt.Parts) >= 5 {
				if m, err := parseMeta(rt.Parts[4]); err == nil {
					e.Option = strings.TrimSpace(m.Option)
				} else {
					parseErrs = append(parseErrs, "entity: invalid metadata json")
				}
			}
			res.Entities = append(res.Entities, e)

		case "sentiment":
			if len(rt.Parts) < 3 {
				parseErrs = append(parseErrs, "sentiment: insufficient parts")
				continue
			}
			label := strings.ToLower(strings.TrimSpace(rt.Parts[1]))
			conf, err := parseFloatInRange(rt.Parts[2], "sentiment.confidence", 0, 1)
			if err != nil {
				parseErrs = append(parseErrs, "sentiment: invalid confidence")
				continue
			}
			score, ok := sentimentScore(label, conf)
			if !ok {
				parseErrs = append(parseErrs, "sentiment: invalid label")
				continue
			}
			res.Sentiment = &score

		default:
			parseErrs = append(parseErrs, "unknown tuple type")
		}
	}

	if len(parseErrs) > 0 {
		logx.Debug().
			Str("component", "nlu_parser").
			Strs("parsing_errors", parseErrs).
			Msg("skipped malformed records")
	}
	return res, nil
}

// sentimentScore maps a label and its confidence to a signed score in [-1, 1].
func sentimentScore(label string, conf float64) (float64, bool) {
	switch label {
	case "positive":
		return math.Min(conf, 1), true
	case "negative":
		return -math.Min(conf, 1), true
	case "neutral", "mixed":
		return 0, true
	}
	return 0, false
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
