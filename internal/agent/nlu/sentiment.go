package nlu

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// normalisation constant; keeps short messages from saturating at +/-1
const sentimentAlpha = 15.0

var sentimentLexicon = map[string]float64{
	"love": 3, "loved": 3, "amazing": 3, "perfect": 3, "awesome": 3, "fantastic": 3,
	"great": 2.5, "excellent": 3, "wonderful": 3, "beautiful": 2.5, "lovely": 2.5,
	"good": 2, "nice": 2, "cool": 1.5, "happy": 2, "excited": 2.5, "thanks": 1.5,
	"thank": 1.5, "like": 1, "cozy": 1.5, "relaxing": 2, "quiet": 1, "peaceful": 2,
	"bad": -2.5, "terrible": -3, "awful": -3, "horrible": -3, "hate": -3, "worst": -3,
	"disappointed": -2.5, "disappointing": -2.5, "annoying": -2, "annoyed": -2,
	"expensive": -1.5, "dirty": -2.5, "noisy": -2, "crowded": -1.5, "frustrated": -2.5,
	"frustrating": -2.5, "useless": -2.5, "boring": -1.5, "ugly": -2, "sad": -2,
	"unfortunately": -1.5, "problem": -1.5, "wrong": -2,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "don't": true, "dont": true, "doesn't": true,
	"isn't": true, "wasn't": true, "aren't": true, "can't": true, "cannot": true, "nothing": true,
}

var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "so": 1.2, "super": 1.4, "extremely": 1.5, "too": 1.2,
}

// LexiconAnalyzer scores sentiment from a word list with negation and intensifiers.
type LexiconAnalyzer struct{}

func NewLexiconAnalyzer() *LexiconAnalyzer {
	return &LexiconAnalyzer{}
}

// Analyze implements model.SentimentAnalyzer. The score is in (-1, 1).
func (a *LexiconAnalyzer) Analyze(ctx context.Context, text string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	words := tokenize(text)
	sum := 0.0
	for i, w := range words {
		v, ok := sentimentLexicon[w]
		if !ok {
			continue
		}
		// look back up to three words
		for j := i - 1; j >= 0 && j >= i-3; j-- {
			if negators[words[j]] {
				v = -v * 0.75
				break
			}
			if k, ok := intensifiers[words[j]]; ok {
				v *= k
			}
		}
		sum += v
	}
	if strings.Count(text, "!") > 0 && sum != 0 {
		sum += math.Copysign(0.3*math.Min(float64(strings.Count(text, "!")), 3), sum)
	}
	if sum == 0 {
		return 0, nil
	}
	return sum / math.Sqrt(sum*sum+sentimentAlpha), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
