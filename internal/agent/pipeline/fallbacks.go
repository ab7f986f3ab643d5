package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	locationPattern = regexp.MustCompile(`\b(?:[Ii]n|[Nn]ear|[Aa]t|[Aa]round|[Cc]lose to)\s+([A-Z][\w'-]*(?:\s+[A-Z][\w'-]*)*)`)

	guestPattern = regexp.MustCompile(`(?i)\b(\d{1,3}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s+(?:people|persons|guests|adults|campers|of us)\b`)

	priceBoundPattern   = regexp.MustCompile(`(?i)\b(under|below|less than|up to|no more than|max(?:imum)?|over|above|more than|at least|min(?:imum)?)\s+(?:\$\s*(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)\s*(?:dollars|usd|eur|euros|bucks|per night|a night))`)
	priceBetweenPattern = regexp.MustCompile(`(?i)\bbetween\s+\$\s*(\d+(?:\.\d+)?)\s*(?:and|to|-)\s*\$?\s*(\d+(?:\.\d+)?)`)
	numberPattern       = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"a couple": 2, "couple": 2, "pair": 2,
}

// FallbackLocation extracts a capitalised place after a preposition.
func FallbackLocation(text string) (string, bool) {
	for _, m := range locationPattern.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if candidate == "" || candidate == "I" || isCalendarWord(candidate) {
			continue
		}
		return candidate, true
	}
	return "", false
}

// FallbackGuestCount reads "4 people", "two adults" and similar.
func FallbackGuestCount(text string) (int, bool) {
	m := guestPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseCount(m[1])
}

// FallbackPriceRange reads "under $50", "at least 20 dollars", "between $20 and $50".
// A currency marker is required so "at least 4 people" is not a price.
func FallbackPriceRange(text string) (min, max *float64) {
	if m := priceBetweenPattern.FindStringSubmatch(text); m != nil {
		lo, errLo := strconv.ParseFloat(m[1], 64)
		hi, errHi := strconv.ParseFloat(m[2], 64)
		if errLo == nil && errHi == nil {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &lo, &hi
		}
	}

	for _, m := range priceBoundPattern.FindAllStringSubmatch(text, -1) {
		raw := m[2]
		if raw == "" {
			raw = m[3]
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if isUpperBoundWord(m[1]) {
			max = &v
		} else {
			min = &v
		}
	}
	return min, max
}

func isUpperBoundWord(w string) bool {
	switch strings.ToLower(w) {
	case "under", "below", "less than", "up to", "no more than", "max", "maximum":
		return true
	}
	return false
}

// parseCount accepts digits or small number words.
func parseCount(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	if m := numberPattern.FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// parseAmount reads the first number in a price phrase ("$1,200" -> 1200).
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
