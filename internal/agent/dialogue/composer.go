package dialogue

import (
	"math/rand"
	"sync"
	"time"
)

const (
	positiveThreshold = 0.5
	negativeThreshold = -0.3
)

var positivePrefixes = []string{
	"Great to hear! ",
	"Love the enthusiasm! ",
	"Awesome! ",
	"Wonderful! ",
}

var empatheticPrefixes = []string{
	"I understand. ",
	"Sorry to hear that. ",
	"I hear you. ",
	"Let's get this right for you. ",
}

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// lockedRand makes a *rand.Rand safe for concurrent turns.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRandomPicker returns a concurrency-safe Picker seeded from the clock.
func NewRandomPicker() Picker {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Composer prefixes branch replies according to the message sentiment.
type Composer struct {
	picker Picker
}

func NewComposer(picker Picker) *Composer {
	if picker == nil {
		picker = NewRandomPicker()
	}
	return &Composer{picker: picker}
}

// Compose returns prefix + body, where the prefix is empty for neutral sentiment.
func (c *Composer) Compose(sentiment float64, body string) string {
	return c.Prefix(sentiment) + body
}

func (c *Composer) Prefix(sentiment float64) string {
	switch {
	case sentiment > positiveThreshold:
		return c.pick(positivePrefixes)
	case sentiment < negativeThreshold:
		return c.pick(empatheticPrefixes)
	default:
		return ""
	}
}

func (c *Composer) pick(options []string) string {
	return options[c.picker.Intn(len(options))]
}
