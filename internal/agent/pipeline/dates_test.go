package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateResolver_Resolve(t *testing.T) {
	// a Wednesday
	now := time.Date(2025, time.April, 16, 15, 4, 5, 0, time.UTC)
	r := NewDateResolver(3)

	cases := []struct {
		name  string
		text  string
		start time.Time
		end   time.Time
	}{
		{"summer", "thinking about summer", day(2025, time.June, 21), day(2025, time.September, 22)},
		{"winter crosses year", "a winter trip", day(2025, time.December, 21), day(2026, time.March, 20)},
		{"autumn is fall", "in autumn", day(2025, time.September, 23), day(2025, time.December, 20)},
		{"future month", "sometime in July", day(2025, time.July, 1), day(2025, time.July, 31)},
		{"current month stays", "april please", day(2025, time.April, 1), day(2025, time.April, 30)},
		{"past month rolls", "in February", day(2026, time.February, 1), day(2026, time.February, 28)},
		{"may with preposition", "early May would be nice", day(2025, time.May, 1), day(2025, time.May, 31)},
		{"this weekend", "free this weekend?", day(2025, time.April, 19), day(2025, time.April, 20)},
		{"next week", "next week works", day(2025, time.April, 21), day(2025, time.April, 27)},
		{"numeric default span", "arriving 7/4", day(2025, time.July, 4), day(2025, time.July, 7)},
		{"numeric with count", "7/4 for 5 nights", day(2025, time.July, 4), day(2025, time.July, 9)},
		{"day first when > 12", "on 25/12", day(2025, time.December, 25), day(2025, time.December, 28)},
		{"past numeric rolls", "1/3", day(2026, time.January, 3), day(2026, time.January, 6)},
		{"numeric at sentence end", "we arrive on 7/4.", day(2025, time.July, 4), day(2025, time.July, 7)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dr, ok := r.Resolve(tc.text, now)
			require.True(t, ok)
			require.NotNil(t, dr.Start)
			require.NotNil(t, dr.End)
			assert.Equal(t, tc.start, *dr.Start)
			assert.Equal(t, tc.end, *dr.End)
			assert.False(t, dr.End.Before(*dr.Start))
		})
	}
}

func TestDateResolver_NoMatch(t *testing.T) {
	r := NewDateResolver(3)
	now := day(2025, time.April, 16)

	for _, text := range []string{
		"", "a spot with a fire pit", "may I bring my dog", "2/30", "13/13",
		"a spot for 4-6 people", "within 2.5 miles of a lake", "a site for 10-12 campers",
		"rated 4.5/5 by campers", "7.4 stars",
	} {
		_, ok := r.Resolve(text, now)
		assert.False(t, ok, text)
	}
}

func TestDateResolver_WeekendEdges(t *testing.T) {
	r := NewDateResolver(3)

	// Saturday resolves to today
	dr, ok := r.Resolve("this weekend", day(2025, time.April, 19))
	require.True(t, ok)
	assert.Equal(t, day(2025, time.April, 19), *dr.Start)

	// Monday asking for next week skips to the following Monday
	dr, ok = r.Resolve("next week", day(2025, time.April, 21))
	require.True(t, ok)
	assert.Equal(t, day(2025, time.April, 28), *dr.Start)
	assert.Equal(t, day(2025, time.May, 4), *dr.End)
}

func TestDateResolver_Idempotent(t *testing.T) {
	r := NewDateResolver(3)
	now := time.Date(2025, time.August, 2, 9, 0, 0, 0, time.UTC)

	for _, text := range []string{"summer", "in October", "this weekend", "next week", "9/14 for 2 days"} {
		first, ok := r.Resolve(text, now)
		require.True(t, ok)
		second, ok := r.Resolve(text, now.Add(3*time.Hour))
		require.True(t, ok)
		assert.Equal(t, *first.Start, *second.Start, text)
		assert.Equal(t, *first.End, *second.End, text)
	}
}
