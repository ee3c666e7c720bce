package profiles

import (
	"fmt"
	"math"
	"strings"
)

// Sentiment is the tone of a perception.
type Sentiment string

const (
	Positive Sentiment = "positif"
	Neutral  Sentiment = "neutre"
	Negative Sentiment = "negatif"
)

func (s Sentiment) Valid() bool {
	switch s {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

// ParseSentiment accepts the stored names and a few English aliases.
func ParseSentiment(s string) (Sentiment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positif", "positive", "+":
		return Positive, nil
	case "neutre", "neutral", "=":
		return Neutral, nil
	case "negatif", "négatif", "negative", "-":
		return Negative, nil
	}
	return "", fmt.Errorf("unknown sentiment %q", s)
}

// Stats counts perceptions per sentiment.
type Stats struct {
	Positive int `json:"positif"`
	Neutral  int `json:"neutre"`
	Negative int `json:"negatif"`
}

func (s Stats) Total() int {
	return s.Positive + s.Neutral + s.Negative
}

// Share is the rounded percentage of each sentiment. All zero when there
// are no perceptions. Rounding means the three may not add up to 100.
type Share struct {
	Positive int
	Neutral  int
	Negative int
}

func (s Stats) Share() Share {
	total := s.Total()
	if total == 0 {
		return Share{}
	}
	pct := func(n int) int {
		return int(math.Round(float64(n) * 100 / float64(total)))
	}
	return Share{Positive: pct(s.Positive), Neutral: pct(s.Neutral), Negative: pct(s.Negative)}
}

// Tally buckets perceptions by sentiment. Unknown sentiments are ignored.
func Tally(perceptions []Perception) Stats {
	var st Stats
	for _, p := range perceptions {
		switch p.Sentiment {
		case Positive:
			st.Positive++
		case Neutral:
			st.Neutral++
		case Negative:
			st.Negative++
		}
	}
	return st
}
