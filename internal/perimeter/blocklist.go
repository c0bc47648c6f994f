package perimeter

import (
	"perimeterd/internal/models"
	"perimeterd/internal/structures"
	"strings"
)

var DefaultBlockTerms = []string{"phonk", "earrape", "nsfw"}

var externalMarkers = []string{"youtu.be", "youtube.com", "youtube ", " yt ", "ytsearch:", "youtubemusic"}

type Matcher struct {
	terms []string
}

// ParseTerms accepts list entries that may themselves be comma separated.
func ParseTerms(raw ...string) []string {
	terms := make([]string, 0, len(raw))
	seen := make(map[string]struct{})
	for _, entry := range raw {
		for _, t := range strings.Split(entry, ",") {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}
	return terms
}

func NewMatcher(conf *structures.Config) *Matcher {
	terms := conf.Perimeter.BlockTerms
	if terms == nil {
		terms = DefaultBlockTerms
	}
	return &Matcher{terms: ParseTerms(terms...)}
}

func (m *Matcher) Terms() []string {
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	return out
}

// Match returns the first blocked term contained in text.
func (m *Matcher) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, t := range m.terms {
		if strings.Contains(lower, t) {
			return t, true
		}
	}
	return "", false
}

func (m *Matcher) MatchStation(s models.Station) (string, bool) {
	return m.Match(s.Tags + " " + s.Name)
}

// LooksExternal reports whether text looks like video-platform content
// rather than a radio stream.
func LooksExternal(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range externalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
