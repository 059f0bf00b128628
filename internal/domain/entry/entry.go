// Package entry defines the leaderboard row types and their stored form.
//
// A sorted-set member is the JSON encoding of an entry, and that exact
// string is the member's identity: removals and rank lookups must use the
// byte-identical value that was inserted.
package entry

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the local date form recorded on every written entry.
const DateLayout = "1/2/2006"

// Entry is the rankable view shared by Structured and Legacy rows.
type Entry interface {
	// Player returns the player name.
	Player() string
	// Ranking returns the efficiency used as the sort key.
	Ranking() int64
	// Encode returns the stored member form.
	Encode() string

	sealed()
}

// Structured is a fully specified score submission.
type Structured struct {
	Name       string  `json:"name"`
	Score      int64   `json:"score"`
	Accuracy   float64 `json:"accuracy"`
	Efficiency int64   `json:"efficiency"`
	Date       string  `json:"date"`
}

// Legacy is a row that carries only a name and an efficiency. Members
// that fail structured parsing decode to Legacy, and its encoding is the
// reduced form admin delete/edit remove by.
type Legacy struct {
	Name       string `json:"name"`
	Efficiency int64  `json:"efficiency"`
}

func (s Structured) Player() string { return s.Name }
func (s Structured) Ranking() int64 { return s.Efficiency }
func (s Structured) Encode() string { return mustMarshal(s) }
func (Structured) sealed()          {}

func (l Legacy) Player() string { return l.Name }
func (l Legacy) Ranking() int64 { return l.Efficiency }
func (l Legacy) Encode() string { return mustMarshal(l) }
func (Legacy) sealed()          {}

// New builds a Structured entry stamped with the local date of now.
func New(sub Submission, now time.Time) Structured {
	return Structured{
		Name:       sub.Name,
		Score:      sub.Score,
		Accuracy:   sub.Accuracy,
		Efficiency: sub.Efficiency,
		Date:       now.Local().Format(DateLayout),
	}
}

// Decode parses a stored member. The efficiency argument comes from the
// sorted set's own score and always wins over any embedded value.
// Members that are not a JSON object with a non-empty name degrade to
// Legacy{Name: member}.
func Decode(member string, efficiency int64) Entry {
	s, ok := ParseStructured(member)
	if !ok {
		return Legacy{Name: member, Efficiency: efficiency}
	}
	s.Efficiency = efficiency
	return s
}

// ParseStructured parses a stored value as a Structured entry.
func ParseStructured(raw string) (Structured, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Structured{}, false
	}
	var s Structured
	if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
		return Structured{}, false
	}
	if s.Name == "" {
		return Structured{}, false
	}
	return s, true
}

// mustMarshal encodes entries, which contain only strings and finite numbers.
func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic("entry: marshal: " + err.Error())
	}
	return string(b)
}
