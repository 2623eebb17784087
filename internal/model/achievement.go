package model

import "strings"

type Achievement struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Symbol      string `json:"symbol"`
	Color       string `json:"color"`
}

// SymbolIsImage reports whether Symbol is a remote image reference rather than a glyph.
func (a Achievement) SymbolIsImage() bool {
	return strings.HasPrefix(a.Symbol, "http")
}

// EarnedSet holds the achievement ids a user has unlocked.
type EarnedSet map[string]struct{}

func NewEarnedSet(ids ...string) EarnedSet {
	set := make(EarnedSet, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func (s EarnedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s EarnedSet) Clone() EarnedSet {
	out := make(EarnedSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
