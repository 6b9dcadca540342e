// Package teamname canonicalizes team labels and decides which side of a match
// a roster label belongs to.
package teamname

import (
	"strings"
	"unicode"

	"github.com/okian/squadrank/internal/domain/model"
)

// Matching modes.
const (
	ModeExact = "exact"
	ModeLoose = "loose"
)

// DefaultAliases maps the spellings seen across results and statistics feeds
// to one canonical label per club.
func DefaultAliases() map[string]string {
	return map[string]string{
		"HFX Wanderers":     "Wanderers",
		"Halifax Wanderers": "Wanderers",
		"HFX Wanderers FC":  "Wanderers",
		"York United":       "York",
		"York United FC":    "York",
		"Atlético Ottawa":   "Atlético",
		"Atletico Ottawa":   "Atlético",
		"Pacific FC":        "Pacific",
		"Valour FC":         "Valour",
		"Forge FC":          "Forge",
		"Cavalry FC":        "Cavalry",
		"FC Edmonton":       "Edmonton",
	}
}

// Normalizer resolves aliases to canonical team labels.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer builds a Normalizer. Alias keys are matched after trimming.
func NewNormalizer(aliases map[string]string) *Normalizer {
	n := &Normalizer{aliases: make(map[string]string, len(aliases))}
	for from, to := range aliases {
		n.aliases[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return n
}

// Canonical returns the canonical label for name, or the trimmed name itself.
func (n *Normalizer) Canonical(name string) string {
	clean := strings.TrimSpace(name)
	if n == nil {
		return clean
	}
	if to, ok := n.aliases[clean]; ok {
		return to
	}
	return clean
}

// Matcher assigns roster team labels to a match side.
type Matcher struct {
	norm  *Normalizer
	loose bool
}

// NewMatcher returns a Matcher. Any mode other than ModeLoose is exact.
func NewMatcher(norm *Normalizer, mode string) *Matcher {
	return &Matcher{norm: norm, loose: strings.EqualFold(mode, ModeLoose)}
}

// Side reports which side of m the label plays for. Home is tested first so
// an ambiguous loose match always resolves the same way.
func (mt *Matcher) Side(label string, m model.Match) (model.Side, bool) {
	key := mt.key(label)
	if key == "" {
		return "", false
	}
	if mt.same(key, mt.key(m.HomeTeam)) {
		return model.Home, true
	}
	if mt.same(key, mt.key(m.AwayTeam)) {
		return model.Away, true
	}
	return "", false
}

func (mt *Matcher) same(a, b string) bool {
	if b == "" {
		return false
	}
	if a == b {
		return true
	}
	return mt.loose && (strings.Contains(a, b) || strings.Contains(b, a))
}

// key folds a label to lowercase letters and digits after alias resolution.
func (mt *Matcher) key(label string) string {
	canon := mt.norm.Canonical(label)
	var sb strings.Builder
	for _, r := range strings.ToLower(canon) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
