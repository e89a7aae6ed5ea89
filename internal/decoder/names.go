package decoder

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"privatize-quote/internal/quote"
)

// normalizer is one name comparison strategy. Strategies are tried from the
// strictest to the loosest so an exact hit always wins over a folded one.
type normalizer func(string) string

var normalizers = []normalizer{
	func(s string) string { return s },
	func(s string) string { return strings.ToLower(strings.TrimSpace(s)) },
	slug,
}

// fold strips diacritics: "Purée" -> "Puree".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// slug folds case and diacritics and collapses every run of non alphanumerics
// into one underscore: "Sauce Béarnaise (maison)" -> "sauce_bearnaise_maison".
func slug(s string) string {
	s = strings.ToLower(fold(s))
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// matcher resolves option and suboption keys against a catalog option tree.
type matcher struct {
	// aliases maps slug(historical name) -> current display name
	aliases map[string]string
}

func newMatcher(aliases map[string]string) *matcher {
	m := &matcher{aliases: make(map[string]string, len(aliases))}
	for old, current := range aliases {
		m.aliases[slug(old)] = current
	}
	return m
}

type named struct {
	id      int64
	name    string
	aliases []string
}

func optionNames(tree []quote.Option) []named {
	out := make([]named, len(tree))
	for i, o := range tree {
		out[i] = named{id: o.ID, name: o.Name, aliases: o.Aliases}
	}
	return out
}

func subOptionNames(subs []quote.SubOption) []named {
	out := make([]named, len(subs))
	for i, s := range subs {
		out[i] = named{id: s.ID, name: s.Name, aliases: s.Aliases}
	}
	return out
}

// resolve returns the id of the entry key designates. Fallback order: stable
// id, exact name, case fold, diacritic slug, catalog aliases, historical
// alias table.
func (m *matcher) resolve(key string, candidates []named) (int64, bool) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		for _, c := range candidates {
			if c.id == id {
				return c.id, true
			}
		}
	}

	for _, n := range normalizers {
		want := n(key)
		if want == "" {
			continue
		}
		for _, c := range candidates {
			if n(c.name) == want {
				return c.id, true
			}
		}
	}

	want := slug(key)
	for _, c := range candidates {
		for _, a := range c.aliases {
			if slug(a) == want {
				return c.id, true
			}
		}
	}

	if current, ok := m.aliases[want]; ok {
		target := slug(current)
		for _, c := range candidates {
			if slug(c.name) == target {
				return c.id, true
			}
		}
	}

	return 0, false
}
