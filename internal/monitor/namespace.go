package monitor

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// legacyVariant is accepted on its own, or after any category, for
// backwards compatibility with configurations written before categories
// existed. A bare "virt_driver" always meant the CPU monitor.
const (
	legacyVariant  = "virt_driver"
	legacyCategory = "cpu"
)

// ParseNamespace splits "<root>.<category>.<variant>" into category and
// variant. The root may itself contain dots; the category is always the
// second-to-last segment.
func ParseNamespace(ns string) (category, variant string, err error) {
	parts := strings.Split(ns, ".")
	if len(parts) < 2 {
		return "", "", errors.Wrapf(ErrMalformedNamespace, "%q has fewer than two segments", ns)
	}
	category = parts[len(parts)-2]
	variant = parts[len(parts)-1]
	if category == "" || variant == "" {
		return "", "", errors.Wrapf(ErrMalformedNamespace, "%q has an empty segment", ns)
	}
	return normalizeCategory(category), variant, nil
}

func normalizeCategory(category string) string {
	if category == legacyVariant {
		return legacyCategory
	}
	return category
}

// enabledToken is one parsed entry of an EnabledSet. An empty variant
// enables every variant of the category.
type enabledToken struct {
	category string
	variant  string
}

// EnabledSet is the ordered allow-list of monitor tokens from configuration.
type EnabledSet struct {
	tokens []enabledToken
}

// NewEnabledSet parses tokens of the form "<category>" or
// "<category>.<variant>". "virt_driver" becomes "cpu" and
// "<category>.virt_driver" becomes "<category>".
func NewEnabledSet(tokens []string) EnabledSet {
	set := EnabledSet{tokens: make([]enabledToken, 0, len(tokens))}
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		set.tokens = append(set.tokens, normalizeToken(tok))
	}
	return set
}

func normalizeToken(tok string) enabledToken {
	if tok == legacyVariant {
		return enabledToken{category: legacyCategory}
	}
	category, variant, found := strings.Cut(tok, ".")
	if !found || variant == legacyVariant {
		return enabledToken{category: normalizeCategory(category)}
	}
	return enabledToken{category: normalizeCategory(category), variant: variant}
}

// Allows reports whether a candidate of category/variant may activate.
func (s EnabledSet) Allows(category, variant string) bool {
	for _, t := range s.tokens {
		if t.category != category {
			continue
		}
		if t.variant == "" || t.variant == variant {
			return true
		}
	}
	return false
}

// Len returns the number of tokens.
func (s EnabledSet) Len() int { return len(s.tokens) }

// Strings returns the normalised tokens in configuration order.
func (s EnabledSet) Strings() []string {
	out := make([]string, 0, len(s.tokens))
	for _, t := range s.tokens {
		if t.variant == "" {
			out = append(out, t.category)
		} else {
			out = append(out, t.category+"."+t.variant)
		}
	}
	return out
}
