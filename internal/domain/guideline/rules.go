package guideline

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule turns one instruction pattern into a criterion.
// Rules sharing a Group are alternatives: the first match in the group wins.
type Rule struct {
	Name    string
	Group   string
	Trigger *regexp.Regexp
	Key     Key
	Extract func(match []string) (float64, bool)
}

const num = `(\d+(?:\.\d+)?)`

// DefaultRules returns the stock instruction rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "bedrooms exact",
			Group:   "bedrooms",
			Trigger: regexp.MustCompile(`\bbed(?:room)?s?\b.*\b(?:match(?:es)?\s+exactly|must\s+match|exact(?:ly)?)\b|\b(?:same|exact)\s+(?:number\s+of\s+)?bed(?:room)?s?\b`),
			Key:     KeyBedroomsExactMatch,
			Extract: flag,
		},
		{
			Name:    "bedrooms tolerance",
			Group:   "bedrooms",
			Trigger: regexp.MustCompile(`\bbed(?:room)?s?\b.*\b(?:within|by|of)\s+(\d+)\s*(%|mi\b|miles?|months?|years?)?`),
			Key:     KeyBedroomsTolerance,
			Extract: unitless,
		},
		{
			Name:    "bathrooms exact",
			Group:   "bathrooms",
			Trigger: regexp.MustCompile(`\bbath(?:room)?s?\b.*\b(?:match(?:es)?\s+exactly|must\s+match|exact(?:ly)?)\b|\b(?:same|exact)\s+(?:number\s+of\s+)?bath(?:room)?s?\b`),
			Key:     KeyBathroomsExactMatch,
			Extract: flag,
		},
		{
			Name:    "bathrooms tolerance",
			Group:   "bathrooms",
			Trigger: regexp.MustCompile(`\bbath(?:room)?s?\b.*\b(?:within|by|of)\s+` + num + `\s*(%|mi\b|miles?|months?|years?)?`),
			Key:     KeyBathroomsTolerance,
			Extract: unitless,
		},
		{
			Name:    "lot size tolerance",
			Group:   "lot",
			Trigger: regexp.MustCompile(`\blots?\b[^%]*?` + num + `\s*%|` + num + `\s*%.*\blots?\b`),
			Key:     KeyLotSizeTolerancePercent,
			Extract: firstNumber,
		},
		{
			Name:    "price tolerance",
			Group:   "price",
			Trigger: regexp.MustCompile(`\bprices?\b[^%]*?` + num + `\s*%|` + num + `\s*%.*\bprices?\b`),
			Key:     KeyPriceTolerancePercent,
			Extract: firstNumber,
		},
		{
			Name:    "distance miles",
			Group:   "distance",
			Trigger: regexp.MustCompile(`\bwithin\s+(?:a\s+)?` + num + `\s*(?:mi\b|miles?)|` + num + `\s*(?:mi\b|miles?)\s+(?:radius|of\s+the\s+subject)`),
			Key:     KeyMaxDistanceMiles,
			Extract: firstNumber,
		},
		{
			Name:    "age months",
			Group:   "age",
			Trigger: regexp.MustCompile(`\b(?:within|last|past)\s+(?:the\s+)?(?:(?:last|past)\s+)?(\d+)\s+months?\b`),
			Key:     KeyMaxAgeMonths,
			Extract: firstNumber,
		},
		{
			Name:    "age years",
			Group:   "age",
			Trigger: regexp.MustCompile(`\b(?:within|last|past)\s+(?:the\s+)?(?:(?:last|past)\s+)?(\d+)\s+years?\b`),
			Key:     KeyMaxAgeMonths,
			Extract: func(m []string) (float64, bool) {
				v, ok := firstNumber(m)
				return v * 12, ok
			},
		},
	}
}

var (
	hardWords      = regexp.MustCompile(`\b(?:must|required|only)\b`)
	preferredWords = regexp.MustCompile(`\b(?:prefer(?:red|ably)?|should|ideally)\b`)
	clauseSplit    = regexp.MustCompile(`[,;]+|\.(?:\s+|$)|\s+and\s+|\s+but\s+`)
)

// Parser converts natural-language instructions into criteria.
type Parser struct {
	rules []Rule
}

// NewParser creates a parser over rules; nil means DefaultRules.
func NewParser(rules []Rule) *Parser {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Parser{rules: rules}
}

// Parse extracts criteria and a priority from text. Unmatched text yields
// empty criteria; Parse never fails.
func (p *Parser) Parse(text string) (Criteria, float64) {
	lower := strings.ToLower(text)
	clauses := splitClauses(lower)

	criteria := Criteria{}
	matched := make(map[string]bool)
	for _, r := range p.rules {
		if matched[r.Group] {
			continue
		}
		for _, clause := range clauses {
			m := r.Trigger.FindStringSubmatch(clause)
			if m == nil {
				continue
			}
			if v, ok := r.Extract(m); ok {
				criteria[r.Key] = v
				matched[r.Group] = true
				break
			}
		}
	}
	return criteria, Priority(lower)
}

// Priority derives the priority from instruction wording.
func Priority(text string) float64 {
	lower := strings.ToLower(text)
	switch {
	case hardWords.MatchString(lower):
		return PriorityHard
	case preferredWords.MatchString(lower):
		return PriorityPreferred
	default:
		return PriorityNormal
	}
}

func splitClauses(s string) []string {
	parts := clauseSplit.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func flag([]string) (float64, bool) { return 1, true }

// firstNumber returns the first non-empty numeric capture group.
func firstNumber(m []string) (float64, bool) {
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if v, err := strconv.ParseFloat(g, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// unitless accepts m[1] only when no unit (m[2]) follows it, so
// "3 bedrooms within 1 mile" does not read as a bedroom tolerance.
func unitless(m []string) (float64, bool) {
	if len(m) > 2 && m[2] != "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err == nil
}
