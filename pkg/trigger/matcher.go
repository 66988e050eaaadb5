package trigger

import (
	"fmt"
	"regexp"
	"strings"
)

var mentionMarkup = regexp.MustCompile(`<@!?\d+>`)

// Normalize strips user-mention markup from message text and trims
// surrounding whitespace. Both matching and the bot-mention check operate
// on the result.
func Normalize(text string) string {
	return strings.TrimSpace(mentionMarkup.ReplaceAllString(text, ""))
}

// Compile builds the evaluation regexp for a pattern kind and value.
// For every kind except regex the value is escaped literally; for regex the
// value is used verbatim and may fail to compile.
func Compile(pattern Pattern, value string, caseSensitive bool) (*regexp.Regexp, error) {
	var expr string
	switch pattern {
	case PatternStart:
		expr = "^" + regexp.QuoteMeta(value)
	case PatternEnd:
		expr = regexp.QuoteMeta(value) + "$"
	case PatternContain:
		expr = regexp.QuoteMeta(value)
	case PatternRegex:
		expr = value
	case PatternEqual:
		expr = "^" + regexp.QuoteMeta(value) + "$"
	default:
		return nil, fmt.Errorf("unknown pattern kind %q", pattern)
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

// Matches reports whether the normalized message text satisfies the
// trigger's pattern. A trigger whose regex failed to compile never matches.
func Matches(t *Trigger, text string) bool {
	re, err := Compile(t.Pattern, t.Value, t.CaseSensitive)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
