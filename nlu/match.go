// Package nlu implements the lexical half of intent matching: substring and
// regexp tests over normalized user utterances, affirmation/negation
// detection, similarity scoring and pluralization helpers.
//
// There is deliberately no ML here; matching is lexical or regexp only.
package nlu

import (
	"regexp"
	"strings"
)

// IsSayText reports whether text says any of find.
//
// With asPattern unset every find element is tested as a plain,
// case-sensitive substring, short-circuiting on the first hit. With
// asPattern set the elements are combined into a single "(p1)|(p2)|..."
// alternation, compiled with multiline+case-insensitive flags and cached.
func IsSayText(find []string, text string, asPattern bool) bool {

	if len(find) == 0 || text == "" {
		return false
	}

	if !asPattern {
		for _, sub := range find {
			if sub != "" && strings.Contains(text, sub) {
				return true
			}
		}
		return false
	}

	var sb strings.Builder
	sb.WriteString("(?im)")
	for i, expr := range find {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteByte('(')
		sb.WriteString(expr)
		sb.WriteByte(')')
	}

	re, err := Pattern(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// Word-boundary anchored vocabulary. Go's RE2 \b is ASCII-only, so for
// Cyrillic the boundary is spelled out as "not a letter" on either side.
var (
	sayTrue = mustBounded(
		`да`, `ага`, `конечно`, `соглас\p{L}*`, `подтвер\p{L}*`,
	)
	sayFalse = mustBounded(
		`нет`, `неа`, `не`,
	)
)

func mustBounded(words ...string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?i)(^|\P{L})(` + strings.Join(words, "|") + `)($|\P{L})`,
	)
}

// IsSayTrue reports whether text contains an affirmative answer.
func IsSayTrue(text string) bool {
	return sayTrue.MatchString(text)
}

// IsSayFalse reports whether text contains a negative answer.
func IsSayFalse(text string) bool {
	return sayFalse.MatchString(text)
}
