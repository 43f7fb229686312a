// Package match implements the attribute matching primitives shared by the
// store and in-memory query paths: wildcard translation, case folding,
// multi-value splitting and date/time range parsing.
//
// Matching is case-insensitive throughout, including equality on values
// whose reference semantics are case-sensitive. Callers rely on this.
package match

import (
	"regexp"
	"strings"

	"github.com/rcliao/dicom-find/internal/dataset"
)

// noWildcard lists the value representations on which * and ? are literal.
var noWildcard = map[dataset.VR]bool{
	dataset.DA: true, dataset.TM: true, dataset.DT: true,
	dataset.UI: true,
	dataset.IS: true, dataset.DS: true,
	dataset.FL: true, dataset.FD: true,
	dataset.SL: true, dataset.SS: true, dataset.UL: true, dataset.US: true,
	dataset.AT: true,
	dataset.OB: true, dataset.OW: true, dataset.UN: true, dataset.SQ: true,
}

// IsWildcard reports whether text is a wildcard pattern for the given VR.
func IsWildcard(vr dataset.VR, text string) bool {
	if noWildcard[vr] {
		return false
	}
	return strings.ContainsAny(text, "*?")
}

// Fold returns the case-folded form used for every comparison.
func Fold(s string) string {
	return strings.ToLower(s)
}

// EqualsCI reports whether a and b are equal ignoring case.
func EqualsCI(a, b string) bool {
	return Fold(a) == Fold(b)
}

// WildcardToRegex translates a wildcard pattern into an anchored,
// case-insensitive regular expression. * matches any run of characters and
// ? exactly one character; everything else is literal.
func WildcardToRegex(text string) string {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	lit := 0
	for i, r := range text {
		if r != '*' && r != '?' {
			continue
		}
		b.WriteString(regexp.QuoteMeta(text[lit:i]))
		if r == '*' {
			b.WriteString(`.*`)
		} else {
			b.WriteString(`.`)
		}
		lit = i + 1
	}
	b.WriteString(regexp.QuoteMeta(text[lit:]))
	b.WriteString(`$`)
	return b.String()
}

// CompileWildcard compiles the folded pattern. Values matched against it
// must be folded with Fold.
func CompileWildcard(text string) *regexp.Regexp {
	return regexp.MustCompile(WildcardToRegex(Fold(text)))
}

// LikeEscape is the escape character used by WildcardToLike.
const LikeEscape = `\`

// WildcardToLike translates a wildcard pattern into a folded SQL LIKE
// pattern escaped with LikeEscape.
func WildcardToLike(text string) string {
	var b strings.Builder
	for _, r := range Fold(text) {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteString(LikeEscape)
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitValues splits a multi-valued attribute into its atomic values,
// trimming padding and dropping empty values.
func SplitValues(s string) []string {
	var out []string
	for _, v := range strings.Split(s, dataset.Delimiter) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
