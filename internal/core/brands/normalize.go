package brands

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	parens     = regexp.MustCompile(`[()\[\]{}]`)
	separators = regexp.MustCompile(`[\s\-_.]+`)
	lower      = cases.Lower(language.Und)
)

// Normalize приводит название бренда к форме для сравнения:
// "Acme  Corp." и "acme-corp" дают одно и то же "acme corp".
func Normalize(name string) string {
	s := norm.NFKC.String(name)
	s = strings.TrimSpace(s)
	s = parens.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, " ")
	s = lower.String(s)
	return strings.TrimSpace(s)
}
