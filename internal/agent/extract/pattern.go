package extract

import "github.com/dlclark/regexp2"

// regexp2Pattern wraps a compiled pattern that captures its first group
// across a multi-line response, mirroring Python's re.DOTALL used by
// the recommendation-cue patterns.
type regexp2Pattern struct {
	re *regexp2.Regexp
}

func newPattern(expr string) *regexp2Pattern {
	return &regexp2Pattern{re: regexp2.MustCompile(expr, regexp2.IgnoreCase|regexp2.Singleline)}
}

// FirstMatch returns the first capture group of the first match, if any.
func (p *regexp2Pattern) FirstMatch(text string) (string, bool) {
	m, err := p.re.FindStringMatch(text)
	if err != nil || m == nil {
		return "", false
	}
	g := m.GroupByNumber(1)
	if g == nil || g.String() == "" {
		return "", false
	}
	return g.String(), true
}
