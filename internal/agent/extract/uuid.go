package extract

import "github.com/dlclark/regexp2"

var uuidPattern = regexp2.MustCompile(
	`[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`,
	regexp2.IgnoreCase,
)

// AllUUIDs returns every UUID-shaped token in text, deduplicated and in
// order of first appearance.
func AllUUIDs(text string) []string {
	seen := make(map[string]struct{})
	var ids []string

	m, _ := uuidPattern.FindStringMatch(text)
	for m != nil {
		id := m.String()
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		m, _ = uuidPattern.FindNextMatch(m)
	}
	return ids
}
