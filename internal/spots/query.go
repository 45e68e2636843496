package spots

import (
	"sort"
	"strings"

	"github.com/ayush/nature-spots/backend/internal/models"
)

// FilterSpots narrows spots by an optional keyword and tag, newest first.
//
// The keyword matches case-insensitively as a substring of title,
// description or location. The tag matches the raw comma-separated
// tags field the same way, so "oak" also matches "oakland" — tags are
// free text, not a structured vocabulary.
func FilterSpots(all []models.NatureSpot, q, tag string) []models.NatureSpot {
	q = strings.ToLower(strings.TrimSpace(q))
	tag = strings.ToLower(strings.TrimSpace(tag))

	matched := make([]models.NatureSpot, 0, len(all))
	for _, sp := range all {
		if q != "" {
			haystack := strings.ToLower(sp.Title + "\n" + sp.Description + "\n" + sp.Location)
			if !strings.Contains(haystack, q) {
				continue
			}
		}
		if tag != "" && !strings.Contains(strings.ToLower(sp.Tags), tag) {
			continue
		}
		matched = append(matched, sp)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return matched
}

// TagCloud collects every tag token across all spots: comma-split,
// trimmed, lower-cased, deduplicated, sorted. It is computed over the
// full set regardless of any active filter.
func TagCloud(all []models.NatureSpot) []string {
	seen := make(map[string]struct{})
	for _, sp := range all {
		for _, raw := range strings.Split(sp.Tags, ",") {
			token := strings.ToLower(strings.TrimSpace(raw))
			if token == "" {
				continue
			}
			seen[token] = struct{}{}
		}
	}

	cloud := make([]string, 0, len(seen))
	for token := range seen {
		cloud = append(cloud, token)
	}
	sort.Strings(cloud)
	return cloud
}
