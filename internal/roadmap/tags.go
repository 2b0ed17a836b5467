package roadmap

import (
	"strings"

	"github.com/campfirehq/roadsync/internal/forum"
)

// MapLabelsToTags matches card labels against a forum's tag vocabulary by
// case-insensitive name comparison. Unmatched labels are silently dropped;
// the result keeps label order and is capped to the first max matches.
func MapLabelsToTags(labels []string, tags []forum.Tag, max int) []string {
	if max <= 0 || len(labels) == 0 || len(tags) == 0 {
		return nil
	}

	byName := make(map[string]string, len(tags))
	for _, t := range tags {
		byName[strings.ToLower(t.Name)] = t.ID
	}

	var ids []string
	seen := make(map[string]bool)
	for _, label := range labels {
		id, ok := byName[strings.ToLower(label)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == max {
			break
		}
	}
	return ids
}

// sameTagSet compares two tag ID slices ignoring order.
func sameTagSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
