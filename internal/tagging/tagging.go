// Package tagging derives forum tags for an approved submission from its
// answers.
package tagging

import (
	"slices"
	"strings"

	"github.com/pitabwire/irrbot/model"
)

// Derive returns the ids of every rule whose Contains text occurs in at least
// one answer. Matching is a substring test, lower-cased on both sides unless
// the rule is case sensitive. The result is sorted and free of duplicates, so
// rule order never matters.
func Derive(sub model.Submission, rules []model.TagRule) []model.TagID {
	answers := sub.Answers()
	lowered := make([]string, len(answers))
	for i, a := range answers {
		lowered[i] = strings.ToLower(a)
	}

	set := make(map[model.TagID]struct{})
	for _, rule := range rules {
		needle, haystack := rule.Contains, answers
		if !rule.CaseSensitive {
			needle, haystack = strings.ToLower(needle), lowered
		}
		if slices.ContainsFunc(haystack, func(a string) bool { return strings.Contains(a, needle) }) {
			set[rule.TagID] = struct{}{}
		}
	}

	ids := make([]model.TagID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Resolve maps derived ids to the tags the forum offers. Ids the forum does
// not know are returned separately so the caller can log them.
func Resolve(ids []model.TagID, available []model.ForumTag) (tags []model.ForumTag, unknown []model.TagID) {
	byID := make(map[model.TagID]model.ForumTag, len(available))
	for _, t := range available {
		byID[t.ID] = t
	}
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			tags = append(tags, t)
		} else {
			unknown = append(unknown, id)
		}
	}
	return tags, unknown
}
