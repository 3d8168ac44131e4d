// Package rewrite expands user queries with domain synonyms before
// embedding, raising recall for structured-field lookups against policy
// documents.
package rewrite

import "strings"

// synonymGroup ties a trigger phrase to the synonyms appended when the
// phrase occurs in a query.
type synonymGroup struct {
	trigger  string
	synonyms []string
}

// groups is the fixed synonym table. "estimated total premium" must be
// checked before its substring "total premium": the more specific
// trigger suppresses the generic one.
var groups = []synonymGroup{
	{
		trigger:  "policy number",
		synonyms: []string{"policy #", "policy no", "policy id"},
	},
	{
		trigger:  "estimated total premium",
		synonyms: []string{"total premium", "premium total", "premium overall"},
	},
	{
		trigger:  "total premium",
		synonyms: []string{"estimated total premium", "premium total", "premium overall"},
	},
	{
		trigger:  "premium at inception",
		synonyms: []string{"payable at inception premium", "inception premium"},
	},
}

// Expand appends any synonyms triggered by the query that are not
// already present, quoting multi-word synonyms. The original query is
// returned unchanged when no trigger phrase matches. Expand is
// idempotent: a synonym already substring-present in the lowercased
// query, or already scheduled, is never appended twice.
func Expand(query string) string {
	lowered := strings.ToLower(query)

	var appended []string
	seen := make(map[string]bool)

	matchedEstimated := false
	for _, g := range groups {
		if g.trigger == "total premium" && matchedEstimated {
			continue
		}
		if !strings.Contains(lowered, g.trigger) {
			continue
		}
		if g.trigger == "estimated total premium" {
			matchedEstimated = true
		}
		for _, syn := range g.synonyms {
			lower := strings.ToLower(syn)
			if strings.Contains(lowered, lower) || seen[lower] {
				continue
			}
			seen[lower] = true
			appended = append(appended, syn)
		}
	}

	if len(appended) == 0 {
		return query
	}

	terms := make([]string, len(appended))
	for i, syn := range appended {
		if strings.Contains(syn, " ") {
			terms[i] = `"` + syn + `"`
		} else {
			terms[i] = syn
		}
	}

	return strings.TrimSpace(query + " " + strings.Join(terms, " "))
}
