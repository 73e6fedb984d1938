// Package catalog holds the closed enumerations the discovery core's filter
// and spec validation depend on: streaming provider name→id mapping and the
// canonical genre list.
package catalog

import (
	"context"

	"reelix/internal/observability"
)

// ProviderIDs maps user-facing provider names to the numeric ids the vector
// store filter uses. Shipped verbatim per the external interface contract.
var ProviderIDs = map[string]int{
	"Netflix":           8,
	"Hulu":              15,
	"HBO Max":           1899,
	"Disney+":           337,
	"Apple TV+":         350,
	"Amazon Prime Video": 9,
	"Paramount+":        531,
	"Peacock Premium":   386,
	"MGM+":              34,
	"Starz":             43,
	"AMC+":              526,
	"Crunchyroll":       283,
	"BritBox":           151,
	"Acorn TV":          87,
	"Criterion Channel": 258,
	"Tubi TV":           73,
	"Pluto TV":          300,
	"The Roku Channel":  207,
}

// ResolveProviderIDs maps provider names to ids, dropping and logging any
// unknown names.
func ResolveProviderIDs(ctx context.Context, names []string) []int {
	out := make([]int, 0, len(names))
	for _, n := range names {
		id, ok := ProviderIDs[n]
		if !ok {
			observability.LoggerWithTrace(ctx).Warn().Str("provider", n).Msg("unknown_provider_name")
			continue
		}
		out = append(out, id)
	}
	return out
}

// Genres is the canonical closed genre enumeration.
var Genres = []string{
	"Action", "Comedy", "Drama", "Romance", "Science Fiction", "Thriller",
	"Adventure", "Animation", "Crime", "Documentary", "Family", "Fantasy",
	"History", "Horror", "Music", "Mystery", "War", "Western",
}

// IsCanonicalGenre reports whether g is in the closed genre enumeration.
func IsCanonicalGenre(g string) bool {
	for _, c := range Genres {
		if c == g {
			return true
		}
	}
	return false
}
