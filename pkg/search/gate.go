package search

import (
	"strings"
)

// searchTriggers are substrings whose presence indicates the query needs
// real-time or recent data that the model alone cannot provide.
var searchTriggers = []string{
	"current",
	"latest",
	"recent",
	"today",
	"2024",
	"2025",
	"2026",
	"news",
	"update",
	"now",
	"this year",
	"this month",
	"this week",
	"right now",
	"at the moment",
	"as of",
	"cop28",
	"cop29",
	"cop30",
	"ipcc",
	"report",
	"study shows",
	"according to",
	"statistics",
	"data shows",
	"ppm", // CO2 levels
	"atmospheric co2",
	"temperature record",
	"sea level",
	"glacier",
	"arctic ice",
}

// ShouldSearch decides from the query text alone whether to augment the
// request with a web search. Pure substring test, case-insensitive, no
// ranking among triggers.
func ShouldSearch(query string) bool {
	lowerQuery := strings.ToLower(query)
	for _, trigger := range searchTriggers {
		if strings.Contains(lowerQuery, trigger) {
			return true
		}
	}
	return false
}
