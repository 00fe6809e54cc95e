package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// TitleIfUpper converts an all-caps name from the export ("MARILYN") to
// title case for friendly display. Mixed-case input is left alone so
// deliberate casing like "McDonald" survives.
func TitleIfUpper(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != strings.ToUpper(trimmed) {
		return name
	}
	return titleCaser.String(strings.ToLower(trimmed))
}
