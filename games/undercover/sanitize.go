/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	maxNameLength = 32
	maxWordLength = 64
)

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from s, collapses whitespace and truncates it to limit runes.
func cleanText(s string, limit int) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}

	return s
}
