package moderation

import "regexp"

var linkPattern = regexp.MustCompile(`(?i)(https?://|www\.)\S+|t\.me/\S+`)

// ContainsLink reports whether the text carries an URL or a t.me
// reference.
func ContainsLink(text string) bool {
	return text != "" && linkPattern.MatchString(text)
}
