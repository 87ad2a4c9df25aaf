package segmentweaver

import "regexp"

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// SplitHardBreaks splits text at literal line breaks (\n, \r\n or \r).
// A string with n breaks yields n+1 lines; lines may be empty.
func SplitHardBreaks(text string) []string {
	return lineBreak.Split(text, -1)
}

// HasHardBreak reports whether text contains a literal line break.
func HasHardBreak(text string) bool {
	return lineBreak.MatchString(text)
}
