package advisor

import "regexp"

var termPattern = regexp.MustCompile(`(?m)^(\s*)- ([^:*\n]+):`)

// BoldTerms turns "- Term: text" list items into "- **Term**: text" so the
// metric names stand out when rendered as markdown
func BoldTerms(text string) string {
	return termPattern.ReplaceAllString(text, "$1- **$2**:")
}
