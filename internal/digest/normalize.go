package digest

import "regexp"

// Whitespace is the ASCII set space, \t, \n, \r, \f and \v; \S in the
// patterns below is its complement.
const (
	ws    = `[ \t\n\r\f\v]`
	nonWS = `[^ \t\n\r\f\v]`
)

var (
	emailPattern   = regexp.MustCompile(nonWS + `+@` + nonWS + `+`)
	urlPattern     = regexp.MustCompile(`(?i)[a-z]+:` + nonWS + `+`)
	longStrPattern = regexp.MustCompile(nonWS + `{10,}`)
	htmlTagPattern = regexp.MustCompile(`<.*?>`)
	wsPattern      = regexp.MustCompile(ws)
)

// Normalize strips email addresses, URLs, long opaque tokens and HTML tags
// from a line, then removes all whitespace. The order matters: the token
// rules rely on whitespace to find token boundaries.
func Normalize(line string) string {
	s := emailPattern.ReplaceAllLiteralString(line, "")
	s = urlPattern.ReplaceAllLiteralString(s, "")
	s = longStrPattern.ReplaceAllLiteralString(s, "")
	s = htmlTagPattern.ReplaceAllLiteralString(s, "")
	return wsPattern.ReplaceAllLiteralString(s, "")
}
