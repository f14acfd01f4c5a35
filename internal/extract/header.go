package extract

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

var headerLinePattern = regexp.MustCompile(`^[!-9;-~]+:`)

// skipHeaders consumes an RFC 822 header block and returns the body. An
// optional mbox "From " line may precede the headers. If the first line is
// not header-shaped the whole input is treated as body.
func skipHeaders(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	for first := true; ; first = false {
		line, err := br.ReadString('\n')
		if line == "" {
			return br
		}
		trimmed := strings.TrimRight(line, "\r\n")

		switch {
		case trimmed == "":
			return br
		case first && strings.HasPrefix(line, "From "):
		case !first && (line[0] == ' ' || line[0] == '\t'):
		case headerLinePattern.MatchString(trimmed):
		default:
			return io.MultiReader(strings.NewReader(line), br)
		}

		if err != nil {
			return br
		}
	}
}
