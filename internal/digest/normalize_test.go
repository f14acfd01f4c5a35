package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "buy cheap pills\n", "buycheappills"},
		{"email", "mail bob@example.com now", "mailnow"},
		{"url", "see HTTP://example.com/x?y=1 today", "seetoday"},
		{"mailto", "write mailto:bob here", "writehere"},
		{"long token", "id 0123456789abcdef end", "idend"},
		{"nine chars kept", "abcdefghi x", "abcdefghix"},
		{"html tag", "<b>hi</b> text", "hitext"},
		{"tag spanning tokens", "<a b=c>hi", "hi"},
		{"all whitespace kinds", "a\tb\rc\fd\ve f\n", "abcdef"},
		{"empty", "", ""},
		{"only removed", "bob@example.com http://x.y 0123456789", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"buy now\n",
		"<p>hi there</p>",
		"mail bob@example.com at 5",
		"  spaced   out  ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeOrderMatters(t *testing.T) {
	// Both tokens are short, so only the space goes even though the joined
	// result is 10 characters long.
	assert.Equal(t, "abcdeabcde", Normalize("abcde abcde"))
}
