package driver

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// StripTags returns the text content of an HTML fragment.
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input.
			return strings.TrimSpace(sb.String())
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func isRawText(tag []byte) bool {
	t := string(tag)
	return t == "script" || t == "style"
}

var authorPattern = regexp.MustCompile(`^(\S+)\s+\((.+?)\)`)

// ParseAuthor splits an RSS author line of the form "email (Display Name)".
func ParseAuthor(s string) (email, name string, ok bool) {
	m := authorPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	if err := validate.Var(m[1], "email"); err != nil {
		return "", "", false
	}
	return m[1], m[2], true
}
