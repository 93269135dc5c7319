package prompts

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the maximum title length in runes
const MaxTitleLength = 100

// ErrNoTitle is returned when a completion has no usable title line
var ErrNoTitle = errors.New("content has no title line")

var headingMarker = regexp.MustCompile(`^#{1,6}[ \t]*`)

// Render substitutes {name} placeholders in body with inputs. Placeholders
// without a value are replaced by the empty string and reported in missing.
func Render(body string, inputs map[string]string) (prompt string, missing []string) {
	seen := make(map[string]bool)
	prompt = placeholderRegex.ReplaceAllStringFunc(body, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := inputs[name]; ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return ""
	})
	return prompt, missing
}

// DeriveTitle returns the first line of content that is non-blank after
// one leading markdown heading marker is removed, trimmed and truncated to
// MaxTitleLength runes.
func DeriveTitle(content string) (string, error) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = headingMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return truncateRunes(line, MaxTitleLength), nil
	}
	return "", ErrNoTitle
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
