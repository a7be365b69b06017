package template

import (
	"regexp"
	"strings"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Render substitutes {{variable}} placeholders in tpl with values from vars.
// Placeholder names are trimmed of surrounding whitespace before lookup.
// Placeholders without a matching variable pass through unchanged, so a
// missing value never fails a send.
func Render(tpl string, vars map[string]string) string {
	if tpl == "" || !strings.Contains(tpl, "{{") {
		return tpl
	}

	return variablePattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

// HasVariables reports whether tpl contains any {{variable}} placeholders.
func HasVariables(tpl string) bool {
	if tpl == "" {
		return false
	}
	return variablePattern.MatchString(tpl)
}
