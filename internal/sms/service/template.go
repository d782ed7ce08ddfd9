package service

import (
	"regexp"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-z_]+)\s*\}\}`)

// RenderTemplate substitutes {{field}} placeholders from the given values.
// Unknown placeholders render as empty strings; runs of whitespace left
// behind are collapsed.
func RenderTemplate(body string, fields map[string]string) string {
	rendered := placeholderRegex.ReplaceAllStringFunc(body, func(match string) string {
		key := placeholderRegex.FindStringSubmatch(match)[1]
		return fields[key]
	})

	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// TemplateFields derives the standard placeholder set from a lead's owner
// name and property fields.
func TemplateFields(ownerName string, property map[string]string) map[string]string {
	fields := map[string]string{
		"owner_name": ownerName,
		"first_name": firstName(ownerName),
	}
	for k, v := range property {
		fields[k] = v
	}
	return fields
}

// firstName extracts a usable first name from owner-of-record strings like
// "SMITH, JOHN A" or "John Smith". Entities fall back to "there".
func firstName(ownerName string) string {
	name := strings.TrimSpace(ownerName)
	if name == "" {
		return "there"
	}

	padded := " " + strings.ToUpper(name) + " "
	for _, marker := range []string{" LLC ", " TRUST ", " INC ", " CORP ", " ESTATE OF ", " PROPERTIES ", " HOLDINGS "} {
		if strings.Contains(padded, marker) {
			return "there"
		}
	}

	// "LAST, FIRST" assessor format.
	if idx := strings.Index(name, ","); idx >= 0 {
		parts := strings.Fields(name[idx+1:])
		if len(parts) > 0 {
			return titleCase(parts[0])
		}
		return "there"
	}

	parts := strings.Fields(name)
	return titleCase(parts[0])
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
