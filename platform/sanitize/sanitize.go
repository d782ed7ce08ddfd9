// Package sanitize cleans free-form text before storage. Lead notes,
// template bodies, and scraped record details all pass through here.
package sanitize

import (
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// Text strips HTML tags and trims the result. County portals and inbound
// webhooks occasionally deliver markup inside otherwise plain fields;
// entity-encoded tags are decoded and stripped in a second pass.
func Text(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}
