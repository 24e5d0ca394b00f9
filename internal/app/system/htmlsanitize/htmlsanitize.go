// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

// notePolicy allows what a rich-text note editor produces: UGC formatting,
// tables with spans, and class attributes on block elements for alignment.
func notePolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
		p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("p", "span", "pre", "ol", "ul", "li", "blockquote")
		p.AllowAttrs("data-checked").Matching(bluemonday.Paragraph).OnElements("li")
		policy = p
	})
	return policy
}

// Sanitize strips scripts, event handlers and unsafe URLs from note content.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return notePolicy().Sanitize(s)
}

// StripTags removes all markup, leaving text. Used for titles and names.
func StripTags(s string) string {
	strictOnce.Do(func() { strict = bluemonday.StrictPolicy() })
	return strict.Sanitize(s)
}
