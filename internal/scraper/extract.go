package scraper

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const tableClose = "</table>"

// tablePolicy keeps table structure and anchor targets; every other element
// and attribute is dropped. The text of dropped elements is kept.
var tablePolicy = newTablePolicy()

func newTablePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td")
	p.AllowAttrs("href").OnElements("a")
	return p
}

// ExtractTable isolates the result table of a portal page.
//
// Lines are skipped until one contains marker; from there lines are collected,
// trimmed and concatenated, up to and including the first line holding a
// closing table tag in any case. The fragment is wrapped in an opening <table> tag,
// stripped of characters outside printable ASCII and passed through the
// allow-list, which lower-cases tags and removes <br>, class and target. Anything
// after the last </table> is cut. A page without the marker yields an empty
// table.
func ExtractTable(body []byte, marker string) string {
	var frag strings.Builder
	frag.WriteString("<table>")

	dataOn := false
	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if !dataOn {
			if strings.Contains(trimmed, marker) {
				frag.WriteString(trimmed)
				dataOn = true
			}
			continue
		}
		frag.WriteString(trimmed)
		if strings.Contains(strings.ToLower(trimmed), "</table") {
			break
		}
	}

	clean := tablePolicy.Sanitize(stripNonASCII(frag.String()))

	if i := strings.LastIndex(clean, tableClose); i >= 0 {
		return clean[:i+len(tableClose)]
	}
	return clean + tableClose
}

// stripNonASCII keeps runes in [1,126]. Invalid UTF-8 decodes to U+FFFD and is
// dropped too.
func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0 && r < 127 {
			return r
		}
		return -1
	}, s)
}
