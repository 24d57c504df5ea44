package noteformat

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldSpanPattern   = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	escapedStrongOpen = regexp.MustCompile(`&lt;(/?)strong&gt;`)
	strongTagPattern  = regexp.MustCompile(`</?strong>`)
)

// FormatHTML renders raw note text as one HTML block per line.
func FormatHTML(raw string) string {
	blocks := parse(Repair(raw))
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.kind {
		case blockRawHTML:
			out = append(out, b.lines[0])
		case blockHeading:
			out = append(out, "<p><strong>"+inlineHTML(b.lines[0])+"</strong></p>")
		case blockList:
			out = append(out, "<ul>")
			for _, item := range b.lines {
				out = append(out, "<li>"+inlineHTML(item)+"</li>")
			}
			out = append(out, "</ul>")
		case blockParagraph:
			parts := make([]string, len(b.lines))
			for i, l := range b.lines {
				parts[i] = inlineHTML(l)
			}
			out = append(out, "<p>"+strings.Join(parts, "<br>")+"</p>")
		}
	}
	return strings.Join(out, "\n")
}

// FormatPlainText renders raw note text without markup. Blocks are
// separated by exactly one blank line.
func FormatPlainText(raw string) string {
	blocks := parse(Repair(raw))
	out := make([]string, 0, len(blocks))
	inRenderedList := false
	for _, b := range blocks {
		if b.kind == blockRawHTML && strings.HasPrefix(b.lines[0], "<li>") {
			item := "  • " + html.UnescapeString(stripTags(b.lines[0]))
			if inRenderedList && len(out) > 0 {
				out[len(out)-1] += "\n" + item
			} else {
				out = append(out, item)
			}
			inRenderedList = true
			continue
		}
		inRenderedList = false
		switch b.kind {
		case blockRawHTML:
			if text := plainFromHTML(b.lines[0]); text != "" {
				out = append(out, text)
			}
		case blockHeading:
			out = append(out, inlinePlain(b.lines[0]))
		case blockList:
			items := make([]string, len(b.lines))
			for i, item := range b.lines {
				items[i] = "  • " + inlinePlain(item)
			}
			out = append(out, strings.Join(items, "\n"))
		case blockParagraph:
			lines := make([]string, len(b.lines))
			for i, l := range b.lines {
				lines[i] = inlinePlain(l)
			}
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(out, "\n\n")
}

func inlineHTML(s string) string {
	escaped := html.EscapeString(s)
	escaped = escapedStrongOpen.ReplaceAllString(escaped, "<${1}strong>")
	escaped = boldSpanPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	return escaped
}

func inlinePlain(s string) string {
	s = boldSpanPattern.ReplaceAllString(s, "$1")
	return strongTagPattern.ReplaceAllString(s, "")
}

func plainFromHTML(line string) string {
	switch line {
	case "<ul>", "</ul>":
		return ""
	}
	return html.UnescapeString(strings.ReplaceAll(stripTags(strings.ReplaceAll(line, "<br>", "\n")), "\n\n", "\n"))
}

func stripTags(s string) string {
	return allowedTagPattern.ReplaceAllString(s, "")
}
