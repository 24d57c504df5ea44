package noteformat

import (
	"regexp"
	"strings"
)

type blockKind int

const (
	blockHeading blockKind = iota
	blockParagraph
	blockList
	blockRawHTML
)

type block struct {
	kind  blockKind
	lines []string
}

var (
	headingPattern    = regexp.MustCompile(`^#{1,6}[ \t]+(.+?)[ \t#]*$`)
	boldLinePattern   = regexp.MustCompile(`^\*\*([^*]+)\*\*$`)
	strongLinePattern = regexp.MustCompile(`^<strong>([^<]+)</strong>$`)
	bulletPattern     = regexp.MustCompile(`^[ \t]*[-*•+][ \t]+(.+)$`)
	rulePattern       = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)
	rawBlockPattern   = regexp.MustCompile(`^(?:<p>.*</p>|<ul>|</ul>|<li>.*</li>)$`)
	allowedTagPattern = regexp.MustCompile(`</?(?:p|ul|li|strong|br)>`)
)

// parse splits repaired text into blocks. Blank lines end paragraphs and
// lists; headings always stand alone.
func parse(text string) []block {
	var (
		blocks []block
		cur    *block
	)
	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || rulePattern.MatchString(trimmed) {
			flush()
			continue
		}
		if isRenderedHTML(trimmed) {
			flush()
			blocks = append(blocks, block{kind: blockRawHTML, lines: []string{trimmed}})
			continue
		}
		if heading, ok := headingText(trimmed); ok {
			flush()
			blocks = append(blocks, block{kind: blockHeading, lines: []string{heading}})
			continue
		}
		if m := bulletPattern.FindStringSubmatch(line); m != nil && !strings.HasPrefix(trimmed, "**") {
			if cur == nil || cur.kind != blockList {
				flush()
				cur = &block{kind: blockList}
			}
			cur.lines = append(cur.lines, strings.TrimSpace(m[1]))
			continue
		}
		if cur == nil || cur.kind != blockParagraph {
			flush()
			cur = &block{kind: blockParagraph}
		}
		cur.lines = append(cur.lines, trimmed)
	}
	flush()
	return blocks
}

// headingText recognises markdown headings and lines that are nothing but
// bold text. Bold text ending in a colon is a label, not a heading.
func headingText(line string) (string, bool) {
	if m := headingPattern.FindStringSubmatch(line); m != nil {
		text := unwrapBold(strings.TrimSpace(m[1]))
		if text == "" {
			return "", false
		}
		return text, true
	}
	for _, p := range []*regexp.Regexp{boldLinePattern, strongLinePattern} {
		if m := p.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[1])
			if text == "" || strings.HasSuffix(text, ":") {
				return "", false
			}
			return text, true
		}
	}
	return "", false
}

func unwrapBold(s string) string {
	for {
		switch {
		case len(s) > 4 && strings.HasPrefix(s, "**") && strings.HasSuffix(s, "**") && !strings.Contains(s[2:len(s)-2], "**"):
			s = strings.TrimSpace(s[2 : len(s)-2])
		case strings.HasPrefix(s, "<strong>") && strings.HasSuffix(s, "</strong>") && strings.Count(s, "<strong>") == 1:
			s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "<strong>"), "</strong>"))
		default:
			return s
		}
	}
}

// isRenderedHTML reports whether line is a block this package already
// produced. Lines carrying any other markup are treated as text.
func isRenderedHTML(line string) bool {
	if !rawBlockPattern.MatchString(line) {
		return false
	}
	return !strings.ContainsAny(allowedTagPattern.ReplaceAllString(line, ""), "<>")
}
