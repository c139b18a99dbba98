package render

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	langStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
	gutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

const gutter = "│ "

// Reply renders a markdown model reply for the terminal. Headings and fenced
// code blocks are styled; every other block is reproduced as written.
func Reply(source string) string {
	src := []byte(source)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))

	var parts []string
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if s := renderBlock(n, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func renderBlock(n ast.Node, src []byte) string {
	switch node := n.(type) {
	case *ast.Heading:
		marker := strings.Repeat("#", node.Level)
		return headingStyle.Render(marker + " " + segmentsText(node, src))
	case *ast.ThematicBreak:
		return gutterStyle.Render(strings.Repeat("─", 40))
	case *ast.FencedCodeBlock:
		return renderCode(node, src)
	default:
		return strings.TrimRight(rawBlock(n, src), "\n")
	}
}

func renderCode(node *ast.FencedCodeBlock, src []byte) string {
	var b strings.Builder
	if lang := node.Language(src); len(lang) > 0 {
		b.WriteString(langStyle.Render(string(lang)))
		b.WriteString("\n")
	}

	body := strings.TrimSuffix(segmentsText(node, src), "\n")
	for i, l := range strings.Split(body, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(gutterStyle.Render(gutter))
		b.WriteString(codeStyle.Render(l))
	}
	return b.String()
}

// segmentsText joins the line segments of a block node.
func segmentsText(n ast.Node, src []byte) string {
	var content bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		content.Write(line.Value(src))
	}
	return content.String()
}

// rawBlock returns the source text spanned by n, from the start of its first
// line to the end of its last segment.
func rawBlock(n ast.Node, src []byte) string {
	start, stop := -1, -1
	var visit func(ast.Node)
	visit = func(c ast.Node) {
		if c.Type() == ast.TypeBlock {
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if start < 0 || seg.Start < start {
					start = seg.Start
				}
				if seg.Stop > stop {
					stop = seg.Stop
				}
			}
		}
		for child := c.FirstChild(); child != nil; child = child.NextSibling() {
			visit(child)
		}
	}
	visit(n)

	if start < 0 {
		return ""
	}
	// Include list markers and quote prefixes before the first segment.
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return string(src[start:stop])
}
