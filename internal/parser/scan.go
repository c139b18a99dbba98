package parser

import (
	"iter"
	"strings"
)

const fence = "```"

// Block is one "## label" heading followed by a fenced code block.
type Block struct {
	// Label is the heading text after the marker, trimmed.
	Label string
	// Lang is the info string of the opening fence, if any.
	Lang string
	// Content is the exact text between the opening and closing fence lines.
	Content string
}

type line struct {
	start int // offset of the first byte
	end   int // offset just past the line break, or len(text)
	text  string
}

func splitLines(text string) []line {
	var lines []line
	start := 0
	for start < len(text) {
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			lines = append(lines, line{start: start, end: len(text), text: text[start:]})
			break
		}
		end += start + 1
		lines = append(lines, line{start: start, end: end, text: text[start:end]})
		start = end
	}
	return lines
}

// headingLabel returns the label of a level-2 heading line.
func headingLabel(s string) (string, bool) {
	if !strings.HasPrefix(s, "##") {
		return "", false
	}
	rest := s[2:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\r' && rest[0] != '\n' {
		// "###" is a deeper heading, "##foo" is not a heading at all.
		return "", false
	}
	label := strings.TrimSpace(rest)
	return label, label != ""
}

// openingFence returns the info string of an opening fence line.
func openingFence(s string) (string, bool) {
	if !strings.HasPrefix(s, fence) {
		return "", false
	}
	info := strings.TrimSpace(s[len(fence):])
	if strings.Contains(info, "`") {
		return "", false
	}
	return info, true
}

func isClosingFence(s string) bool {
	return strings.TrimSpace(s) == fence
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// nextNonBlank returns the index of the first non-blank line at or after i.
func nextNonBlank(lines []line, i int) int {
	for i < len(lines) && isBlank(lines[i].text) {
		i++
	}
	return i
}

// startsNewBlock reports whether lines[i] is a heading directly followed by
// an opening fence that marks a new file: one with a language tag, or any
// fence under a label known accepts. Inside an open block this means the
// model started a new file before closing the previous one.
func startsNewBlock(lines []line, i int, known func(label string) bool) bool {
	label, ok := headingLabel(lines[i].text)
	if !ok {
		return false
	}
	j := nextNonBlank(lines, i+1)
	if j >= len(lines) {
		return false
	}
	info, ok := openingFence(lines[j].text)
	if !ok {
		return false
	}
	return info != "" || (known != nil && known(label))
}

// closingFence looks for the line closing a block opened before from. It
// returns the closing line index, or ok=false and the index to resume at.
func closingFence(lines []line, from int, known func(label string) bool) (closing int, ok bool, resume int) {
	for k := from; k < len(lines); k++ {
		if isClosingFence(lines[k].text) {
			return k, true, k + 1
		}
		if startsNewBlock(lines, k, known) {
			return 0, false, k
		}
	}
	return 0, false, from
}

// Blocks yields every heading and fenced block pair in text, top to bottom.
// Unterminated blocks are skipped without consuming the constructs after them.
func Blocks(text string) iter.Seq[Block] {
	return BlocksFor(text, nil)
}

// BlocksFor is Blocks, but a heading whose label known accepts also ends an
// unterminated block when its fence has no language tag.
func BlocksFor(text string, known func(label string) bool) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		lines := splitLines(text)
		i := 0
		for i < len(lines) {
			label, ok := headingLabel(lines[i].text)
			if !ok {
				i++
				continue
			}

			open := nextNonBlank(lines, i+1)
			if open >= len(lines) {
				return
			}
			lang, ok := openingFence(lines[open].text)
			if !ok {
				i = open
				continue
			}

			closing, ok, resume := closingFence(lines, open+1, known)
			if !ok {
				i = resume
				continue
			}

			block := Block{
				Label:   label,
				Lang:    lang,
				Content: text[lines[open].end:lines[closing].start],
			}
			if !yield(block) {
				return
			}
			i = resume
		}
	}
}
