package session

import (
	"fmt"
	"strings"

	"github.com/sokinpui/ask.go/model"
)

const fence = "```"

// DefaultSystemPrompt tells the model how to propose file changes so that the
// parser can pick them up.
var DefaultSystemPrompt = strings.Join([]string{
	"You are a careful programming assistant. The user shares source files and asks a question about them.",
	"Answer the question. If you change any file, restate the complete new content of every changed file",
	"as a level-2 heading with the file path exactly as given, followed by one fenced code block:",
	"",
	"## path/to/file.ext",
	fence + "ext",
	"complete file content",
	fence,
	"",
	"Only use paths from the files you were given. Never send partial files, placeholders or diffs.",
	"Files you do not change must not be restated.",
}, "\n")

// BuildPrompt renders the tracked files and the question into the user
// message, using the same heading and fence layout the reply is parsed with.
func BuildPrompt(files []model.TrackedFile, question string) string {
	var b strings.Builder
	if len(files) > 0 {
		b.WriteString("Here are the files:\n\n")
	}
	for _, f := range files {
		fmt.Fprintf(&b, "## %s\n\n%s%s\n", f.Identity, fence, f.Extension)
		b.WriteString(f.Content)
		if f.Content != "" && !strings.HasSuffix(f.Content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(fence + "\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}
