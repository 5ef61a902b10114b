package render

import (
	"bytes"
	"html/template"

	"github.com/russross/blackfriday/v2"
)

const markdownExtensions = blackfriday.CommonExtensions |
	blackfriday.AutoHeadingIDs |
	blackfriday.Footnotes

// MarkdownToHTML converts a Markdown body to HTML.
func MarkdownToHTML(src []byte) template.HTML {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	out := blackfriday.Run(src, blackfriday.WithExtensions(markdownExtensions))
	return template.HTML(out)
}

// FirstHeading returns the text of the first level-one ATX heading outside
// fenced code, or "".
func FirstHeading(src []byte) string {
	fenced := false
	for len(src) > 0 {
		line, rest, _ := cutLine(src)
		line = bytes.TrimRight(line, " \t\r")
		if bytes.HasPrefix(line, []byte("```")) || bytes.HasPrefix(line, []byte("~~~")) {
			fenced = !fenced
		}
		if !fenced && bytes.HasPrefix(line, []byte("# ")) {
			return string(bytes.TrimSpace(line[2:]))
		}
		src = rest
	}
	return ""
}
