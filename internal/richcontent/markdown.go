package richcontent

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// RenderPost converts a markdown agent reply into a Lark post message body,
// walking the goldmark AST and feeding it through postBuilder so headings,
// emphasis, links, and code blocks survive the trip instead of being sent as
// raw markdown syntax.
func RenderPost(markdownText string) string {
	source := []byte(markdownText)
	doc := md.Parser().Parse(gmtext.NewReader(source))

	b := newPostBuilder()
	renderChildren(b, doc, source)
	if b.Empty() {
		b.AddText(markdownText)
	}
	return b.Build()
}

func renderChildren(b *postBuilder, parent ast.Node, source []byte) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		renderBlock(b, n, source)
	}
}

func renderBlock(b *postBuilder, n ast.Node, source []byte) {
	switch node := n.(type) {
	case *ast.Paragraph:
		renderInlineChildren(b, node, source)
		b.NewLine()
	case *ast.Heading:
		b.AddBold(strings.Repeat("#", node.Level) + " ")
		renderInlineChildren(b, node, source)
		b.NewLine()
	case *ast.Blockquote:
		b.AddText("> ")
		renderChildren(b, node, source)
	case *ast.List:
		renderList(b, node, source)
	case *ast.FencedCodeBlock:
		b.AddCodeBlock(collectLines(node, source), string(node.Language(source)))
		b.NewLine()
	case *ast.CodeBlock:
		b.AddCodeBlock(collectLines(node, source), "")
		b.NewLine()
	case *ast.ThematicBreak:
		b.AddText("---")
		b.NewLine()
	default:
		renderChildren(b, n, source)
	}
}

func renderList(b *postBuilder, list *ast.List, source []byte) {
	idx := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		prefix := "- "
		if list.IsOrdered() {
			prefix = strconv.Itoa(idx) + ". "
			idx++
		}
		b.AddText(prefix)
		renderChildren(b, item, source)
	}
}

func renderInlineChildren(b *postBuilder, parent ast.Node, source []byte) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		renderInline(b, n, source, false, false)
	}
}

func renderInline(b *postBuilder, n ast.Node, source []byte, bold, italic bool) {
	switch node := n.(type) {
	case *ast.Text:
		text := string(node.Segment.Value(source))
		addStyledText(b, text, bold, italic)
		if node.HardLineBreak() || node.SoftLineBreak() {
			b.NewLine()
		}
	case *ast.CodeSpan:
		b.AddCodeBlock(string(collectInlineText(node, source)), "")
	case *ast.Emphasis:
		nextBold, nextItalic := bold, italic
		if node.Level >= 2 {
			nextBold = true
		} else {
			nextItalic = true
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			renderInline(b, c, source, nextBold, nextItalic)
		}
	case *ast.Link:
		b.AddLink(string(collectInlineText(node, source)), string(node.Destination))
	case *ast.AutoLink:
		url := string(node.URL(source))
		b.AddLink(url, url)
	case *ast.Image:
		b.AddText(string(collectInlineText(node, source)))
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			renderInline(b, c, source, bold, italic)
		}
	}
}

func addStyledText(b *postBuilder, text string, bold, italic bool) {
	switch {
	case bold && italic:
		b.appendElement(element{"tag": "text", "text": text, "style": []string{"bold", "italic"}})
	case bold:
		b.AddBold(text)
	case italic:
		b.AddItalic(text)
	default:
		b.AddText(text)
	}
}

func collectInlineText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			continue
		}
		buf.Write(collectInlineText(c, source))
	}
	return buf.Bytes()
}

func collectLines(n interface {
	Lines() *gmtext.Segments
}, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return strings.TrimRight(buf.String(), "\n")
}
