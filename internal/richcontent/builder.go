// Package richcontent builds Lark rich text ("post") message bodies for
// agent replies rendered from markdown. The post message type arranges
// inline elements — plain text, bold/italic runs, hyperlinks, code blocks —
// into paragraphs (lines).
package richcontent

import "encoding/json"

// element is a single inline element within a post paragraph.
type element = map[string]any

// postBuilder assembles the paragraph/element structure a post message body
// needs. Unlike a general-purpose rich-text API, this only exposes what
// markdown.go's AST walk actually drives: this gateway never titles a post
// or switches its locale, since every post it sends is an untitled zh_cn
// agent reply body.
type postBuilder struct {
	paragraphs [][]element
}

func newPostBuilder() *postBuilder {
	return &postBuilder{paragraphs: [][]element{{}}}
}

// AddText appends a plain text element to the current paragraph.
func (b *postBuilder) AddText(text string) *postBuilder {
	b.appendElement(element{"tag": "text", "text": text})
	return b
}

// AddBold appends a bold text element to the current paragraph.
func (b *postBuilder) AddBold(text string) *postBuilder {
	b.appendElement(element{"tag": "text", "text": text, "style": []string{"bold"}})
	return b
}

// AddItalic appends an italic text element to the current paragraph.
func (b *postBuilder) AddItalic(text string) *postBuilder {
	b.appendElement(element{"tag": "text", "text": text, "style": []string{"italic"}})
	return b
}

// AddLink appends a hyperlink element to the current paragraph.
func (b *postBuilder) AddLink(text, href string) *postBuilder {
	b.appendElement(element{"tag": "a", "text": text, "href": href})
	return b
}

// AddCodeBlock appends a fenced code block rendered as a monospace text
// element annotated with its language.
func (b *postBuilder) AddCodeBlock(code, language string) *postBuilder {
	b.appendElement(element{"tag": "code_block", "language": language, "text": code})
	return b
}

// NewLine starts a new paragraph in the post content.
func (b *postBuilder) NewLine() *postBuilder {
	b.paragraphs = append(b.paragraphs, []element{})
	return b
}

// Empty reports whether the builder holds no content at all.
func (b *postBuilder) Empty() bool {
	for _, p := range b.paragraphs {
		if len(p) > 0 {
			return false
		}
	}
	return true
}

// Build serializes the post content to Lark post message JSON under the
// zh_cn locale key, with no title field.
func (b *postBuilder) Build() string {
	post := map[string]any{
		"zh_cn": map[string]any{
			"content": b.paragraphs,
		},
	}
	data, err := json.Marshal(post)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (b *postBuilder) appendElement(elem element) {
	idx := len(b.paragraphs) - 1
	b.paragraphs[idx] = append(b.paragraphs[idx], elem)
}
