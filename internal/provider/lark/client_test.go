package lark

import (
	"strings"
	"testing"
)

func TestRenderOutboundContent_PlainTextStaysText(t *testing.T) {
	msgType, content := renderOutboundContent("task complete")
	if msgType != "text" {
		t.Fatalf("got msgType %q", msgType)
	}
	if !strings.Contains(content, "task complete") {
		t.Fatalf("got content %q", content)
	}
}

func TestRenderOutboundContent_MarkdownRendersAsPost(t *testing.T) {
	msgType, content := renderOutboundContent("**bold** summary")
	if msgType != "post" {
		t.Fatalf("got msgType %q", msgType)
	}
	if !strings.Contains(content, `"style":["bold"]`) {
		t.Fatalf("expected bold style survived, got %q", content)
	}
}
