package richcontent

import (
	"strings"
	"testing"
)

func TestRenderPost_PlainTextFallsBackToSingleTextElement(t *testing.T) {
	out := RenderPost("just plain text")
	if !strings.Contains(out, "just plain text") {
		t.Fatalf("expected plain text to survive, got %s", out)
	}
}

func TestRenderPost_BoldAndLinkSurvive(t *testing.T) {
	out := RenderPost("**status**: [details](https://example.com/x)")
	if !strings.Contains(out, `"style":["bold"]`) {
		t.Fatalf("expected bold style marker, got %s", out)
	}
	if !strings.Contains(out, "https://example.com/x") {
		t.Fatalf("expected link destination to survive, got %s", out)
	}
	if strings.Contains(out, `"title"`) {
		t.Fatalf("expected no title field in an untitled post, got %s", out)
	}
}

func TestRenderPost_FencedCodeBlockKeepsLanguage(t *testing.T) {
	out := RenderPost("```go\nfmt.Println(1)\n```")
	if !strings.Contains(out, `"language":"go"`) {
		t.Fatalf("expected language tag to survive, got %s", out)
	}
	if !strings.Contains(out, "fmt.Println(1)") {
		t.Fatalf("expected code contents to survive, got %s", out)
	}
}

func TestPostBuilder_EmptyReportsNoContent(t *testing.T) {
	b := newPostBuilder()
	if !b.Empty() {
		t.Fatalf("expected fresh builder to be empty")
	}
	b.AddText("x")
	if b.Empty() {
		t.Fatalf("expected builder with content to be non-empty")
	}
}
