package htmlsanitize_test

import (
	"reflect"
	"testing"

	"github.com/dalemusser/pinhub/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_Unchanged(t *testing.T) {
	in := "Tom's \"best\" pasta & sauce"
	if got := htmlsanitize.PlainText(in); got != in {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p><strong>Bold</strong> move</p>", "Bold move"},
		{"Hello<script>alert('xss')</script>", "Hello"},
		{`<a href="javascript:alert(1)">click</a>`, "click"},
		{`<img src=x onerror=alert(1)>cat`, "cat"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainText_EscapedMarkupStaysEscaped(t *testing.T) {
	got := htmlsanitize.PlainText("&lt;script&gt;")
	if got != "&lt;script&gt;" {
		t.Errorf("escaped markup must not be decoded into tags, got %q", got)
	}
}

func TestPlainTexts_DropsEmpty(t *testing.T) {
	got := htmlsanitize.PlainTexts([]string{"<b>food</b>", "<br>", "diy"})
	want := []string{"food", "diy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PlainTexts() = %v, want %v", got, want)
	}
}
