package sources

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain text", "hello world", "hello world"},
		{"tags removed", "<p>hello <b>world</b></p>", "hello world"},
		{"entities decoded", "fish &amp; chips", "fish & chips"},
		{"whitespace collapsed", "a\n\n  b\t c", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractImageFromHTML(t *testing.T) {
	html := `<p>text</p>
<img src="https://example.com/assets/site-logo.png">
<img src="data:image/gif;base64,R0lGODlh">
<img src="/a.png">
<img src="https://example.com/photos/sunset-over-harbor.jpg">`

	got := extractImageFromHTML(html)
	if got != "https://example.com/photos/sunset-over-harbor.jpg" {
		t.Errorf("expected content photo, got %q", got)
	}

	if got := extractImageFromHTML("<p>no images here</p>"); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestInterleave(t *testing.T) {
	a := []Candidate{{Title: "a1"}, {Title: "a2"}, {Title: "a3"}}
	b := []Candidate{{Title: "b1"}}
	c := []Candidate{{Title: "c1"}, {Title: "c2"}}

	merged := Interleave([][]Candidate{a, b, c})

	expected := []string{"a1", "b1", "c1", "a2", "c2", "a3"}
	if len(merged) != len(expected) {
		t.Fatalf("expected %d candidates, got %d", len(expected), len(merged))
	}
	for i, title := range expected {
		if merged[i].Title != title {
			t.Errorf("position %d: expected %q, got %q", i, title, merged[i].Title)
		}
	}

	if got := Interleave(nil); len(got) != 0 {
		t.Errorf("expected empty merge, got %d", len(got))
	}
}
