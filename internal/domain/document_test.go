package domain

import "testing"

func TestDocumentFromHit_ContentFieldOrder(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]Value
		want    string
	}{
		{
			name: "page_content wins over text",
			payload: map[string]Value{
				"page_content": String("primary"),
				"text":         String("secondary"),
			},
			want: "primary",
		},
		{
			name: "text wins over content",
			payload: map[string]Value{
				"text":    String("secondary"),
				"content": String("tertiary"),
			},
			want: "secondary",
		},
		{
			name:    "content as last resort",
			payload: map[string]Value{"content": String("tertiary")},
			want:    "tertiary",
		},
		{
			name:    "no content field",
			payload: map[string]Value{"topic": String("biology")},
			want:    "",
		},
		{
			name: "empty page_content falls through",
			payload: map[string]Value{
				"page_content": String(""),
				"text":         String("fallback"),
			},
			want: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := DocumentFromHit(ScoredHit{ID: "d1", Score: 0.5, Payload: tt.payload})
			if doc.Content != tt.want {
				t.Errorf("content: got %q, want %q", doc.Content, tt.want)
			}
		})
	}
}

func TestDocumentFromHit_Metadata(t *testing.T) {
	doc := DocumentFromHit(ScoredHit{
		ID:    "doc-7",
		Score: 0.83,
		Payload: map[string]Value{
			"page_content": String("some text"),
			"topic":        String("chemistry"),
		},
	})

	if doc.ID() != "doc-7" {
		t.Errorf("id: got %q", doc.ID())
	}
	if doc.Score() != 0.83 {
		t.Errorf("score: got %f", doc.Score())
	}
	if doc.Metadata["topic"].Str() != "chemistry" {
		t.Errorf("topic: got %v", doc.Metadata["topic"])
	}
	// the resolved content field must not be duplicated into metadata
	if _, ok := doc.Metadata["page_content"]; ok {
		t.Error("content field leaked into metadata")
	}
}

func TestValue_Text(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{String("hello"), "hello"},
		{Number(0.25), "0.25"},
		{Number(3), "3"},
		{Bool(true), "true"},
	}
	for _, tt := range tests {
		if got := tt.v.Text(); got != tt.want {
			t.Errorf("Text() = %q, want %q", got, tt.want)
		}
	}
}
