package search

import (
	"encoding/json"
	"testing"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

func TestHitToResultPrefersHighlights(t *testing.T) {
	hit := meili.Hit{
		"id":         json.RawMessage(`42`),
		"board":      json.RawMessage(`"project"`),
		"title":      json.RawMessage(`"Robot arm"`),
		"content":    json.RawMessage(`"servo wiring"`),
		"author":     json.RawMessage(`"kim"`),
		"createdAt":  json.RawMessage(`1714554000`),
		"_formatted": json.RawMessage(`{"id":"42","title":"<mark>Robot</mark> arm","content":"","author":"kim"}`),
	}
	r := hitToResult(hit)
	if r.ID != 42 || r.Board != "project" || r.Author != "kim" {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.Title != "<mark>Robot</mark> arm" {
		t.Fatalf("expected highlighted title, got %q", r.Title)
	}
	if r.Snippet != "servo wiring" {
		t.Fatalf("expected raw content when highlight is blank, got %q", r.Snippet)
	}
	if !r.CreatedAt.Equal(time.Unix(1714554000, 0)) {
		t.Fatalf("unexpected created at %v", r.CreatedAt)
	}
}

func TestDecodeIntAcceptsStrings(t *testing.T) {
	hit := meili.Hit{"id": json.RawMessage(`"17"`)}
	if got := decodeInt(hit, "id"); got != 17 {
		t.Fatalf("decodeInt() = %d", got)
	}
	if got := decodeInt(hit, "missing"); got != 0 {
		t.Fatalf("decodeInt(missing) = %d", got)
	}
}
