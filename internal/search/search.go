package search

import (
	"context"
	"time"

	"corkboard/internal/content"
	"corkboard/internal/render"
)

const snippetLength = 160

// Result is a single search hit returned to the caller.
type Result struct {
	ID        int64         `json:"id"`
	Board     content.Board `json:"board"`
	Title     string        `json:"title"`
	Snippet   string        `json:"snippet"`
	Author    string        `json:"author"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Board  content.Board // empty = every board
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// Searcher can execute a post search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

var (
	_ Searcher = (*Meili)(nil)
	_ Searcher = (*SQLSearch)(nil)
)

// PostRecord is the data we index for a post. Content is plain text.
type PostRecord struct {
	ID        int64  `json:"id"`
	Board     string `json:"board"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"`
}

// RecordFor builds the index record of a post.
func RecordFor(post content.Post) PostRecord {
	return PostRecord{
		ID:        post.ID,
		Board:     string(post.Board),
		Title:     post.Title,
		Content:   render.PlainText(post.Content),
		Author:    post.Author.Name,
		CreatedAt: post.CreatedAt.Unix(),
	}
}

func resultFor(post content.Post) Result {
	return Result{
		ID:        post.ID,
		Board:     post.Board,
		Title:     post.Title,
		Snippet:   render.Snippet(post.Content, snippetLength),
		Author:    post.Author.Name,
		CreatedAt: post.CreatedAt,
	}
}
