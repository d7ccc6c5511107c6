package search

import (
	"context"
	"strings"

	"corkboard/internal/content"
	"corkboard/internal/store"
)

// PostStore is the part of the relational store used for searching.
type PostStore interface {
	SearchPosts(ctx context.Context, text string, filter store.PostFilter) ([]content.Post, error)
	CountSearchPosts(ctx context.Context, text string, board content.Board) (int, error)
	ListPosts(ctx context.Context, filter store.PostFilter) ([]content.Post, error)
}

// SQLSearch implements Searcher with a LIKE match in the relational store.
type SQLSearch struct {
	posts PostStore
}

func NewSQLSearch(posts PostStore) *SQLSearch {
	return &SQLSearch{posts: posts}
}

// Healthy always returns true. If the database is down the whole app is down.
func (s *SQLSearch) Healthy() bool {
	return true
}

func (s *SQLSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, 0, nil
	}
	posts, err := s.posts.SearchPosts(ctx, text, store.PostFilter{Board: q.Board, Limit: limitOrDefault(q.Limit), Offset: q.Offset})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.posts.CountSearchPosts(ctx, text, q.Board)
	if err != nil {
		return nil, 0, err
	}
	results := make([]Result, 0, len(posts))
	for _, post := range posts {
		results = append(results, resultFor(post))
	}
	return results, total, nil
}

// LoadAllRecords reads every post as an index record.
func (s *SQLSearch) LoadAllRecords(ctx context.Context) ([]PostRecord, error) {
	posts, err := s.posts.ListPosts(ctx, store.PostFilter{})
	if err != nil {
		return nil, err
	}
	records := make([]PostRecord, 0, len(posts))
	for _, post := range posts {
		records = append(records, RecordFor(post))
	}
	return records, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
