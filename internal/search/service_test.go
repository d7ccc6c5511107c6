package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"corkboard/internal/content"
	"corkboard/internal/store"
)

type fakePostStore struct {
	posts     []content.Post
	searchErr error
	lastText  string
	lastLimit int
}

func (f *fakePostStore) SearchPosts(ctx context.Context, text string, filter store.PostFilter) ([]content.Post, error) {
	f.lastText = text
	f.lastLimit = filter.Limit
	return f.match(text, filter.Board)
}

func (f *fakePostStore) CountSearchPosts(ctx context.Context, text string, board content.Board) (int, error) {
	posts, err := f.match(text, board)
	return len(posts), err
}

func (f *fakePostStore) match(text string, board content.Board) ([]content.Post, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []content.Post
	for _, p := range f.posts {
		if board != "" && p.Board != board {
			continue
		}
		if strings.Contains(strings.ToLower(p.Title+" "+p.Content), strings.ToLower(text)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostStore) ListPosts(ctx context.Context, filter store.PostFilter) ([]content.Post, error) {
	return f.posts, nil
}

func samplePosts() []content.Post {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return []content.Post{
		{ID: 1, Board: content.BoardFree, Title: "Garden notes", Content: "<p>Tomatoes <b>everywhere</b></p>", Author: content.Author{Name: "kim"}, CreatedAt: created},
		{ID: 2, Board: content.BoardShare, Title: "Tomato seeds", Content: "<p>free to a good home</p>", Author: content.Author{Name: "lee"}, CreatedAt: created},
		{ID: 3, Board: content.BoardProject, Title: "Robot arm", Content: "<p>servo wiring</p>", Author: content.Author{Name: "kim"}, CreatedAt: created},
	}
}

func TestServiceFallsBackToSQL(t *testing.T) {
	posts := &fakePostStore{posts: samplePosts()}
	svc := NewService(nil, NewSQLSearch(posts))

	resp := svc.Search(context.Background(), Query{Text: "  tomato "})
	if resp.Engine != EngineSQL || resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if posts.lastText != "tomato" || posts.lastLimit != 20 {
		t.Fatalf("expected trimmed text and default limit, got %q %d", posts.lastText, posts.lastLimit)
	}
	first := resp.Results[0]
	if first.ID != 1 || first.Snippet != "Tomatoes everywhere" || first.Author != "kim" {
		t.Fatalf("unexpected result %+v", first)
	}
}

func TestSQLSearchClampsLimitAndCountsAllMatches(t *testing.T) {
	posts := &fakePostStore{posts: samplePosts()}
	results, total, err := NewSQLSearch(posts).Search(context.Background(), Query{Text: "tomato", Limit: 500})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if posts.lastLimit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", posts.lastLimit)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("expected two matches, got %d results, total %d", len(results), total)
	}
}

func TestServiceBoardFilter(t *testing.T) {
	svc := NewService(nil, NewSQLSearch(&fakePostStore{posts: samplePosts()}))
	resp := svc.Search(context.Background(), Query{Text: "tomato", Board: content.BoardShare})
	if resp.Total != 1 || resp.Results[0].ID != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestServiceEmptyQuery(t *testing.T) {
	posts := &fakePostStore{posts: samplePosts()}
	svc := NewService(nil, NewSQLSearch(posts))
	resp := svc.Search(context.Background(), Query{Text: "   "})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Total != 0 {
		t.Fatalf("expected empty response, got %+v", resp)
	}
	if posts.lastText != "" {
		t.Fatal("store should not be queried for blank text")
	}
}

func TestServiceSwallowsStoreErrors(t *testing.T) {
	svc := NewService(nil, NewSQLSearch(&fakePostStore{searchErr: errors.New("db down")}))
	resp := svc.Search(context.Background(), Query{Text: "x"})
	if resp.Results == nil || resp.Total != 0 {
		t.Fatalf("expected empty response, got %+v", resp)
	}
}

func TestIndexingWithoutMeiliIsNoop(t *testing.T) {
	svc := NewService(nil, NewSQLSearch(&fakePostStore{}))
	svc.IndexPost(PostRecord{ID: 1})
	svc.DeletePost(1)
	svc.ReindexAll(context.Background())
}

func TestRecordFor(t *testing.T) {
	post := samplePosts()[0]
	record := RecordFor(post)
	if record.Content != "Tomatoes everywhere" || record.Board != "free" || record.CreatedAt != post.CreatedAt.Unix() {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestLoadAllRecords(t *testing.T) {
	records, err := NewSQLSearch(&fakePostStore{posts: samplePosts()}).LoadAllRecords(context.Background())
	if err != nil || len(records) != 3 || records[2].Title != "Robot arm" {
		t.Fatalf("LoadAllRecords() = %+v, %v", records, err)
	}
}
