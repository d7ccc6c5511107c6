package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"corkboard/internal/content"
	"corkboard/internal/render"
	"corkboard/internal/store"

	"github.com/gorilla/feeds"
	"github.com/sourcegraph/sitemap"
)

const (
	feedSize    = 20
	sitemapSize = 1000
)

// WriteBoardFeed writes the newest posts of a board as RSS.
func (s *Service) WriteBoardFeed(ctx context.Context, w io.Writer, boardName string) error {
	board, err := content.ParseBoard(boardName)
	if err != nil {
		return domainError(http.StatusNotFound, "BOARD_NOT_FOUND", "Board not found", nil)
	}
	posts, err := s.store.ListPosts(ctx, store.PostFilter{Board: board, Limit: feedSize})
	if err != nil {
		return err
	}

	feed := &feeds.Feed{
		Title:       s.cfg.AppName + " - " + board.Title(),
		Link:        &feeds.Link{Href: s.cfg.BaseURL + "/boards/" + string(board)},
		Description: "Newest posts on the " + board.Title(),
		Created:     s.now(),
	}
	for _, post := range posts {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          s.postURL(post),
			Title:       post.Title,
			Link:        &feeds.Link{Href: s.postURL(post)},
			Author:      &feeds.Author{Name: post.Author.Name},
			Description: render.Snippet(post.Content, 300),
			Created:     post.CreatedAt,
		})
	}
	return feed.WriteRss(w)
}

// Sitemap lists board pages and the newest posts.
func (s *Service) Sitemap(ctx context.Context) ([]byte, error) {
	posts, err := s.store.ListPosts(ctx, store.PostFilter{Limit: sitemapSize})
	if err != nil {
		return nil, err
	}
	var urlSet sitemap.URLSet
	for _, board := range content.Boards() {
		urlSet.URLs = append(urlSet.URLs, sitemap.URL{
			Loc:        s.cfg.BaseURL + "/boards/" + string(board),
			ChangeFreq: sitemap.Hourly,
			Priority:   0.8,
		})
	}
	for _, post := range posts {
		created := post.CreatedAt.In(time.UTC)
		urlSet.URLs = append(urlSet.URLs, sitemap.URL{
			Loc:        s.postURL(post),
			LastMod:    &created,
			ChangeFreq: sitemap.Daily,
			Priority:   0.6,
		})
	}
	return sitemap.Marshal(&urlSet)
}
