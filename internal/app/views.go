package app

import (
	"fmt"
	"time"

	"corkboard/internal/content"
	"corkboard/internal/render"
	"corkboard/internal/thread"
)

// Views are what the API serializes. Password hashes, provenance and media
// keys never leave the service.

type AuthorView struct {
	Name      string             `json:"name"`
	AccountID *int64             `json:"accountId,omitempty"`
	Mode      content.AuthorMode `json:"mode"`
}

type AttachmentView struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type PostView struct {
	ID           int64           `json:"id"`
	Board        content.Board   `json:"board"`
	BoardTitle   string          `json:"boardTitle"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Slug         string          `json:"slug"`
	URL          string          `json:"url"`
	Thumbnail    string          `json:"thumbnail,omitempty"`
	Attachment   *AttachmentView `json:"attachment,omitempty"`
	Author       AuthorView      `json:"author"`
	CommentCount *int            `json:"commentCount,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type CommentView struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"postId"`
	ParentID  *int64     `json:"parentId,omitempty"`
	Content   string     `json:"content"`
	HTML      string     `json:"html"`
	Author    AuthorView `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CommentEntryView is a top-level comment with every reply beneath it.
type CommentEntryView struct {
	CommentView
	Replies []CommentView `json:"replies"`
}

// CommentNodeView keeps the full reply nesting.
type CommentNodeView struct {
	CommentView
	Replies []CommentNodeView `json:"replies"`
}

type PostDetail struct {
	Post         PostView           `json:"post"`
	Comments     []CommentEntryView `json:"comments"`
	Thread       []CommentNodeView  `json:"thread"`
	CommentCount int                `json:"commentCount"`
}

type BoardPage struct {
	Board      content.Board `json:"board"`
	BoardTitle string        `json:"boardTitle"`
	Posts      []PostView    `json:"posts"`
	Total      int           `json:"total"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}

type AccountView struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BackupView is the admin export. Unlike the public views it carries the
// raw rows, minus credential hashes.
type BackupView struct {
	BackupDate    time.Time       `json:"backup_date"`
	DatabaseType  string          `json:"database_type"`
	PostsCount    int             `json:"posts_count"`
	CommentsCount int             `json:"comments_count"`
	Posts         []BackupPost    `json:"posts"`
	Comments      []BackupComment `json:"comments"`
}

type BackupPost struct {
	ID        int64     `json:"id"`
	Board     string    `json:"board_type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	UserID    *int64    `json:"user_id"`
	Filename  string    `json:"filename"`
	MediaURL  string    `json:"media_url"`
	MediaKey  string    `json:"media_key"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

type BackupComment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	ParentID  *int64    `json:"parent_id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	UserID    *int64    `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

func authorView(author content.Author) AuthorView {
	return AuthorView{Name: author.Name, AccountID: author.AccountID, Mode: author.Mode()}
}

func (s *Service) postURL(post content.Post) string {
	return fmt.Sprintf("%s/posts/%d/%s", s.cfg.BaseURL, post.ID, render.Slug(post.Title))
}

func (s *Service) postView(post content.Post) PostView {
	view := PostView{
		ID:         post.ID,
		Board:      post.Board,
		BoardTitle: post.Board.Title(),
		Title:      post.Title,
		Content:    post.Content,
		Slug:       render.Slug(post.Title),
		URL:        s.postURL(post),
		Thumbnail:  post.Thumbnail(),
		Author:     authorView(post.Author),
		CreatedAt:  post.CreatedAt,
	}
	if !post.Attachment.IsZero() {
		view.Attachment = &AttachmentView{Filename: post.Filename, URL: post.Attachment.URL}
	}
	return view
}

func commentView(comment content.Comment) CommentView {
	return CommentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		ParentID:  comment.ParentID,
		Content:   comment.Content,
		HTML:      render.Markdown(comment.Content),
		Author:    authorView(comment.Author),
		CreatedAt: comment.CreatedAt,
	}
}

func commentEntries(entries []thread.Entry) []CommentEntryView {
	out := make([]CommentEntryView, 0, len(entries))
	for _, entry := range entries {
		view := CommentEntryView{CommentView: commentView(entry.Comment), Replies: make([]CommentView, 0, len(entry.Replies))}
		for _, reply := range entry.Replies {
			view.Replies = append(view.Replies, commentView(reply))
		}
		out = append(out, view)
	}
	return out
}

func commentNodes(nodes []*thread.Node) []CommentNodeView {
	out := make([]CommentNodeView, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, CommentNodeView{CommentView: commentView(node.Comment), Replies: commentNodes(node.Replies)})
	}
	return out
}

func accountView(account content.Account) AccountView {
	return AccountView{
		ID:            account.ID,
		Username:      account.Username,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
	}
}
