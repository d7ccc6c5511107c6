// Package content holds the forum's data model: accounts, posts and
// comments, the authorship rules applied when content is created, and the
// thumbnail derivation used when posts are listed.
package content

import (
	"errors"
	"time"
)

// Board is the category a post is filed under.
type Board string

const (
	BoardFree    Board = "free"
	BoardProject Board = "project"
	BoardShare   Board = "share"
)

var ErrUnknownBoard = errors.New("unknown board")

// Boards lists every board in display order.
func Boards() []Board {
	return []Board{BoardFree, BoardProject, BoardShare}
}

func ParseBoard(value string) (Board, error) {
	switch Board(value) {
	case BoardFree, BoardProject, BoardShare:
		return Board(value), nil
	default:
		return "", ErrUnknownBoard
	}
}

// Title is the human readable board name.
func (b Board) Title() string {
	switch b {
	case BoardFree:
		return "Free Board"
	case BoardProject:
		return "Project Board"
	case BoardShare:
		return "Share Board"
	default:
		return string(b)
	}
}

type Account struct {
	ID                    int64      `db:"id"`
	Username              string     `db:"username"`
	Email                 string     `db:"email"`
	PasswordHash          string     `db:"password"`
	EmailVerified         bool       `db:"email_verified"`
	VerificationToken     *string    `db:"verification_token"`
	VerificationExpiresAt *time.Time `db:"verification_expires_at"`
	CreatedAt             time.Time  `db:"created_at"`
}

// Attachment is a file stored on the media host. Key is the handle used to
// delete the remote object; all fields are empty when nothing is attached.
type Attachment struct {
	Filename string `db:"filename"`
	URL      string `db:"media_url"`
	Key      string `db:"media_key"`
}

func (a Attachment) IsZero() bool {
	return a.Key == "" && a.URL == ""
}

// Provenance records where a write came from. It is stored for auditing
// only and never consulted for authorization.
type Provenance struct {
	IPAddress string `db:"ip_address"`
	UserAgent string `db:"user_agent"`
}

type Post struct {
	ID      int64  `db:"id"`
	Board   Board  `db:"board_type"`
	Title   string `db:"title"`
	Content string `db:"content"`
	Author
	Attachment
	Provenance
	CreatedAt time.Time `db:"created_at"`
}

// Thumbnail returns the image shown for the post in listings.
func (p Post) Thumbnail() string {
	return Thumbnail(p.Content, p.Attachment.URL)
}

type Comment struct {
	ID       int64  `db:"id"`
	PostID   int64  `db:"post_id"`
	ParentID *int64 `db:"parent_id"`
	Content  string `db:"content"`
	Author
	Provenance
	CreatedAt time.Time `db:"created_at"`
}

// IsReply reports whether the comment answers another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != nil
}
