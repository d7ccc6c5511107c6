package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"corkboard/internal/content"
	"corkboard/internal/session"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrConflict     = errors.New("conflict")
	ErrTokenExpired = errors.New("token expired")
)

const (
	accountColumns = `id, username, email, password, email_verified, verification_token, verification_expires_at, created_at`
	postColumns    = `id, board_type, title, content, author, password, user_id, filename, media_url, media_key, ip_address, user_agent, created_at`
	commentColumns = `id, post_id, parent_id, content, author, password, user_id, ip_address, user_agent, created_at`
)

// Store is the relational store for accounts, posts, comments and sessions.
// Queries are written with ? placeholders and rebound for the driver.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	now     func() time.Time
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, dialect: dialectOf(db), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := Migrations(s.dialect)
	if err != nil {
		return err
	}
	return ApplyMigrations(ctx, s.db, migrations)
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, account content.Account) (content.Account, error) {
	account.CreatedAt = s.now()
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO users (username, email, password, email_verified, verification_token, verification_expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), account.Username, account.Email, account.PasswordHash, account.EmailVerified,
		account.VerificationToken, account.VerificationExpiresAt, account.CreatedAt).Scan(&account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return content.Account{}, ErrConflict
		}
		return content.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id int64) (content.Account, error) {
	return s.getAccount(ctx, `id = ?`, id)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (content.Account, error) {
	return s.getAccount(ctx, `LOWER(email) = LOWER(?)`, email)
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (content.Account, error) {
	return s.getAccount(ctx, `username = ?`, username)
}

func (s *Store) getAccount(ctx context.Context, where string, arg any) (content.Account, error) {
	var account content.Account
	err := s.db.GetContext(ctx, &account, s.q(`SELECT `+accountColumns+` FROM users WHERE `+where), arg)
	if err != nil {
		return content.Account{}, err
	}
	return account, nil
}

// VerifyAccountEmail consumes a verification token. It returns sql.ErrNoRows
// for an unknown token and ErrTokenExpired once the token is past its expiry.
func (s *Store) VerifyAccountEmail(ctx context.Context, tokenHash string) (content.Account, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return content.Account{}, fmt.Errorf("begin verify tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var account content.Account
	if err := tx.GetContext(ctx, &account, tx.Rebind(`SELECT `+accountColumns+` FROM users WHERE verification_token = ?`), tokenHash); err != nil {
		return content.Account{}, err
	}
	if account.VerificationExpiresAt != nil && !s.now().Before(*account.VerificationExpiresAt) {
		return content.Account{}, ErrTokenExpired
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE users SET email_verified = ?, verification_token = NULL, verification_expires_at = NULL
		WHERE id = ?
	`), true, account.ID); err != nil {
		return content.Account{}, fmt.Errorf("mark email verified: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return content.Account{}, fmt.Errorf("commit verify tx: %w", err)
	}

	account.EmailVerified = true
	account.VerificationToken = nil
	account.VerificationExpiresAt = nil
	return account, nil
}

// DeleteAccount removes an account. Content it owned stays, with its owner
// cleared, so only the admin secret can change it afterwards.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete account tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`UPDATE posts SET user_id = NULL WHERE user_id = ?`,
		`UPDATE comments SET user_id = NULL WHERE user_id = ?`,
		`DELETE FROM sessions WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
			return fmt.Errorf("detach account content: %w", err)
		}
	}
	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete account tx: %w", err)
	}
	return nil
}

// Posts

type PostFilter struct {
	// Board limits results to one board; empty lists every board.
	Board  content.Board
	Limit  int
	Offset int
}

func (s *Store) CreatePost(ctx context.Context, post content.Post) (content.Post, error) {
	if err := post.Author.Validate(); err != nil {
		return content.Post{}, err
	}
	post.CreatedAt = s.now()
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO posts (board_type, title, content, author, password, user_id, filename, media_url, media_key, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), post.Board, post.Title, post.Content, post.Author.Name, post.PasswordHash, post.AccountID,
		post.Filename, post.URL, post.Key, post.IPAddress, post.UserAgent, post.CreatedAt).Scan(&post.ID)
	if err != nil {
		return content.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (content.Post, error) {
	var post content.Post
	if err := s.db.GetContext(ctx, &post, s.q(`SELECT `+postColumns+` FROM posts WHERE id = ?`), id); err != nil {
		return content.Post{}, err
	}
	return post, nil
}

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context, filter PostFilter) ([]content.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	var args []any
	if filter.Board != "" {
		query += ` WHERE board_type = ?`
		args = append(args, filter.Board)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	posts := []content.Post{}
	if err := s.db.SelectContext(ctx, &posts, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context, board content.Board) (int, error) {
	query := `SELECT COUNT(*) FROM posts`
	var args []any
	if board != "" {
		query += ` WHERE board_type = ?`
		args = append(args, board)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, s.q(query), args...); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

// SearchPosts matches title or body case-insensitively.
func (s *Store) SearchPosts(ctx context.Context, text string, filter PostFilter) ([]content.Post, error) {
	where, args := searchWhere(text, filter.Board)
	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	posts := []content.Post{}
	if err := s.db.SelectContext(ctx, &posts, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

func (s *Store) CountSearchPosts(ctx context.Context, text string, board content.Board) (int, error) {
	where, args := searchWhere(text, board)
	var total int
	if err := s.db.GetContext(ctx, &total, s.q(`SELECT COUNT(*) FROM posts WHERE `+where), args...); err != nil {
		return 0, fmt.Errorf("count search posts: %w", err)
	}
	return total, nil
}

func searchWhere(text string, board content.Board) (string, []any) {
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	where := `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if board != "" {
		where += ` AND board_type = ?`
		args = append(args, board)
	}
	return where, args
}

// UpdatePost changes only the editable fields; authorship is never rewritten.
func (s *Store) UpdatePost(ctx context.Context, id int64, title, body string, attachment content.Attachment) error {
	result, err := s.db.ExecContext(ctx, s.q(`
		UPDATE posts SET title = ?, content = ?, filename = ?, media_url = ?, media_key = ?
		WHERE id = ?
	`), title, body, attachment.Filename, attachment.URL, attachment.Key, id)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireAffected(result)
}

// DeletePost removes the post and every comment under it.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete post tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM comments WHERE post_id = ?`), id); err != nil {
		return fmt.Errorf("delete post comments: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete post tx: %w", err)
	}
	return nil
}

// Comments

func (s *Store) CreateComment(ctx context.Context, comment content.Comment) (content.Comment, error) {
	if err := comment.Author.Validate(); err != nil {
		return content.Comment{}, err
	}
	comment.CreatedAt = s.now()
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO comments (post_id, parent_id, content, author, password, user_id, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), comment.PostID, comment.ParentID, comment.Content, comment.Author.Name, comment.PasswordHash,
		comment.AccountID, comment.IPAddress, comment.UserAgent, comment.CreatedAt).Scan(&comment.ID)
	if err != nil {
		return content.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *Store) GetComment(ctx context.Context, id int64) (content.Comment, error) {
	var comment content.Comment
	if err := s.db.GetContext(ctx, &comment, s.q(`SELECT `+commentColumns+` FROM comments WHERE id = ?`), id); err != nil {
		return content.Comment{}, err
	}
	return comment, nil
}

// ListComments returns a post's comments oldest first.
func (s *Store) ListComments(ctx context.Context, postID int64) ([]content.Comment, error) {
	comments := []content.Comment{}
	err := s.db.SelectContext(ctx, &comments, s.q(`
		SELECT `+commentColumns+` FROM comments WHERE post_id = ? ORDER BY created_at ASC, id ASC
	`), postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *Store) CountComments(ctx context.Context, postID int64) (int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, s.q(`SELECT COUNT(*) FROM comments WHERE post_id = ?`), postID); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return total, nil
}

func (s *Store) UpdateComment(ctx context.Context, id int64, body string) error {
	result, err := s.db.ExecContext(ctx, s.q(`UPDATE comments SET content = ? WHERE id = ?`), body, id)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return requireAffected(result)
}

// DeleteCommentTree removes a comment and every reply below it, however
// deep, and returns the ids that went.
func (s *Store) DeleteCommentTree(ctx context.Context, id int64) ([]int64, error) {
	const subtree = `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM comments WHERE id = ?
			UNION
			SELECT c.id FROM comments c JOIN subtree ON c.parent_id = subtree.id
		)
		SELECT id FROM subtree`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete comment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var ids []int64
	if err := tx.SelectContext(ctx, &ids, tx.Rebind(subtree), id); err != nil {
		return nil, fmt.Errorf("collect comment tree: %w", err)
	}
	if len(ids) == 0 {
		return nil, sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM comments WHERE id IN (`+subtree+`)`), id); err != nil {
		return nil, fmt.Errorf("delete comment tree: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete comment tx: %w", err)
	}
	return ids, nil
}

// Backup

type Backup struct {
	Posts    []content.Post
	Comments []content.Comment
}

// Snapshot reads every post and comment in one read-only transaction.
func (s *Store) Snapshot(ctx context.Context) (Backup, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: s.dialect == DialectPostgres})
	if err != nil {
		return Backup{}, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	backup := Backup{Posts: []content.Post{}, Comments: []content.Comment{}}
	if err := tx.SelectContext(ctx, &backup.Posts, `SELECT `+postColumns+` FROM posts ORDER BY id`); err != nil {
		return Backup{}, fmt.Errorf("snapshot posts: %w", err)
	}
	if err := tx.SelectContext(ctx, &backup.Comments, `SELECT `+commentColumns+` FROM comments ORDER BY id`); err != nil {
		return Backup{}, fmt.Errorf("snapshot comments: %w", err)
	}
	return backup, nil
}

// Sessions

var _ session.Store = (*Store)(nil)

func (s *Store) SaveSession(ctx context.Context, sessionID string, accountID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at, revoked_at = NULL
	`), sessionID, accountID, expiresAt.UTC(), s.now())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) LookupSession(ctx context.Context, sessionID string) (int64, error) {
	var row struct {
		AccountID int64      `db:"user_id"`
		ExpiresAt time.Time  `db:"expires_at"`
		RevokedAt *time.Time `db:"revoked_at"`
	}
	err := s.db.GetContext(ctx, &row, s.q(`SELECT user_id, expires_at, revoked_at FROM sessions WHERE id = ?`), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, session.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	if row.RevokedAt != nil || !s.now().Before(row.ExpiresAt) {
		return 0, session.ErrNotFound
	}
	return row.AccountID, nil
}

func (s *Store) RevokeSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE sessions SET revoked_at = ? WHERE id = ?`), s.now(), sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	if offset < 0 {
		offset = 0
	}
	return query + ` LIMIT ? OFFSET ?`, append(args, limit, offset)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
