package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"corkboard/internal/auth"
	"corkboard/internal/authpw"
	"corkboard/internal/authz"
	"corkboard/internal/config"
	"corkboard/internal/content"
	"corkboard/internal/credential"
	"corkboard/internal/email"
	"corkboard/internal/media"
	"corkboard/internal/notify"
	"corkboard/internal/policy"
	"corkboard/internal/render"
	"corkboard/internal/search"
	"corkboard/internal/session"
	"corkboard/internal/spamguard"
	"corkboard/internal/store"
	"corkboard/internal/thread"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTitleLength  = 200
)

type Session struct {
	Token     string
	AccountID int64
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// Caller is what a mutating request presents for the ownership check.
type Caller struct {
	Session     *Session
	Password    string
	AdminSecret string
}

func (c Caller) accountID() *int64 {
	if c.Session == nil {
		return nil
	}
	id := c.Session.AccountID
	return &id
}

type CreatePostInput struct {
	Board      string
	Title      string
	Content    string
	AuthorName string
	Password   string
	File       *media.Upload
	Session    *Session
	Provenance content.Provenance
}

type UpdatePostInput struct {
	Title      string
	Content    string
	File       *media.Upload
	RemoveFile bool
}

type CreateCommentInput struct {
	Content    string
	AuthorName string
	Password   string
	ParentID   *int64
	Session    *Session
	Provenance content.Provenance
}

type SignUpResult struct {
	Account AccountView
	// DevVerificationToken is only set when mail cannot be sent.
	DevVerificationToken string
	RequiresEmailVerify  bool
}

type dataStore interface {
	Ping(context.Context) error
	GetAccountByID(context.Context, int64) (content.Account, error)
	DeleteAccount(context.Context, int64) error
	CreatePost(context.Context, content.Post) (content.Post, error)
	GetPost(context.Context, int64) (content.Post, error)
	ListPosts(context.Context, store.PostFilter) ([]content.Post, error)
	CountPosts(context.Context, content.Board) (int, error)
	UpdatePost(context.Context, int64, string, string, content.Attachment) error
	DeletePost(context.Context, int64) error
	CreateComment(context.Context, content.Comment) (content.Comment, error)
	GetComment(context.Context, int64) (content.Comment, error)
	ListComments(context.Context, int64) ([]content.Comment, error)
	CountComments(context.Context, int64) (int, error)
	UpdateComment(context.Context, int64, string) error
	DeleteCommentTree(context.Context, int64) ([]int64, error)
	Snapshot(context.Context) (store.Backup, error)
}

type mailer interface {
	IsConfigured() bool
	SendVerificationEmail(to, userName, verificationURL string) error
	SendCommentNotification(to string, data email.CommentData) error
}

// Deps are the collaborators the service is built from. Media, Search,
// Mailer, Notifier and Guard may be nil.
type Deps struct {
	Store    *store.Store
	Sessions session.Store
	Media    media.Host
	Search   *search.Service
	Mailer   *email.Service
	Notifier *notify.Notifier
	Guard    *spamguard.Guard
}

type Service struct {
	cfg      config.Config
	store    dataStore
	dialect  store.Dialect
	sessions session.Store
	accounts *authpw.Service
	hasher   credential.Hasher
	resolver *authz.Resolver
	media    media.Host
	search   *search.Service
	mailer   mailer
	notifier *notify.Notifier
	guard    *spamguard.Guard
	now      func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	hasher := credential.Hasher{}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = deps.Store
	}
	svc := &Service{
		cfg:      cfg,
		store:    deps.Store,
		dialect:  deps.Store.Dialect(),
		sessions: sessions,
		accounts: authpw.NewService(deps.Store, hasher, authpw.Options{RequireEmailVerification: cfg.RequireEmailVerification}),
		hasher:   hasher,
		resolver: authz.NewResolver(authz.Config{AdminSecret: cfg.AdminSecret}, hasher),
		search:   deps.Search,
		notifier: deps.Notifier,
		guard:    deps.Guard,
		now:      time.Now,
	}
	if deps.Media != nil {
		svc.media = deps.Media
	}
	if deps.Mailer != nil {
		svc.mailer = deps.Mailer
	}
	if svc.search == nil {
		svc.search = search.NewService(nil, search.NewSQLSearch(deps.Store))
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PostingPolicy() policy.Mode {
	return s.cfg.PostingPolicy
}

// Accounts and sessions

func (s *Service) SMTPConfigured() bool {
	return s.mailer != nil && s.mailer.IsConfigured()
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (SignUpResult, error) {
	resp, err := s.accounts.SignUp(ctx, req)
	if err != nil {
		return SignUpResult{}, err
	}
	result := SignUpResult{Account: accountView(resp.Account), RequiresEmailVerify: resp.RequiresEmailVerify}
	if !resp.RequiresEmailVerify {
		return result, nil
	}
	if !s.SMTPConfigured() {
		result.DevVerificationToken = resp.VerificationToken
		return result, nil
	}
	verifyURL := s.cfg.BaseURL + "/verify-email?token=" + resp.VerificationToken
	if err := s.mailer.SendVerificationEmail(resp.Account.Email, resp.Account.Username, verifyURL); err != nil {
		log.Printf("app: send verification email to account %d: %v", resp.Account.ID, err)
	}
	return result, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) (AccountView, error) {
	account, err := s.accounts.VerifyEmail(ctx, token)
	if err != nil {
		return AccountView{}, err
	}
	return accountView(account), nil
}

func (s *Service) SignIn(ctx context.Context, login, password string) (Session, error) {
	account, err := s.accounts.SignIn(ctx, authpw.SignInRequest{Login: login, Password: password})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, account)
}

func (s *Service) issueSession(ctx context.Context, account content.Account) (Session, error) {
	claims := auth.NewClaims(account.ID, account.Username, s.cfg.SessionTTL, s.now())
	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), claims)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.SaveSession(ctx, claims.JTI, account.ID, claims.ExpiresAt()); err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		AccountID: account.ID,
		Username:  account.Username,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

// SessionFromToken accepts a token only while its server-side record is
// live, so signing out invalidates it before it expires.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		return Session{}, err
	}
	accountID, err := s.sessions.LookupSession(ctx, claims.JTI)
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if accountID != claims.AccountID {
		return Session{}, auth.ErrInvalidToken
	}
	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		AccountID: account.ID,
		Username:  account.Username,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

func (s *Service) SignOut(ctx context.Context, sess Session) error {
	if sess.JTI == "" {
		return nil
	}
	return s.sessions.RevokeSession(ctx, sess.JTI)
}

func (s *Service) Account(ctx context.Context, id int64) (AccountView, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		return AccountView{}, err
	}
	return accountView(account), nil
}

// Boards and posts

func (s *Service) ListBoard(ctx context.Context, boardName string, limit, offset int) (BoardPage, error) {
	board, err := content.ParseBoard(boardName)
	if err != nil {
		return BoardPage{}, domainError(http.StatusNotFound, "BOARD_NOT_FOUND", "Board not found", nil)
	}
	limit = pageSize(limit)
	if offset < 0 {
		offset = 0
	}
	posts, err := s.store.ListPosts(ctx, store.PostFilter{Board: board, Limit: limit, Offset: offset})
	if err != nil {
		return BoardPage{}, err
	}
	total, err := s.store.CountPosts(ctx, board)
	if err != nil {
		return BoardPage{}, err
	}
	views, err := s.postViewsWithCounts(ctx, posts)
	if err != nil {
		return BoardPage{}, err
	}
	return BoardPage{
		Board:      board,
		BoardTitle: board.Title(),
		Posts:      views,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// RecentPosts returns the newest posts of every board for the home page.
func (s *Service) RecentPosts(ctx context.Context, perBoard int) ([]BoardPage, error) {
	pages := make([]BoardPage, 0, len(content.Boards()))
	for _, board := range content.Boards() {
		page, err := s.ListBoard(ctx, string(board), perBoard, 0)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (s *Service) postViewsWithCounts(ctx context.Context, posts []content.Post) ([]PostView, error) {
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		count, err := s.store.CountComments(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		view := s.postView(post)
		view.CommentCount = &count
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) GetPost(ctx context.Context, id int64) (PostDetail, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return PostDetail{}, err
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return PostDetail{}, err
	}
	roots := thread.Build(comments)
	visible := len(thread.Flatten(roots))
	view := s.postView(post)
	view.CommentCount = &visible
	return PostDetail{
		Post:         view,
		Comments:     commentEntries(thread.TwoTier(roots)),
		Thread:       commentNodes(roots),
		CommentCount: visible,
	}, nil
}

func (s *Service) CreatePost(ctx context.Context, input CreatePostInput) (PostView, error) {
	board, err := content.ParseBoard(input.Board)
	if err != nil {
		return PostView{}, domainError(http.StatusNotFound, "BOARD_NOT_FOUND", "Board not found", nil)
	}
	title, body, err := validatePostFields(input.Title, input.Content)
	if err != nil {
		return PostView{}, err
	}
	author, err := content.NewAuthor(s.cfg.PostingPolicy, policy.ActionPost, s.sessionAccount(input.Session), input.AuthorName, input.Password, s.hasher.Hash)
	if err != nil {
		return PostView{}, err
	}
	if !s.guard.Allow(input.Provenance.IPAddress) {
		return PostView{}, errRateLimited
	}

	post := content.Post{
		Board:      board,
		Title:      title,
		Content:    body,
		Author:     author,
		Provenance: input.Provenance,
	}
	if input.File != nil {
		input.File.Board = board
		attachment, err := s.upload(ctx, *input.File)
		if err != nil {
			return PostView{}, err
		}
		post.Attachment = attachment
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		s.discardAttachment(ctx, post.Attachment)
		return PostView{}, err
	}

	s.search.IndexPost(search.RecordFor(created))
	s.notifier.NewPost(notify.PostEvent{
		Board:  created.Board.Title(),
		Title:  created.Title,
		Author: created.Author.Name,
		URL:    s.postURL(created),
	})
	log.Printf("app: post %d created on %s (%s)", created.ID, created.Board, created.Author.Mode())
	return s.postView(created), nil
}

// AuthorizePost answers whether the caller may open the edit form.
func (s *Service) AuthorizePost(ctx context.Context, id int64, caller Caller) (authz.Decision, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return authz.Decision{}, err
	}
	decision := s.resolve(post.Author, caller)
	if !decision.Authorized {
		return decision, errForbidden
	}
	return decision, nil
}

func (s *Service) UpdatePost(ctx context.Context, id int64, input UpdatePostInput, caller Caller) (PostView, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return PostView{}, err
	}
	decision := s.resolve(post.Author, caller)
	if !decision.Authorized {
		return PostView{}, errForbidden
	}
	title, body, err := validatePostFields(input.Title, input.Content)
	if err != nil {
		return PostView{}, err
	}

	previous := post.Attachment
	attachment := previous
	if input.RemoveFile {
		attachment = content.Attachment{}
	}
	if input.File != nil {
		input.File.Board = post.Board
		attachment, err = s.upload(ctx, *input.File)
		if err != nil {
			return PostView{}, err
		}
	}

	if err := s.store.UpdatePost(ctx, id, title, body, attachment); err != nil {
		if attachment.Key != previous.Key {
			s.discardAttachment(ctx, attachment)
		}
		return PostView{}, err
	}
	if previous.Key != "" && previous.Key != attachment.Key {
		s.discardAttachment(ctx, previous)
	}

	post.Title, post.Content, post.Attachment = title, body, attachment
	s.search.IndexPost(search.RecordFor(post))
	log.Printf("app: post %d updated (%s)", id, decision.Reason)
	return s.postView(post), nil
}

// DeletePost removes the comments, then the post, then its attachment.
func (s *Service) DeletePost(ctx context.Context, id int64, caller Caller) error {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	decision := s.resolve(post.Author, caller)
	if !decision.Authorized {
		return errForbidden
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}
	s.discardAttachment(ctx, post.Attachment)
	s.search.DeletePost(id)
	log.Printf("app: post %d deleted (%s)", id, decision.Reason)
	return nil
}

// Comments

func (s *Service) CreateComment(ctx context.Context, postID int64, input CreateCommentInput) (CommentView, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return CommentView{}, err
	}
	body := strings.TrimSpace(input.Content)
	if body == "" {
		return CommentView{}, validationError("content is required")
	}
	if input.ParentID != nil {
		parent, err := s.store.GetComment(ctx, *input.ParentID)
		if err != nil || parent.PostID != postID {
			return CommentView{}, domainError(http.StatusUnprocessableEntity, "INVALID_PARENT", "parent comment does not belong to this post", nil)
		}
	}
	account := s.sessionAccount(input.Session)
	author, err := content.NewAuthor(s.cfg.PostingPolicy, policy.ActionComment, account, input.AuthorName, input.Password, s.hasher.Hash)
	if err != nil {
		return CommentView{}, err
	}
	if !s.guard.Allow(input.Provenance.IPAddress) {
		return CommentView{}, errRateLimited
	}

	created, err := s.store.CreateComment(ctx, content.Comment{
		PostID:     postID,
		ParentID:   input.ParentID,
		Content:    body,
		Author:     author,
		Provenance: input.Provenance,
	})
	if err != nil {
		return CommentView{}, err
	}
	s.notifyPostOwner(post, created)
	return commentView(created), nil
}

func (s *Service) UpdateComment(ctx context.Context, id int64, body string, caller Caller) (CommentView, error) {
	comment, err := s.store.GetComment(ctx, id)
	if err != nil {
		return CommentView{}, err
	}
	decision := s.resolve(comment.Author, caller)
	if !decision.Authorized {
		return CommentView{}, errForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return CommentView{}, validationError("content is required")
	}
	if err := s.store.UpdateComment(ctx, id, body); err != nil {
		return CommentView{}, err
	}
	comment.Content = body
	log.Printf("app: comment %d updated (%s)", id, decision.Reason)
	return commentView(comment), nil
}

// DeleteComment removes the comment and every reply below it and returns
// the removed ids.
func (s *Service) DeleteComment(ctx context.Context, id int64, caller Caller) ([]int64, error) {
	comment, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	decision := s.resolve(comment.Author, caller)
	if !decision.Authorized {
		return nil, errForbidden
	}
	deleted, err := s.store.DeleteCommentTree(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("app: comment %d deleted with %d replies (%s)", id, len(deleted)-1, decision.Reason)
	return deleted, nil
}

// Search

func (s *Service) Search(ctx context.Context, text, boardName string, limit, offset int) (search.Response, error) {
	q := search.Query{Text: text, Limit: pageSize(limit), Offset: max(offset, 0)}
	if boardName != "" {
		board, err := content.ParseBoard(boardName)
		if err != nil {
			return search.Response{}, domainError(http.StatusNotFound, "BOARD_NOT_FOUND", "Board not found", nil)
		}
		q.Board = board
	}
	return s.search.Search(ctx, q), nil
}

func (s *Service) ReindexSearch(ctx context.Context) {
	s.search.ReindexAll(ctx)
}

// Admin

func (s *Service) IsAdmin(secret string) bool {
	return s.resolver.IsAdmin(secret)
}

func (s *Service) Backup(ctx context.Context, adminSecret string) (BackupView, error) {
	if !s.IsAdmin(adminSecret) {
		return BackupView{}, errForbidden
	}
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return BackupView{}, err
	}
	backup := BackupView{
		BackupDate:    s.now().UTC(),
		DatabaseType:  string(s.dialect),
		PostsCount:    len(snapshot.Posts),
		CommentsCount: len(snapshot.Comments),
		Posts:         make([]BackupPost, 0, len(snapshot.Posts)),
		Comments:      make([]BackupComment, 0, len(snapshot.Comments)),
	}
	for _, p := range snapshot.Posts {
		backup.Posts = append(backup.Posts, BackupPost{
			ID: p.ID, Board: string(p.Board), Title: p.Title, Content: p.Content,
			Author: p.Author.Name, UserID: p.AccountID,
			Filename: p.Filename, MediaURL: p.Attachment.URL, MediaKey: p.Key,
			IPAddress: p.IPAddress, UserAgent: p.UserAgent, CreatedAt: p.CreatedAt,
		})
	}
	for _, c := range snapshot.Comments {
		backup.Comments = append(backup.Comments, BackupComment{
			ID: c.ID, PostID: c.PostID, ParentID: c.ParentID, Content: c.Content,
			Author: c.Author.Name, UserID: c.AccountID,
			IPAddress: c.IPAddress, UserAgent: c.UserAgent, CreatedAt: c.CreatedAt,
		})
	}
	log.Printf("app: backup exported %d posts, %d comments", backup.PostsCount, backup.CommentsCount)
	return backup, nil
}

// DeleteAccount removes an account. Its posts and comments stay and can
// only be changed with the admin secret from then on.
func (s *Service) DeleteAccount(ctx context.Context, id int64, adminSecret string) error {
	if !s.IsAdmin(adminSecret) {
		return errForbidden
	}
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	log.Printf("app: account %d deleted by admin", id)
	return nil
}

// helpers

func (s *Service) resolve(author content.Author, caller Caller) authz.Decision {
	return s.resolver.Resolve(author, authz.Caller{
		AccountID:   caller.accountID(),
		Password:    caller.Password,
		AdminSecret: caller.AdminSecret,
	})
}

func (s *Service) sessionAccount(sess *Session) *content.Account {
	if sess == nil {
		return nil
	}
	return &content.Account{ID: sess.AccountID, Username: sess.Username}
}

func (s *Service) upload(ctx context.Context, file media.Upload) (content.Attachment, error) {
	if s.media == nil {
		return content.Attachment{}, media.ErrNotConfigured
	}
	attachment, err := s.media.Upload(ctx, file)
	if err != nil {
		log.Printf("app: upload %q failed: %v", file.Filename, err)
		return content.Attachment{}, domainError(http.StatusBadGateway, "UPLOAD_FAILED", "Attachment upload failed", nil)
	}
	return attachment, nil
}

func (s *Service) discardAttachment(ctx context.Context, attachment content.Attachment) {
	if s.media == nil || attachment.Key == "" {
		return
	}
	if err := s.media.Delete(ctx, attachment.Key); err != nil {
		log.Printf("app: delete attachment %s: %v", attachment.Key, err)
	}
}

func (s *Service) notifyPostOwner(post content.Post, comment content.Comment) {
	ownerID := post.Author.OwnerID()
	if ownerID == 0 || comment.Author.OwnerID() == ownerID || !s.SMTPConfigured() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		owner, err := s.store.GetAccountByID(ctx, ownerID)
		if err != nil || !owner.EmailVerified {
			return
		}
		err = s.mailer.SendCommentNotification(owner.Email, email.CommentData{
			UserName:  owner.Username,
			PostTitle: post.Title,
			Commenter: comment.Author.Name,
			PostURL:   s.postURL(post),
		})
		if err != nil {
			log.Printf("app: comment notification for post %d: %v", post.ID, err)
		}
	}()
}

func validatePostFields(title, body string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", validationError("title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", "", validationError(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	body = render.SanitizeHTML(body)
	if render.PlainText(body) == "" && !strings.Contains(body, "<img") {
		return "", "", validationError("content is required")
	}
	return title, body, nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
