package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"corkboard/internal/authpw"
	"corkboard/internal/content"
	"corkboard/internal/media"
	"corkboard/internal/spamguard"

	"github.com/gorilla/mux"
)

const sessionCookie = "corkboard_session"

type HTTPServer struct {
	service    *Service
	corsOrigin string
	maxUpload  int64
	secure     bool
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	maxUpload := service.cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 16 << 20
	}
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		maxUpload:  maxUpload,
		secure:     strings.HasPrefix(service.cfg.BaseURL, "https://"),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet, http.MethodHead)

	api.HandleFunc("/auth/signup", s.handleAuthSignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/signin", s.handleAuthSignIn).Methods(http.MethodPost)
	api.HandleFunc("/auth/verify-email", s.handleAuthVerifyEmail).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/auth/signout", s.handleAuthSignOut).Methods(http.MethodPost)
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)

	api.HandleFunc("/boards", s.handleBoards).Methods(http.MethodGet)
	api.HandleFunc("/boards/{board}/posts", s.handleListPosts).Methods(http.MethodGet)
	api.HandleFunc("/boards/{board}/posts", s.handleCreatePost).Methods(http.MethodPost)

	api.HandleFunc("/posts/{id:[0-9]+}", s.handleGetPost).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id:[0-9]+}/authorize", s.handleAuthorizePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id:[0-9]+}/update", s.handleUpdatePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id:[0-9]+}/delete", s.handleDeletePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id:[0-9]+}/comments", s.handleCreateComment).Methods(http.MethodPost)

	api.HandleFunc("/comments/{id:[0-9]+}/update", s.handleUpdateComment).Methods(http.MethodPost)
	api.HandleFunc("/comments/{id:[0-9]+}/delete", s.handleDeleteComment).Methods(http.MethodPost)

	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)

	api.HandleFunc("/admin/backup", s.handleAdminBackup).Methods(http.MethodGet)
	api.HandleFunc("/admin/accounts/{id:[0-9]+}", s.handleAdminDeleteAccount).Methods(http.MethodDelete)

	r.HandleFunc("/boards/{board}/feed.xml", s.handleFeed).Methods(http.MethodGet)
	r.HandleFunc("/sitemap.xml", s.handleSitemap).Methods(http.MethodGet)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	return s.withMiddleware(r)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// Auth handlers

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	result, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Username: form.Get("username"),
		Email:    form.Get("email"),
		Password: form.Get("password"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := map[string]any{
		"account": result.Account,
		"message": "Account created. You can sign in now.",
	}
	if result.RequiresEmailVerify {
		response["message"] = "Please check your email to verify your account"
	}
	// Dev bypass: include verification token in response when email not configured
	if result.DevVerificationToken != "" {
		response["devVerificationToken"] = result.DevVerificationToken
		response["message"] = "Account created. Verify your email to continue."
	}
	writeJSON(w, http.StatusCreated, response)
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	login := form.Get("login")
	if login == "" {
		login = firstNonEmpty(form.Get("username"), form.Get("email"))
	}
	session, err := s.service.SignIn(r.Context(), login, form.Get("password"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     session.Token,
		"accountId": session.AccountID,
		"username":  session.Username,
		"expiresAt": session.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleAuthVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if r.Method == http.MethodPost {
		form, ok := s.readForm(w, r)
		if !ok {
			return
		}
		defer form.Close()
		token = firstNonEmpty(form.Get("token"), token)
	}

	account, err := s.service.VerifyEmail(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"account": account,
	})
}

func (s *HTTPServer) handleAuthSignOut(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if err := s.service.SignOut(r.Context(), session); err != nil {
		writeServiceError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"authenticated": false,
		"username":      nil,
		"postingPolicy": s.service.PostingPolicy(),
	}
	session := s.optionalSession(r)
	if session == nil {
		writeJSON(w, http.StatusOK, response)
		return
	}
	account, err := s.service.Account(r.Context(), session.AccountID)
	if err != nil {
		writeJSON(w, http.StatusOK, response)
		return
	}
	response["authenticated"] = true
	response["username"] = account.Username
	response["account"] = account
	response["expiresAt"] = session.ExpiresAt.Unix()
	writeJSON(w, http.StatusOK, response)
}

// Board and post handlers

func (s *HTTPServer) handleBoards(w http.ResponseWriter, r *http.Request) {
	pages, err := s.service.RecentPosts(r.Context(), queryInt(r, "limit", 5))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"boards": pages})
}

func (s *HTTPServer) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListBoard(r.Context(), mux.Vars(r)["board"], queryInt(r, "limit", defaultPageSize), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	post, err := s.service.CreatePost(r.Context(), CreatePostInput{
		Board:      mux.Vars(r)["board"],
		Title:      form.Get("title"),
		Content:    form.Get("content"),
		AuthorName: form.Get("author"),
		Password:   form.Get("password"),
		File:       form.file,
		Session:    s.optionalSession(r),
		Provenance: provenance(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"post": post})
}

func (s *HTTPServer) handleGetPost(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.GetPost(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *HTTPServer) handleAuthorizePost(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	decision, err := s.service.AuthorizePost(r.Context(), pathID(r), s.caller(r, form))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authorized": true, "reason": decision.Reason})
}

func (s *HTTPServer) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	post, err := s.service.UpdatePost(r.Context(), pathID(r), UpdatePostInput{
		Title:      form.Get("title"),
		Content:    form.Get("content"),
		File:       form.file,
		RemoveFile: formBool(form.Get("delete_file")),
	}, s.caller(r, form))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (s *HTTPServer) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	id := pathID(r)
	if err := s.service.DeletePost(r.Context(), id, s.caller(r, form)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

// Comment handlers

func (s *HTTPServer) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	var parentID *int64
	if raw := strings.TrimSpace(form.Get("parent_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_PARENT", "parent_id must be a comment id", nil)
			return
		}
		parentID = &parsed
	}

	comment, err := s.service.CreateComment(r.Context(), pathID(r), CreateCommentInput{
		Content:    form.Get("content"),
		AuthorName: form.Get("author"),
		Password:   form.Get("password"),
		ParentID:   parentID,
		Session:    s.optionalSession(r),
		Provenance: provenance(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": comment})
}

func (s *HTTPServer) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	comment, err := s.service.UpdateComment(r.Context(), pathID(r), form.Get("content"), s.caller(r, form))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

func (s *HTTPServer) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.Close()

	deleted, err := s.service.DeleteComment(r.Context(), pathID(r), s.caller(r, form))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": deleted})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp, err := s.service.Search(r.Context(), query.Get("q"), query.Get("board"), queryInt(r, "limit", defaultPageSize), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Admin handlers

func (s *HTTPServer) handleAdminBackup(w http.ResponseWriter, r *http.Request) {
	// Backup scripts pass the secret as ?password=.
	secret := firstNonEmpty(adminSecret(r, nil), r.URL.Query().Get("password"))
	backup, err := s.service.Backup(r.Context(), secret)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filename := "backup_" + backup.BackupDate.Format("20060102_150405") + ".json"
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, backup)
}

func (s *HTTPServer) handleAdminDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := s.service.DeleteAccount(r.Context(), id, adminSecret(r, nil)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

// Feed handlers

func (s *HTTPServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.WriteBoardFeed(r.Context(), &buf, mux.Vars(r)["board"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleSitemap(w http.ResponseWriter, r *http.Request) {
	body, err := s.service.Sitemap(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Sessions and callers

func (s *HTTPServer) sessionToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// optionalSession returns nil for anonymous callers and for stale tokens.
func (s *HTTPServer) optionalSession(r *http.Request) *Session {
	token := s.sessionToken(r)
	if token == "" {
		return nil
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		return nil
	}
	return &session
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := s.sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing session token", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) caller(r *http.Request, form *requestForm) Caller {
	return Caller{
		Session:     s.optionalSession(r),
		Password:    form.Get("password"),
		AdminSecret: adminSecret(r, form),
	}
}

// adminSecret takes the X-Admin-Secret header, then the admin_secret field,
// then the password field, which forms share between owners and admins.
func adminSecret(r *http.Request, form *requestForm) string {
	if secret := r.Header.Get("X-Admin-Secret"); secret != "" {
		return secret
	}
	if form == nil {
		return ""
	}
	return firstNonEmpty(form.Get("admin_secret"), form.Get("password"))
}

func provenance(r *http.Request) content.Provenance {
	userAgent := r.UserAgent()
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	return content.Provenance{IPAddress: spamguard.ClientIP(r), UserAgent: userAgent}
}

// Form decoding. Mutations accept urlencoded forms, multipart forms with an
// optional "file" part, or a flat JSON object.

type requestForm struct {
	values url.Values
	file   *media.Upload
	closer io.Closer
}

func (f *requestForm) Get(key string) string {
	if f == nil {
		return ""
	}
	return f.values.Get(key)
}

func (f *requestForm) Close() {
	if f.closer != nil {
		_ = f.closer.Close()
	}
}

func (s *HTTPServer) readForm(w http.ResponseWriter, r *http.Request) (*requestForm, bool) {
	form, err := s.parseForm(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "Request body too large", nil)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return nil, false
	}
	return form, true
}

func (s *HTTPServer) parseForm(w http.ResponseWriter, r *http.Request) (*requestForm, error) {
	form := &requestForm{values: url.Values{}}
	if r.Body == nil {
		return form, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		for key, value := range body {
			switch v := value.(type) {
			case string:
				form.values.Set(key, v)
			case float64:
				form.values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
			case bool:
				form.values.Set(key, strconv.FormatBool(v))
			}
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			return nil, err
		}
		for key, values := range r.MultipartForm.Value {
			form.values[key] = values
		}
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return form, nil
		}
		if err != nil {
			return nil, err
		}
		form.closer = file
		if header.Filename == "" || header.Size == 0 {
			return form, nil
		}
		form.file = &media.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		form.values = r.PostForm
	}
	return form, nil
}

// Middleware and response helpers

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
		} else {
			next.ServeHTTP(writer, r)
		}

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Admin-Secret")
	header.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("app: request %s %s %s failed: %v", requestID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func formBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
