package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"corkboard/internal/config"
	"corkboard/internal/content"
	"corkboard/internal/media"
	"corkboard/internal/policy"
	"corkboard/internal/spamguard"
	"corkboard/internal/store"
)

const testAdminSecret = "admin-secret"

// fakeMedia keeps uploads in memory.
type fakeMedia struct {
	mu       sync.Mutex
	uploads  map[string][]byte
	deleted  []string
	fail     bool
	sequence int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{uploads: map[string][]byte{}}
}

func (f *fakeMedia) Upload(ctx context.Context, file media.Upload) (content.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return content.Attachment{}, fmt.Errorf("bucket unavailable")
	}
	body, err := io.ReadAll(file.Body)
	if err != nil {
		return content.Attachment{}, err
	}
	f.sequence++
	key := fmt.Sprintf("boards/%s/object-%d", file.Board, f.sequence)
	f.uploads[key] = body
	return content.Attachment{Filename: media.CleanFilename(file.Filename), URL: "https://media.test/" + key, Key: key}, nil
}

func (f *fakeMedia) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeMedia) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type testApp struct {
	handler http.Handler
	service *Service
	store   *store.Store
	media   *fakeMedia
}

func testConfig() config.Config {
	return config.Config{
		SessionSecret:            "test-secret",
		AdminSecret:              testAdminSecret,
		SessionTTL:               time.Hour,
		BaseURL:                  "http://forum.test",
		CORSOrigin:               "*",
		AppName:                  "Corkboard",
		PostingPolicy:            policy.ModeOpen,
		RequireEmailVerification: true,
		MaxUploadBytes:           1 << 20,
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := store.New(db)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func newTestApp(t *testing.T, mutate func(*config.Config, *Deps)) *testApp {
	t.Helper()
	cfg := testConfig()
	dataStore := newTestStore(t)
	fm := newFakeMedia()
	deps := Deps{Store: dataStore, Media: fm}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	svc := New(cfg, deps)
	return &testApp{
		handler: NewHTTPServer(svc, cfg.CORSOrigin).Handler(),
		service: svc,
		store:   dataStore,
		media:   fm,
	}
}

func withGuard(interval time.Duration, burst int) func(*config.Config, *Deps) {
	return func(cfg *config.Config, deps *Deps) {
		deps.Guard = spamguard.New(interval, burst)
	}
}

type header map[string]string

func (a *testApp) do(t *testing.T, method, path string, body io.Reader, contentType string, headers header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) get(t *testing.T, path string, headers header) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodGet, path, nil, "", headers)
}

func (a *testApp) postForm(t *testing.T, path string, values url.Values, headers header) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, path, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", headers)
}

func (a *testApp) postJSON(t *testing.T, path string, payload any, headers header) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return a.do(t, http.MethodPost, path, bytes.NewReader(body), "application/json", headers)
}

func (a *testApp) postMultipart(t *testing.T, path string, values url.Values, filename string, file []byte, headers header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, vals := range values {
		for _, v := range vals {
			_ = writer.WriteField(key, v)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(file)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return a.do(t, http.MethodPost, path, &buf, writer.FormDataContentType(), headers)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func expectForbidden(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	expectStatus(t, rr, http.StatusForbidden)
	body := decodeMap(t, rr)
	if body["code"] != "FORBIDDEN" || body["error"] != "incorrect password or no permission" {
		t.Fatalf("unexpected forbidden body %v", body)
	}
}

// createAnonymousPost posts to the free board and returns the new post id.
func (a *testApp) createAnonymousPost(t *testing.T, title, password string) int64 {
	t.Helper()
	rr := a.postForm(t, "/api/boards/free/posts", url.Values{
		"title":    {title},
		"content":  {"<p>" + title + " body</p>"},
		"author":   {"guest"},
		"password": {password},
	}, nil)
	expectStatus(t, rr, http.StatusCreated)
	return postID(t, rr)
}

func postID(t *testing.T, rr *httptest.ResponseRecorder) int64 {
	t.Helper()
	post, ok := decodeMap(t, rr)["post"].(map[string]any)
	if !ok {
		t.Fatalf("response has no post: %s", rr.Body.String())
	}
	return int64(post["id"].(float64))
}

func commentID(t *testing.T, rr *httptest.ResponseRecorder) int64 {
	t.Helper()
	comment, ok := decodeMap(t, rr)["comment"].(map[string]any)
	if !ok {
		t.Fatalf("response has no comment: %s", rr.Body.String())
	}
	return int64(comment["id"].(float64))
}

// signUpAndIn registers a verified account and returns its bearer header.
func (a *testApp) signUpAndIn(t *testing.T, username string) (header, int64) {
	t.Helper()
	rr := a.postForm(t, "/api/auth/signup", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {"password123"},
	}, nil)
	expectStatus(t, rr, http.StatusCreated)
	signup := decodeMap(t, rr)
	if token, ok := signup["devVerificationToken"].(string); ok {
		expectStatus(t, a.postForm(t, "/api/auth/verify-email", url.Values{"token": {token}}, nil), http.StatusOK)
	}

	rr = a.postForm(t, "/api/auth/signin", url.Values{"login": {username}, "password": {"password123"}}, nil)
	expectStatus(t, rr, http.StatusOK)
	body := decodeMap(t, rr)
	return header{"Authorization": "Bearer " + body["token"].(string)}, int64(body["accountId"].(float64))
}
