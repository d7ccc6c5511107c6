package media

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"corkboard/internal/content"
)

func TestObjectKey(t *testing.T) {
	pattern := regexp.MustCompile(`^corkboard/free/[0-9a-f-]{36}\.png$`)
	key := ObjectKey("corkboard", content.BoardFree, "Holiday Photo.PNG")
	if !pattern.MatchString(key) {
		t.Fatalf("unexpected key %q", key)
	}
	if other := ObjectKey("corkboard", content.BoardFree, "Holiday Photo.PNG"); other == key {
		t.Fatal("expected keys to be unique per upload")
	}

	cases := map[string]*regexp.Regexp{
		"noext":           regexp.MustCompile(`^share/[0-9a-f-]{36}$`),
		"../../etc/x.p<y": regexp.MustCompile(`^share/[0-9a-f-]{36}\.py$`),
	}
	for filename, want := range cases {
		if got := ObjectKey("", content.BoardShare, filename); !want.MatchString(got) {
			t.Fatalf("ObjectKey(%q) = %q", filename, got)
		}
	}
}

func TestCleanFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":              "report.pdf",
		"/tmp/uploads/report.pdf": "report.pdf",
		`C:\Users\me\report.pdf`:  "report.pdf",
		"":                        "",
	}
	for input, want := range cases {
		if got := CleanFilename(input); got != want {
			t.Fatalf("CleanFilename(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewMinioHostRequiresConfig(t *testing.T) {
	if _, err := NewMinioHost(context.Background(), Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
