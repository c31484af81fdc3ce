package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/skills" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("q"); got != "pdf tools" {
			t.Errorf("q = %q, want %q", got, "pdf tools")
		}
		fmt.Fprint(w, `{"skills":[{"name":"pdf-extract","version":"1.2.0","description":"Extract text from PDFs"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	skills, err := c.Search(context.Background(), "pdf tools")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(skills) != 1 || skills[0].Name != "pdf-extract" || skills[0].Version != "1.2.0" {
		t.Errorf("skills = %+v", skills)
	}
}

func TestFetch(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("# My Skill\n"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/skills/pdf-extract/files" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"files":[{"path":"SKILL.md","content_base64":"%s"}]}`, content)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	files, err := c.Fetch(context.Background(), "pdf-extract")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].Path != "SKILL.md" || string(files[0].Data) != "# My Skill\n" {
		t.Errorf("file = %q %q", files[0].Path, files[0].Data)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such skill"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Fetch(context.Background(), "missing"); err == nil {
		t.Fatal("Fetch succeeded for a missing skill")
	} else if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q does not mention the status code", err)
	}
}

func TestFetchBadBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files":[{"path":"SKILL.md","content_base64":"!!!"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Fetch(context.Background(), "broken"); err == nil {
		t.Fatal("Fetch succeeded on invalid base64 content")
	}
}
