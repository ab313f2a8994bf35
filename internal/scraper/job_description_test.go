package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_PicksMostSpecificSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<nav>Home Jobs</nav>
			<div class="job-description">
				We need a   Go developer
				with Docker and PostgreSQL.
			</div>
		</body></html>`))
	}))
	defer srv.Close()

	f := NewJobDescriptionFetcher("", 5*time.Second)
	text, err := f.Fetch(context.Background(), srv.URL+"/jobs/1")
	require.NoError(t, err)
	assert.Equal(t, "We need a Go developer with Docker and PostgreSQL.", text)
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewJobDescriptionFetcher("", 5*time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetch_InvalidURL(t *testing.T) {
	f := NewJobDescriptionFetcher("", time.Second)
	_, err := f.Fetch(context.Background(), "ftp://example.com/x")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	f := &JobDescriptionFetcher{maxLength: 10}
	assert.Equal(t, "hello", f.truncate("hello world again"))
	assert.Equal(t, "short", f.truncate("short"))
}
