package drive_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"decaquiz-service/internal/domain"
	"decaquiz-service/internal/infra/drive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shareLink = "https://drive.google.com/file/d/abc123/view?usp=sharing"

func TestFileID(t *testing.T) {
	cases := map[string]string{
		shareLink:                                           "abc123",
		"https://drive.google.com/open?id=xyz789":           "xyz789",
		"https://drive.google.com/uc?export=download&id=q1": "q1",
		"https://example.com/file/d/abc123/view":            "",
		"https://drive.google.com/drive/folders/f":          "",
		"not a url %%":                                      "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, drive.FileID(raw), raw)
	}
}

func newServer(t *testing.T, handler http.HandlerFunc) (*drive.Fetcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return drive.NewFetcher(srv.Client(), srv.URL+"/uc", 64), srv
}

func TestFetchDownloadsFile(t *testing.T) {
	var gotQuery string
	fetcher, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("Q,A,B\n"))
	})

	file, err := fetcher.Fetch(context.Background(), "  "+shareLink+" ")
	require.NoError(t, err)
	assert.Equal(t, "Q,A,B\n", string(file.Data))
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "export=download&id=abc123", gotQuery)
	assert.True(t, strings.HasSuffix(file.URL, "/uc?export=download&id=abc123"))
}

func TestFetchRejections(t *testing.T) {
	cases := []struct {
		name    string
		link    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "empty link",
			link: "  ",
			want: domain.ErrShareLinkRequired,
		},
		{
			name: "not a drive link",
			link: "https://example.com/file.csv",
			want: domain.ErrNotShareLink,
		},
		{
			name: "access interstitial",
			link: shareLink,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte("<html>sign in</html>"))
			},
			want: domain.ErrFileNotPublic,
		},
		{
			name: "declared length too large",
			link: shareLink,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Header().Set("Content-Length", "100")
				w.Write([]byte(strings.Repeat("x", 100)))
			},
			want: domain.ErrFileTooLarge,
		},
		{
			name: "streamed body too large",
			link: shareLink,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				for i := 0; i < 10; i++ {
					w.Write([]byte(strings.Repeat("y", 10)))
					w.(http.Flusher).Flush()
				}
			},
			want: domain.ErrFileTooLarge,
		},
		{
			name: "upstream error status",
			link: shareLink,
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			},
			want: domain.ErrDownloadFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := tc.handler
			if handler == nil {
				handler = func(w http.ResponseWriter, r *http.Request) {
					t.Errorf("unexpected request to %s", r.URL)
				}
			}
			fetcher, _ := newServer(t, handler)
			_, err := fetcher.Fetch(context.Background(), tc.link)
			assert.True(t, errors.Is(err, tc.want), "got %v, want %v", err, tc.want)
		})
	}
}
