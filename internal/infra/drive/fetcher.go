package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"decaquiz-service/internal/domain"
)

// DefaultDownloadURL is Drive's direct download endpoint.
const DefaultDownloadURL = "https://drive.google.com/uc"

var filePathPattern = regexp.MustCompile(`/file/d/([^/]+)`)

// File is a downloaded share link.
type File struct {
	Data        []byte
	ContentType string
	URL         string
}

// Fetcher downloads publicly shared Drive files with a size ceiling.
type Fetcher struct {
	client      *http.Client
	downloadURL string
	maxBytes    int64
}

func NewFetcher(client *http.Client, downloadURL string, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if downloadURL == "" {
		downloadURL = DefaultDownloadURL
	}
	return &Fetcher{client: client, downloadURL: downloadURL, maxBytes: maxBytes}
}

// FileID extracts the file id from a drive.google.com share link, or "".
func FileID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(u.Hostname(), "drive.google.com") {
		return ""
	}
	if m := filePathPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return u.Query().Get("id")
}

// DownloadURL maps a share link to the direct download URL for its file.
func (f *Fetcher) DownloadURL(shareURL string) (string, bool) {
	id := FileID(shareURL)
	if id == "" {
		return "", false
	}
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", id)
	return f.downloadURL + "?" + q.Encode(), true
}

// Fetch downloads the file behind a share link. HTML responses mean Drive served
// its access interstitial instead of the file.
func (f *Fetcher) Fetch(ctx context.Context, shareURL string) (File, error) {
	shareURL = strings.TrimSpace(shareURL)
	if shareURL == "" {
		return File{}, domain.ErrShareLinkRequired
	}
	downloadURL, ok := f.DownloadURL(shareURL)
	if !ok {
		return File{}, domain.ErrNotShareLink
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return File{}, domain.ErrDownloadFailed.Wrap(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return File{}, domain.ErrDownloadFailed.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return File{}, domain.ErrDownloadFailed.Wrap(fmt.Errorf("status %d", resp.StatusCode))
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return File{}, domain.ErrFileNotPublic
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return File{}, domain.ErrFileTooLarge
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return File{}, domain.ErrDownloadFailed.Wrap(err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return File{}, domain.ErrFileTooLarge
	}
	return File{Data: data, ContentType: contentType, URL: downloadURL}, nil
}
