// Package youtube fetches public video metadata and parses video
// identifiers out of watch URLs.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/CodePnut/script-flow-sub001/internal/domain"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

const defaultOEmbedURL = "https://www.youtube.com/oembed"

// videoIDPattern matches the canonical 11-character YouTube video id.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidVideoID reports whether s looks like a YouTube video id.
func ValidVideoID(s string) bool {
	return videoIDPattern.MatchString(s)
}

// ExtractVideoID pulls the video id out of the common YouTube URL shapes
// (watch?v=, youtu.be/, shorts/, embed/) or accepts a bare id.
func ExtractVideoID(raw string) (string, error) {
	if ValidVideoID(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidation("invalid video URL")
	}

	var candidate string
	switch {
	case strings.HasSuffix(u.Host, "youtu.be"):
		candidate = strings.TrimPrefix(u.Path, "/")
	case strings.Contains(u.Path, "/shorts/"):
		candidate = strings.TrimPrefix(u.Path, "/shorts/")
	case strings.Contains(u.Path, "/embed/"):
		candidate = strings.TrimPrefix(u.Path, "/embed/")
	default:
		candidate = u.Query().Get("v")
	}
	candidate = strings.Trim(candidate, "/")

	if !ValidVideoID(candidate) {
		return "", apperrors.NewValidation("could not extract a video id from URL")
	}
	return candidate, nil
}

// Client fetches video metadata via the public oEmbed endpoint, which needs
// no API key.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a metadata client with a bounded request timeout.
func NewClient() *Client {
	return &Client{
		endpoint:   defaultOEmbedURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// FetchMetadata looks up title, channel, and thumbnail for a video id.
func (c *Client) FetchMetadata(ctx context.Context, videoID string) (*domain.VideoMetadata, error) {
	watchURL := "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
	reqURL := fmt.Sprintf("%s?url=%s&format=json", c.endpoint, url.QueryEscape(watchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build oembed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUnavailable("oembed request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		return nil, apperrors.NewNotFound("video not found: " + videoID)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewOperation(fmt.Sprintf("oembed returned status %d", resp.StatusCode), nil)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewOperation("decode oembed response", err)
	}

	return &domain.VideoMetadata{
		VideoID:      videoID,
		Title:        body.Title,
		Channel:      body.AuthorName,
		ThumbnailURL: body.ThumbnailURL,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
