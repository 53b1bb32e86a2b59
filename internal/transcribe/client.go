// Package transcribe calls the hosted speech-to-text service that turns a
// YouTube video into a timed transcript.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/config"
	"github.com/CodePnut/script-flow-sub001/internal/domain"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

// Client talks to the transcription service's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a transcription client. The timeout covers the whole
// transcription round-trip, which can run for minutes on long videos.
func NewClient(cfg config.Transcriber, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type transcribeRequest struct {
	URL string `json:"url"`
}

type transcribeResponse struct {
	VideoID  string                     `json:"video_id"`
	Title    string                     `json:"title"`
	Channel  string                     `json:"channel"`
	Language string                     `json:"language"`
	Duration float64                    `json:"duration"`
	Segments []domain.TranscriptSegment `json:"segments"`
	Summary  string                     `json:"summary"`
}

// Transcribe submits a video URL and blocks until the transcript is ready.
func (c *Client) Transcribe(ctx context.Context, videoURL string) (*domain.Transcript, error) {
	payload, err := json.Marshal(transcribeRequest{URL: videoURL})
	if err != nil {
		return nil, fmt.Errorf("marshal transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("transcription requested", zap.String("url", videoURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUnavailable("transcription service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewOperation(
			fmt.Sprintf("transcription service returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var body transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewOperation("decode transcription response", err)
	}
	if body.VideoID == "" {
		return nil, apperrors.NewOperation("transcription response missing video id", nil)
	}

	return &domain.Transcript{
		VideoID:  body.VideoID,
		Title:    body.Title,
		Channel:  body.Channel,
		Language: body.Language,
		Duration: body.Duration,
		Segments: body.Segments,
		Summary:  body.Summary,
	}, nil
}
