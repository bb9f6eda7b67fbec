package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/platewatch/platewatch-backend/internal/config"
)

// UnknownPlate is returned when the vision provider cannot make out a plate
// in the image. It is a normal outcome, distinct from ErrAnalysisFailed.
const UnknownPlate = "UNKNOWN"

// ErrAnalysisFailed signals that the vision call itself failed (timeout,
// quota, malformed image). It is never coerced to UnknownPlate so the caller
// can tell "no plate visible" apart from "analysis broke".
var ErrAnalysisFailed = errors.New("plate analysis failed")

// PlateRecognizer extracts a license plate number from an image. The image
// is passed as a data URI or an https URL.
type PlateRecognizer interface {
	RecognizePlate(ctx context.Context, imageURL string) (string, error)
}

const recognizePrompt = "Identify the license plate number in this image. " +
	"Return ONLY the alphanumeric text of the license plate, no other text or explanation. " +
	"If no plate is visible, return 'UNKNOWN'."

type visionChatRequest struct {
	Model     string              `json:"model"`
	Messages  []visionChatMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type visionChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type visionContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionChatResponse struct {
	Choices []struct {
		Message struct {
			Content interface{} `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// VisionRecognizer talks to OpenAI-compatible chat-completions vision
// endpoints: GLM vision first, then OpenAI as fallback.
type VisionRecognizer struct {
	cfg    *config.Config
	client *http.Client
}

func NewVisionRecognizer(cfg *config.Config) *VisionRecognizer {
	timeout := cfg.AITimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &VisionRecognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (r *VisionRecognizer) RecognizePlate(ctx context.Context, imageURL string) (string, error) {
	var lastErr error

	if r.cfg.GLMAPIKey != "" {
		plate, err := r.recognizeWithProvider(ctx, r.cfg.GLMAPIURL, r.cfg.GLMAPIKey, r.cfg.GLMVisionModel, imageURL)
		if err == nil {
			return plate, nil
		}
		slog.Warn("GLM plate analysis failed", "error", err)
		lastErr = err
	}

	if r.cfg.OpenAIAPIKey != "" {
		plate, err := r.recognizeWithProvider(ctx, r.cfg.OpenAIAPIURL, r.cfg.OpenAIAPIKey, r.cfg.OpenAIModel, imageURL)
		if err == nil {
			return plate, nil
		}
		slog.Warn("OpenAI plate analysis failed", "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no vision provider configured")
	}
	return "", fmt.Errorf("%w: %v", ErrAnalysisFailed, lastErr)
}

func (r *VisionRecognizer) recognizeWithProvider(ctx context.Context, apiURL, apiKey, model, imageURL string) (string, error) {
	reqBody := visionChatRequest{
		Model: model,
		Messages: []visionChatMessage{
			{Role: "user", Content: []visionContentPart{
				{Type: "text", Text: recognizePrompt},
				{Type: "image_url", ImageURL: &visionImageURL{URL: imageURL}},
			}},
		},
		MaxTokens: 20,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vision API error: status %d", resp.StatusCode)
	}

	var completion visionChatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no response from vision provider")
	}

	var content string
	switch v := completion.Choices[0].Message.Content.(type) {
	case string:
		content = v
	default:
		contentBytes, err := json.Marshal(v)
		if err != nil {
			return "", errors.New("failed to extract content from vision response")
		}
		content = string(contentBytes)
	}

	plate := sanitizePlateText(content)
	if plate == "" {
		return UnknownPlate, nil
	}
	return plate, nil
}

// sanitizePlateText strips everything but alphanumerics and uppercases, so
// provider framing like quotes or stray punctuation never ends up in a plate.
func sanitizePlateText(content string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(content)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
