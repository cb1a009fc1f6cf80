package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Errors returned by the AI client.
var (
	ErrNoAPIKey    = errors.New("ai: api key is not configured")
	ErrEmptyAnswer = errors.New("ai: model returned no candidates")
	ErrNoJSON      = errors.New("ai: no JSON payload in model answer")
)

// ImagePart is a base64-encoded image attached to a prompt.
type ImagePart struct {
	MIMEType string
	Data     string
}

// Generator produces a text answer for a prompt, optionally grounded on an
// image. Implemented by *Client; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string, image *ImagePart) (string, error)
}

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates a Gemini client. An empty apiKey is allowed at
// construction; calls will fail with ErrNoAPIKey.
func NewClient(apiKey, model string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the prompt (and optional image) and returns the model's
// first text answer.
func (c *Client) Generate(ctx context.Context, prompt string, image *ImagePart) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	parts := []part{{Text: prompt}}
	if image != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: image.MIMEType,
			Data:     image.Data,
		}})
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: parts}},
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: call model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("ai: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("ai: model error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("ai: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyAnswer
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// ExtractJSON pulls the first JSON object or array out of a model answer.
// Models wrap payloads in prose or markdown fences; everything around the
// outermost brackets is discarded.
func ExtractJSON(answer string) (string, error) {
	objStart := strings.IndexByte(answer, '{')
	arrStart := strings.IndexByte(answer, '[')

	start, open, close := objStart, byte('{'), byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start, open, close = arrStart, '[', ']'
	}
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(answer); i++ {
		ch := answer[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return answer[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}
