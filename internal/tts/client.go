// Package tts calls the upstream Gemini speech-generation API.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voxgate/internal/errs"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Request carries one synthesis call to the provider.
type Request struct {
	Text       string
	Voice      string
	Expression float64
	Pitch      float64
	Speed      float64
}

// Synthesizer is the upstream capability the orchestrator depends on.
// Implementations return raw 16-bit 24 kHz mono PCM, errs.ErrRateLimited
// when the credential is throttled, or an opaque error otherwise.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// Factory builds a Synthesizer bound to a single credential. A client is
// constructed fresh per attempt so a rotated-away key is never reused.
type Factory func(apiKey string) Synthesizer

// Client is a Synthesizer bound to one API key.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the given key and model.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	Temperature        float64      `json:"temperature,omitempty"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// Synthesize calls the provider and returns decoded PCM bytes.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: req.Text}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			Temperature:        req.Expression,
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: req.Voice},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != 200 {
		if isRateLimited(resp.StatusCode, respBody) {
			return nil, fmt.Errorf("%w: status %d", errs.ErrRateLimited, resp.StatusCode)
		}
		return nil, fmt.Errorf("upstream error %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEncodingFailure, err)
	}

	for _, cand := range result.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrEncodingFailure, err)
			}
			return pcm, nil
		}
	}

	return nil, fmt.Errorf("%w: response carried no audio part", errs.ErrEncodingFailure)
}

// isRateLimited classifies provider throttling. The explicit 429 status is
// the normal signal; some failures surface as 500s whose body names
// resource exhaustion instead.
func isRateLimited(status int, body []byte) bool {
	if status == 429 {
		return true
	}
	msg := strings.ToLower(string(body))
	return strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource has been exhausted") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "rate limit")
}
