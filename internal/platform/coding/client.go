package coding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// SuggestClient calls the external code-suggestion service over HTTP.
type SuggestClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewSuggestClient(baseURL string, timeout time.Duration, log zerolog.Logger) *SuggestClient {
	return &SuggestClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "coding_client").Logger(),
	}
}

type suggestRequest struct {
	Text   string `json:"text"`
	System string `json:"system"`
}

type suggestResponse struct {
	Code       string  `json:"code"`
	Display    string  `json:"display"`
	Confidence float64 `json:"confidence"`
}

func (c *SuggestClient) Suggest(ctx context.Context, text, system string) (*Code, error) {
	body, err := json.Marshal(suggestRequest{Text: text, System: system})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/suggest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coding suggest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoMatch
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().Int("status", resp.StatusCode).Str("system", system).Msg("suggestion service error")
		return nil, fmt.Errorf("coding suggest: status %d: %s", resp.StatusCode, string(b))
	}

	var out suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("coding suggest: decode: %w", err)
	}
	if out.Code == "" {
		return nil, ErrNoMatch
	}
	return &Code{Code: out.Code, Display: out.Display, System: system, Confidence: out.Confidence}, nil
}
