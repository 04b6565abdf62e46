// Package ocr wraps the external vision/OCR extraction service. Extraction of
// a scanned document can take minutes, so every call is bounded by the
// configured timeout; on timeout the caller moves the document to a failed
// terminal state instead of waiting indefinitely.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Result is the loosely structured payload the OCR service produces: a map
// from semantically named section to a nested object, list, or scalar.
type Result struct {
	RawSections map[string]interface{} `json:"raw_sections"`
	ExtractedAt time.Time              `json:"extracted_at"`
}

// Extractor is the collaborator interface the extraction service consumes.
type Extractor interface {
	Extract(ctx context.Context, fileBytes []byte, documentTypeHint string) (*Result, error)
}

// Client calls the OCR service over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "ocr_client").Logger(),
	}
}

type extractRequest struct {
	Content          string `json:"content"` // base64 file bytes
	DocumentTypeHint string `json:"document_type_hint,omitempty"`
}

type extractResponse struct {
	Sections    map[string]interface{} `json:"sections"`
	ExtractedAt *time.Time             `json:"extracted_at,omitempty"`
}

func (c *Client) Extract(ctx context.Context, fileBytes []byte, documentTypeHint string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(extractRequest{
		Content:          base64.StdEncoding.EncodeToString(fileBytes),
		DocumentTypeHint: documentTypeHint,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("ocr extract failed")
		return nil, fmt.Errorf("ocr extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ocr extract: status %d: %s", resp.StatusCode, string(b))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ocr extract: decode: %w", err)
	}
	res := &Result{RawSections: out.Sections, ExtractedAt: time.Now().UTC()}
	if out.ExtractedAt != nil {
		res.ExtractedAt = *out.ExtractedAt
	}
	c.log.Info().Dur("elapsed", time.Since(start)).Int("sections", len(res.RawSections)).Msg("ocr extract complete")
	return res, nil
}
