package dictionary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider talks to a LibreTranslate-compatible /translate endpoint.
type HTTPProvider struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewHTTPProvider returns a provider with its own client and timeout.
func NewHTTPProvider(endpoint, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func (p *HTTPProvider) Translate(ctx context.Context, word, sourceLang, targetLang string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      word,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: p.APIKey,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vocabloom")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate %q: %w", word, err)
	}
	defer resp.Body.Close()

	var out translateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decode translation: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("translate %q: %s: %s", word, resp.Status, out.Error)
		}
		return "", fmt.Errorf("translate %q: %s", word, resp.Status)
	}
	return out.TranslatedText, nil
}
