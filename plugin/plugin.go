// Package plugin discovers AI plugins and downloads their OpenAPI documents
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBodySize bounds manifest and document downloads
const maxBodySize = 10 << 20

// ErrUnexpectedStatus is returned for non-2xx responses
var ErrUnexpectedStatus = errors.New("unexpected status")

// Manifest is the ai-plugin.json document served under /.well-known/
type Manifest struct {
	SchemaVersion       string `json:"schema_version"`
	NameForHuman        string `json:"name_for_human"`
	NameForModel        string `json:"name_for_model"`
	DescriptionForHuman string `json:"description_for_human"`
	DescriptionForModel string `json:"description_for_model"`
	API                 API    `json:"api"`
	LogoURL             string `json:"logo_url,omitempty"`
	ContactEmail        string `json:"contact_email,omitempty"`
	LegalInfoURL        string `json:"legal_info_url,omitempty"`
}

// API points at the plugin's OpenAPI document
type API struct {
	Type string `json:"type"`
	URL  string `json:"url" validate:"required,url"`
}

// Fetcher performs the HTTP GETs needed to load a plugin
type Fetcher struct {
	client   *http.Client
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFetcher creates a Fetcher. A nil client uses http.DefaultClient
func NewFetcher(client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:   client,
		validate: validator.New(),
		logger:   logger,
	}
}

// FetchManifest downloads and validates the plugin manifest
func (f *Fetcher) FetchManifest(ctx context.Context, manifestURL string) (*Manifest, error) {
	data, err := f.get(ctx, manifestURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get AI plugin JSON: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode AI plugin JSON: %w", err)
	}
	if err := f.validate.Struct(&manifest); err != nil {
		return nil, fmt.Errorf("invalid AI plugin JSON: %w", err)
	}

	f.logger.Debug("plugin manifest loaded",
		zap.String("url", manifestURL),
		zap.String("name", manifest.NameForModel),
		zap.String("api_url", manifest.API.URL))
	return &manifest, nil
}

// FetchDocument downloads the raw OpenAPI document
func (f *Fetcher) FetchDocument(ctx context.Context, documentURL string) ([]byte, error) {
	data, err := f.get(ctx, documentURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get OpenAPI document: %w", err)
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response error: %w", err)
	}
	return data, nil
}
