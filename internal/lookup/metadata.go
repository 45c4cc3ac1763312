package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TokenMetadata describes one token of the watched collection. The zero
// value is a valid "nothing known" answer; announcements then fall back
// to "Token #id" with no image.
type TokenMetadata struct {
	DisplayName string `json:"name"`
	Named       bool   `json:"isNamed"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
}

// MetadataClient fetches token metadata (display name, image) by token id.
type MetadataClient interface {
	TokenMetadata(ctx context.Context, tokenID string) TokenMetadata
}

type HTTPMetadataClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPMetadataClient(baseURL string) *HTTPMetadataClient {
	return &HTTPMetadataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPMetadataClient) TokenMetadata(ctx context.Context, tokenID string) TokenMetadata {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/token/%s", c.baseURL, tokenID), nil)
	if err != nil {
		return TokenMetadata{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		zap.L().Debug("Metadata lookup failed", zap.Error(err), zap.String("tokenId", tokenID))
		return TokenMetadata{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenMetadata{}
	}

	var meta TokenMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		zap.L().Debug("Metadata response malformed", zap.Error(err), zap.String("tokenId", tokenID))
		return TokenMetadata{}
	}
	return meta
}
