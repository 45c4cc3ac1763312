package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tokenfeed/salesbot/pkg/nft"
	"go.uber.org/zap"
)

// IdentityResolver turns an address into a human label (an ENS-style
// name). Resolution always succeeds from the caller's point of view: any
// failure falls back to the truncated address.
type IdentityResolver interface {
	Resolve(ctx context.Context, address string) string
}

type HTTPIdentityResolver struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPIdentityResolver(baseURL string) *HTTPIdentityResolver {
	return &HTTPIdentityResolver{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *HTTPIdentityResolver) Resolve(ctx context.Context, address string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/resolve/%s", r.baseURL, address), nil)
	if err != nil {
		return nft.ShortAddress(address)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		zap.L().Debug("Identity lookup failed", zap.Error(err), zap.String("address", address))
		return nft.ShortAddress(address)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nft.ShortAddress(address)
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Name == "" {
		return nft.ShortAddress(address)
	}
	return body.Name
}
