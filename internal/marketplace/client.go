package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	EventTypeSale    = "sale"
	EventTypeListing = "listing"

	defaultEventsLimit = 50
	requestTimeout     = 15 * time.Second
)

// Event is one entry from the marketplace events feed. Sale events carry
// buyer + payment + transaction; listing events carry maker + order hash +
// start date instead.
type Event struct {
	EventType       string   `json:"event_type"`
	OrderHash       string   `json:"order_hash"`
	ProtocolAddress string   `json:"protocol_address"`
	NFT             Item     `json:"nft"`
	Seller          string   `json:"seller"`
	Buyer           string   `json:"buyer"`
	Maker           string   `json:"maker"`
	Payment         *Payment `json:"payment"`
	Transaction     string   `json:"transaction"`
	EventTimestamp  int64    `json:"event_timestamp"`
	StartDate       int64    `json:"start_date"`
}

type Item struct {
	Identifier string `json:"identifier"`
	Contract   string `json:"contract"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
}

type Payment struct {
	Quantity     string `json:"quantity"`
	Decimals     int32  `json:"decimals"`
	Symbol       string `json:"symbol"`
	TokenAddress string `json:"token_address"`
}

type eventsResponse struct {
	AssetEvents []Event `json:"asset_events"`
}

// Client fetches collection events from the marketplace HTTP API.
type Client interface {
	RecentSales(ctx context.Context, limit int) ([]Event, error)
	ListingsSince(ctx context.Context, after time.Time, limit int) ([]Event, error)
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, apiKey, collection string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *HTTPClient) RecentSales(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	params := url.Values{}
	params.Set("event_type", EventTypeSale)
	params.Set("limit", strconv.Itoa(limit))
	return c.fetchEvents(ctx, params)
}

func (c *HTTPClient) ListingsSince(ctx context.Context, after time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	params := url.Values{}
	params.Set("event_type", EventTypeListing)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("occurred_after", strconv.FormatInt(after.Unix(), 10))
	return c.fetchEvents(ctx, params)
}

func (c *HTTPClient) fetchEvents(ctx context.Context, params url.Values) ([]Event, error) {
	endpoint := fmt.Sprintf("%s/events/collection/%s?%s", c.baseURL, url.PathEscape(c.collection), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build marketplace request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketplace request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("Marketplace API returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.String("collection", c.collection),
		)
		return nil, fmt.Errorf("marketplace API status %d", resp.StatusCode)
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode marketplace response: %w", err)
	}
	return body.AssetEvents, nil
}
