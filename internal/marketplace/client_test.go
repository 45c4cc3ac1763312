package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientRecentSales(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/collection/wrapped-cats", r.URL.Path)
		assert.Equal(t, EventTypeSale, r.URL.Query().Get("event_type"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"asset_events": [
				{
					"event_type": "sale",
					"nft": {"identifier": "42", "contract": "0xc0ffee"},
					"seller": "0xaaa",
					"buyer": "0xbbb",
					"payment": {"quantity": "2000000000000000000", "decimals": 18, "symbol": "ETH"},
					"transaction": "0xtx",
					"event_timestamp": 1700000000
				}
			]
		}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "wrapped-cats")
	events, err := client.RecentSales(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "42", events[0].NFT.Identifier)
	assert.Equal(t, "0xbbb", events[0].Buyer)
	require.NotNil(t, events[0].Payment)
	assert.Equal(t, int32(18), events[0].Payment.Decimals)
}

func TestHTTPClientListingsSince(t *testing.T) {
	after := time.Unix(1700000000, 0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EventTypeListing, r.URL.Query().Get("event_type"))
		assert.Equal(t, "1700000000", r.URL.Query().Get("occurred_after"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"asset_events": [{"event_type": "listing", "order_hash": "0xorder", "maker": "0xaaa"}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "wrapped-cats")
	events, err := client.ListingsSince(context.Background(), after, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "0xorder", events[0].OrderHash)
}

func TestHTTPClientErrors(t *testing.T) {
	t.Run("non-OK status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL, "", "wrapped-cats")
		_, err := client.RecentSales(context.Background(), 10)
		assert.ErrorContains(t, err, "status 502")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"asset_events": "nope"`))
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL, "", "wrapped-cats")
		_, err := client.RecentSales(context.Background(), 10)
		assert.ErrorContains(t, err, "decode")
	})
}
