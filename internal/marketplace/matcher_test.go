package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	events []Event
	err    error
	calls  int
}

func (s *stubClient) RecentSales(ctx context.Context, limit int) ([]Event, error) {
	s.calls++
	return s.events, s.err
}

func (s *stubClient) ListingsSince(ctx context.Context, after time.Time, limit int) ([]Event, error) {
	return nil, errors.New("not used in matcher tests")
}

func saleEvent(tokenID, seller, buyer, quantity string, decimals int32, ts int64) Event {
	return Event{
		EventType:      EventTypeSale,
		NFT:            Item{Identifier: tokenID, Contract: "0xc0ffee"},
		Seller:         seller,
		Buyer:          buyer,
		Payment:        &Payment{Quantity: quantity, Decimals: decimals, Symbol: "ETH"},
		Transaction:    "0xTXHASH",
		EventTimestamp: ts,
	}
}

func TestFindSale(t *testing.T) {
	ctx := context.Background()

	t.Run("matches token id and seller case-insensitively", func(t *testing.T) {
		client := &stubClient{events: []Event{
			saleEvent("41", "0xaaa", "0xbbb", "1000000000000000000", 18, 100),
			saleEvent("42", "0xAAA", "0xbbb", "1500000000000000000", 18, 100),
		}}
		matcher := NewDefaultMatcher(client)

		sale, err := matcher.FindSale(ctx, "42", "0xaaa")
		require.NoError(t, err)
		assert.Equal(t, "42", sale.TokenID)
		assert.True(t, sale.Price.Equal(decimal.RequireFromString("1.5")))
		assert.Equal(t, "0xtxhash", sale.TxHash)
	})

	t.Run("requires buyer and payment", func(t *testing.T) {
		noBuyer := saleEvent("42", "0xaaa", "", "1000000000000000000", 18, 100)
		noPayment := saleEvent("42", "0xaaa", "0xbbb", "", 18, 100)
		noPayment.Payment = nil

		client := &stubClient{events: []Event{noBuyer, noPayment}}
		matcher := NewDefaultMatcher(client)

		_, err := matcher.FindSale(ctx, "42", "0xaaa")
		assert.ErrorIs(t, err, ErrNoSale)
	})

	t.Run("latest timestamp wins on ties", func(t *testing.T) {
		client := &stubClient{events: []Event{
			saleEvent("42", "0xaaa", "0xold", "1000000000000000000", 18, 100),
			saleEvent("42", "0xaaa", "0xnew", "2000000000000000000", 18, 200),
			saleEvent("42", "0xaaa", "0xmid", "1500000000000000000", 18, 150),
		}}
		matcher := NewDefaultMatcher(client)

		sale, err := matcher.FindSale(ctx, "42", "0xaaa")
		require.NoError(t, err)
		assert.Equal(t, "0xnew", sale.Buyer)
		assert.Equal(t, int64(200), sale.Timestamp)
	})

	t.Run("API failure maps to ErrNoSale", func(t *testing.T) {
		client := &stubClient{err: errors.New("status 502")}
		matcher := NewDefaultMatcher(client)

		_, err := matcher.FindSale(ctx, "42", "0xaaa")
		assert.ErrorIs(t, err, ErrNoSale)
	})

	t.Run("unparseable payment maps to ErrNoSale", func(t *testing.T) {
		client := &stubClient{events: []Event{
			saleEvent("42", "0xaaa", "0xbbb", "not-a-number", 18, 100),
		}}
		matcher := NewDefaultMatcher(client)

		_, err := matcher.FindSale(ctx, "42", "0xaaa")
		assert.ErrorIs(t, err, ErrNoSale)
	})

	t.Run("matching is idempotent against unchanged upstream", func(t *testing.T) {
		client := &stubClient{events: []Event{
			saleEvent("42", "0xaaa", "0xbbb", "2000000000000000000", 18, 100),
		}}
		matcher := NewDefaultMatcher(client)

		first, err := matcher.FindSale(ctx, "42", "0xaaa")
		require.NoError(t, err)
		second, err := matcher.FindSale(ctx, "42", "0xaaa")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 2, client.calls)
	})
}

func TestPaymentPrice(t *testing.T) {
	t.Run("18 decimals", func(t *testing.T) {
		price, err := (&Payment{Quantity: "1500000000000000000", Decimals: 18}).Price()
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.RequireFromString("1.5")))
	})

	t.Run("honors declared decimals", func(t *testing.T) {
		price, err := (&Payment{Quantity: "2500000", Decimals: 6}).Price()
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.RequireFromString("2.5")))
	})
}

func TestVenueClassification(t *testing.T) {
	p2p := &Sale{TokenID: "42", ProtocolAddress: ""}
	assert.Equal(t, VenueBlur, p2p.Venue())
	assert.Equal(t, "https://blur.io/asset/0xc0ffee/42", p2p.AssetURL("0xC0FFEE"))

	aggregated := &Sale{TokenID: "42", ProtocolAddress: "0x0000000000000068f116a894984e2db1123eb395"}
	assert.Equal(t, VenueOpenSea, aggregated.Venue())
	assert.Equal(t, "https://opensea.io/assets/ethereum/0xc0ffee/42", aggregated.AssetURL("0xC0FFEE"))
}

func TestPriceString(t *testing.T) {
	sale := &Sale{
		Price:   decimal.RequireFromString("2"),
		Payment: Payment{Symbol: "ETH"},
	}
	assert.Equal(t, "2.000 ETH", sale.PriceString())
}
