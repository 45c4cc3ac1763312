package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoSale means the marketplace has no completed sale matching the
// transfer. The transfer was most likely a gift or an internal wallet
// move, which is not an error condition for the pipeline.
var ErrNoSale = errors.New("no matching sale")

const (
	VenueBlur    = "Blur"
	VenueOpenSea = "OpenSea"

	explorerTxURL = "https://etherscan.io/tx/"
)

// Sale is the set of facts extracted from a matched marketplace sale event.
type Sale struct {
	TokenID         string
	Price           decimal.Decimal
	Payment         Payment
	Buyer           string
	Seller          string
	TxHash          string
	ProtocolAddress string
	Timestamp       int64
}

// Venue classifies the sale by protocol address. An absent protocol
// address means the sale settled on the peer-to-peer marketplace (Blur);
// a present one means a Seaport-style aggregator (OpenSea). The outbound
// deep link depends on this, so the rule must not be loosened.
func (s *Sale) Venue() string {
	if s.ProtocolAddress == "" {
		return VenueBlur
	}
	return VenueOpenSea
}

// AssetURL is the marketplace deep link for the sold token.
func (s *Sale) AssetURL(contract string) string {
	return AssetURL(s.ProtocolAddress, contract, s.TokenID)
}

// AssetURL builds the deep link for a token, picking the venue by protocol
// address the same way Sale.Venue does.
func AssetURL(protocolAddress, contract, tokenID string) string {
	if protocolAddress == "" {
		return fmt.Sprintf("https://blur.io/asset/%s/%s", strings.ToLower(contract), tokenID)
	}
	return fmt.Sprintf("https://opensea.io/assets/ethereum/%s/%s", strings.ToLower(contract), tokenID)
}

// ExplorerURL links the settling transaction on the block explorer.
func (s *Sale) ExplorerURL() string {
	return explorerTxURL + s.TxHash
}

// PriceString renders the native price with three decimal places
// ("2.000 ETH").
func (s *Sale) PriceString() string {
	return s.Price.StringFixed(3) + " " + s.Payment.Symbol
}

// Matcher correlates a confirmed transfer with a marketplace sale record.
type Matcher interface {
	FindSale(ctx context.Context, tokenID, seller string) (*Sale, error)
}

type DefaultMatcher struct {
	client Client
	window int
}

func NewDefaultMatcher(client Client) *DefaultMatcher {
	return &DefaultMatcher{client: client, window: defaultEventsLimit}
}

// FindSale scans the most recent sale events for one whose token id equals
// tokenID, whose seller equals seller (case-insensitive), and which has
// both a buyer and a payment. When several events qualify, the one with
// the latest timestamp wins. Upstream failures and malformed payloads are
// reported as ErrNoSale; the caller drops the item instead of retrying.
func (m *DefaultMatcher) FindSale(ctx context.Context, tokenID, seller string) (*Sale, error) {
	events, err := m.client.RecentSales(ctx, m.window)
	if err != nil {
		zap.L().Warn("Sale lookup failed",
			zap.Error(err),
			zap.String("tokenId", tokenID),
		)
		return nil, ErrNoSale
	}

	var best *Event
	for i := range events {
		ev := &events[i]
		if ev.NFT.Identifier != tokenID {
			continue
		}
		if !strings.EqualFold(ev.Seller, seller) {
			continue
		}
		if ev.Buyer == "" || ev.Payment == nil {
			continue
		}
		if best == nil || ev.EventTimestamp > best.EventTimestamp {
			best = ev
		}
	}
	if best == nil {
		return nil, ErrNoSale
	}

	price, err := best.Payment.Price()
	if err != nil {
		zap.L().Warn("Sale event has an unparseable payment",
			zap.Error(err),
			zap.String("tokenId", tokenID),
			zap.String("quantity", best.Payment.Quantity),
		)
		return nil, ErrNoSale
	}

	return &Sale{
		TokenID:         best.NFT.Identifier,
		Price:           price,
		Payment:         *best.Payment,
		Buyer:           strings.ToLower(best.Buyer),
		Seller:          strings.ToLower(best.Seller),
		TxHash:          strings.ToLower(best.Transaction),
		ProtocolAddress: best.ProtocolAddress,
		Timestamp:       best.EventTimestamp,
	}, nil
}

// Price converts the fixed-point payment quantity into a decimal amount,
// honoring the token's declared precision (not assuming 18).
func (p *Payment) Price() (decimal.Decimal, error) {
	quantity, err := decimal.NewFromString(p.Quantity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid payment quantity %q: %w", p.Quantity, err)
	}
	return quantity.Shift(-p.Decimals), nil
}
