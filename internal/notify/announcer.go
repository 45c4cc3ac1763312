package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tokenfeed/salesbot/internal/lookup"
	"github.com/tokenfeed/salesbot/internal/marketplace"
	"github.com/tokenfeed/salesbot/internal/timeutil"
	"github.com/tokenfeed/salesbot/pkg/nft"
	"go.uber.org/zap"
)

// ErrSuppressed marks an announcement that was deliberately not sent
// (blacklisted name, missing USD rate). Callers treat it as success.
var ErrSuppressed = errors.New("announcement suppressed")

const defaultFailurePause = 10 * time.Second

// Announcer enriches a matched sale (or listing, or naming event) and
// fans the resulting announcement out to every configured destination.
// Delivery is best effort: a failing destination is logged and paused on,
// the remaining destinations are still attempted.
type Announcer struct {
	rates        lookup.RateProvider
	identity     lookup.IdentityResolver
	metadata     lookup.MetadataClient
	filter       *NameFilter
	destinations []Destination
	failurePause time.Duration
}

func NewAnnouncer(
	rates lookup.RateProvider,
	identity lookup.IdentityResolver,
	metadata lookup.MetadataClient,
	filter *NameFilter,
	destinations []Destination,
) *Announcer {
	return &Announcer{
		rates:        rates,
		identity:     identity,
		metadata:     metadata,
		filter:       filter,
		destinations: destinations,
		failurePause: defaultFailurePause,
	}
}

// AnnounceSale publishes an adoption announcement for a matched sale.
// A sale is never announced without a USD price.
func (a *Announcer) AnnounceSale(ctx context.Context, contract string, sale *marketplace.Sale) error {
	usdRate, err := a.rates.UsdPerEth(ctx)
	if err != nil {
		zap.L().Warn("Skipping announcement, no USD rate",
			zap.String("tokenId", sale.TokenID),
			zap.String("txHash", sale.TxHash),
		)
		return ErrSuppressed
	}

	meta := a.metadata.TokenMetadata(ctx, sale.TokenID)
	displayName := a.displayName(meta, sale.TokenID)
	if a.filter.Blocked(displayName) {
		zap.L().Info("Announcement suppressed by name filter", zap.String("tokenId", sale.TokenID))
		return ErrSuppressed
	}

	buyer := a.identity.Resolve(ctx, sale.Buyer)
	seller := a.identity.Resolve(ctx, sale.Seller)
	usdPrice := sale.Price.Mul(usdRate)

	announcement := Announcement{
		Title: fmt.Sprintf("%s has been adopted!", displayName),
		Body: fmt.Sprintf("%s sold %s to %s for %s ($%s)",
			seller, displayName, buyer, sale.PriceString(), usdPrice.StringFixed(2)),
		ImageURL:       meta.ImageURL,
		Marketplace:    sale.Venue(),
		MarketplaceURL: sale.AssetURL(contract),
		ExplorerURL:    sale.ExplorerURL(),
		Color:          ColorSale,
	}
	a.deliverAll(ctx, announcement)
	return nil
}

// AnnounceListing publishes a "listed" announcement from the listing
// poller. Listings have no settling transaction and no venue ambiguity.
func (a *Announcer) AnnounceListing(ctx context.Context, contract, tokenID, seller string, price decimal.Decimal, symbol, assetURL string) error {
	meta := a.metadata.TokenMetadata(ctx, tokenID)
	displayName := a.displayName(meta, tokenID)
	if a.filter.Blocked(displayName) {
		zap.L().Info("Listing announcement suppressed by name filter", zap.String("tokenId", tokenID))
		return ErrSuppressed
	}

	sellerLabel := a.identity.Resolve(ctx, seller)

	body := fmt.Sprintf("%s listed %s for %s %s", sellerLabel, displayName, price.StringFixed(3), symbol)
	if usdRate, err := a.rates.UsdPerEth(ctx); err == nil {
		body += fmt.Sprintf(" ($%s)", price.Mul(usdRate).StringFixed(2))
	}

	announcement := Announcement{
		Title:          fmt.Sprintf("%s is looking for a new home!", displayName),
		Body:           body,
		ImageURL:       meta.ImageURL,
		Marketplace:    marketplace.VenueOpenSea,
		MarketplaceURL: assetURL,
		Color:          ColorListing,
	}
	a.deliverAll(ctx, announcement)
	return nil
}

// AnnounceName publishes an on-chain naming announcement. Naming is not a
// marketplace transaction, so there is no price to resolve.
func (a *Announcer) AnnounceName(ctx context.Context, ev *nft.NameEvent) error {
	if a.filter.Blocked(ev.Name) {
		zap.L().Info("Naming announcement suppressed by name filter", zap.String("tokenId", ev.TokenID))
		return ErrSuppressed
	}

	meta := a.metadata.TokenMetadata(ctx, ev.TokenID)

	announcement := Announcement{
		Title:       fmt.Sprintf("Token #%s is now called %q", ev.TokenID, ev.Name),
		Body:        fmt.Sprintf("A new name was written on chain for token #%s.", ev.TokenID),
		ImageURL:    meta.ImageURL,
		ExplorerURL: "https://etherscan.io/tx/" + ev.TxHash,
		Color:       ColorNaming,
	}
	a.deliverAll(ctx, announcement)
	return nil
}

func (a *Announcer) displayName(meta lookup.TokenMetadata, tokenID string) string {
	if meta.DisplayName != "" {
		return meta.DisplayName
	}
	return "Token #" + tokenID
}

// deliverAll attempts every destination in sequence. A failed delivery
// pauses briefly so a persistently broken endpoint does not spin hot,
// then moves on to the next destination.
func (a *Announcer) deliverAll(ctx context.Context, announcement Announcement) {
	for _, dest := range a.destinations {
		if err := dest.Deliver(ctx, announcement); err != nil {
			zap.L().Error("Announcement delivery failed",
				zap.String("destination", dest.Name()),
				zap.Error(err),
			)
			timeutil.Sleep(ctx, a.failurePause)
			continue
		}
		zap.L().Info("Announcement delivered",
			zap.String("destination", dest.Name()),
			zap.String("title", announcement.Title),
		)
	}
}

