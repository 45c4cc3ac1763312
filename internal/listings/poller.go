package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tokenfeed/salesbot/internal/config"
	"github.com/tokenfeed/salesbot/internal/marketplace"
	"github.com/tokenfeed/salesbot/internal/notify"
	"github.com/tokenfeed/salesbot/internal/store"
	"github.com/tokenfeed/salesbot/internal/timeutil"
)

const (
	// On the very first poll there is no high-water mark, so the poller
	// looks back one hour and announces at most a handful of listings to
	// avoid replaying a backlog into the chat after a restart.
	firstPollWindow = 1 * time.Hour
	firstPollCap    = 5
)

// Poller periodically fetches fresh listing events from the marketplace
// feed and announces them. Every order hash is processed once, and a
// seller relisting the same token inside the cooldown window stays quiet.
type Poller struct {
	client    marketplace.Client
	announcer *notify.Announcer
	cooldowns *store.CooldownStore
	contract  string
	interval  time.Duration
	pacing    time.Duration

	now      func() time.Time
	lastSeen time.Time
}

func NewPoller(
	client marketplace.Client,
	announcer *notify.Announcer,
	cooldowns *store.CooldownStore,
) *Poller {
	cfg := config.Get()
	return &Poller{
		client:    client,
		announcer: announcer,
		cooldowns: cooldowns,
		contract:  firstContract(cfg.CollectionContracts),
		interval:  time.Duration(cfg.ListingPollSeconds) * time.Second,
		pacing:    time.Duration(cfg.AnnouncePacingSeconds) * time.Second,
		now:       time.Now,
	}
}

func firstContract(contracts string) string {
	parts := strings.Split(contracts, ",")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	zap.L().Info("Listing poller started",
		zap.String("contract", p.contract),
		zap.Duration("interval", p.interval))

	for {
		p.poll(ctx)
		if !timeutil.Sleep(ctx, p.interval) {
			zap.L().Info("Listing poller stopped")
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	after := p.lastSeen
	announceBudget := -1
	if after.IsZero() {
		after = p.now().Add(-firstPollWindow)
		announceBudget = firstPollCap
	}

	events, err := p.client.ListingsSince(ctx, after, 0)
	if err != nil {
		zap.L().Warn("Listing poll failed", zap.Error(err))
		return
	}

	for i := range events {
		ev := &events[i]
		if ev.EventType != marketplace.EventTypeListing || ev.OrderHash == "" {
			continue
		}
		if ev.StartDate > p.lastSeen.Unix() {
			p.lastSeen = time.Unix(ev.StartDate, 0)
		}

		if announceBudget == 0 {
			// Over the first-poll cap: swallow the rest of the backlog
			// so it is not replayed on the next poll either.
			p.markProcessed(ev)
			continue
		}

		if p.handleListing(ctx, ev) {
			if announceBudget > 0 {
				announceBudget--
			}
			// space out consecutive announcements from one poll
			if !timeutil.Sleep(ctx, p.pacing) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// handleListing reports whether the listing was announced.
func (p *Poller) handleListing(ctx context.Context, ev *marketplace.Event) bool {
	seen, err := p.cooldowns.SeenOrder(ev.OrderHash)
	if err != nil {
		zap.L().Error("Failed to check order history", zap.Error(err))
		return false
	}
	if seen {
		return false
	}

	seller := strings.ToLower(ev.Maker)
	tokenID := ev.NFT.Identifier

	inCooldown, err := p.cooldowns.InCooldown(seller, tokenID)
	if err != nil {
		zap.L().Error("Failed to check listing cooldown", zap.Error(err))
		return false
	}
	if inCooldown {
		zap.L().Debug("Listing suppressed by cooldown",
			zap.String("seller", seller),
			zap.String("tokenId", tokenID))
		p.markProcessed(ev)
		return false
	}

	if ev.Payment == nil {
		p.markProcessed(ev)
		return false
	}
	price, err := ev.Payment.Price()
	if err != nil {
		zap.L().Warn("Listing has an unparseable payment",
			zap.Error(err),
			zap.String("orderHash", ev.OrderHash))
		p.markProcessed(ev)
		return false
	}

	assetURL := marketplace.AssetURL(ev.ProtocolAddress, p.contract, tokenID)
	err = p.announcer.AnnounceListing(ctx, p.contract, tokenID, seller, price, ev.Payment.Symbol, assetURL)
	if err != nil && !errors.Is(err, notify.ErrSuppressed) {
		zap.L().Error("Failed to announce listing", zap.Error(err), zap.String("orderHash", ev.OrderHash))
		return false
	}

	p.markProcessed(ev)
	if err == nil {
		if markErr := p.cooldowns.MarkListed(seller, tokenID); markErr != nil {
			zap.L().Error("Failed to record listing cooldown", zap.Error(markErr))
		}
		return true
	}
	return false
}

func (p *Poller) markProcessed(ev *marketplace.Event) {
	if err := p.cooldowns.MarkOrder(ev.OrderHash); err != nil {
		zap.L().Error("Failed to record processed order", zap.Error(err))
	}
}
