package naming

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tokenfeed/salesbot/internal/config"
	"github.com/tokenfeed/salesbot/internal/eth"
	"github.com/tokenfeed/salesbot/internal/notify"
	"github.com/tokenfeed/salesbot/pkg/nft"
)

// Service announces token naming events. Unlike sales there is nothing to
// correlate or confirm: a decoded naming event goes straight to the
// announcer, which applies the name filter before anything is sent.
type Service struct {
	watcher   eth.EventsWatcher
	announcer *notify.Announcer
	contract  string
}

func NewService(watcher eth.EventsWatcher, announcer *notify.Announcer) *Service {
	return &Service{
		watcher:   watcher,
		announcer: announcer,
		contract:  config.Get().NamingContract,
	}
}

// Run blocks on the naming subscription until ctx is cancelled or the
// watcher gives up reconnecting. With no naming contract configured the
// feature is off and Run returns immediately.
func (s *Service) Run(ctx context.Context) error {
	if s.contract == "" {
		zap.L().Info("Naming announcements disabled, no naming contract configured")
		return nil
	}

	zap.L().Info("Naming watcher started", zap.String("contract", s.contract))
	return s.watcher.WatchNames(s.contract, func(ev *nft.NameEvent) {
		s.handle(ctx, ev)
	})
}

func (s *Service) handle(ctx context.Context, ev *nft.NameEvent) {
	err := s.announcer.AnnounceName(ctx, ev)
	if err != nil && !errors.Is(err, notify.ErrSuppressed) {
		zap.L().Error("Failed to announce naming event",
			zap.Error(err),
			zap.String("tokenId", ev.TokenID),
			zap.String("name", ev.Name))
	}
}
