package eth

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tokenfeed/salesbot/internal/timeutil"
	"github.com/tokenfeed/salesbot/pkg/nft"
	"go.uber.org/zap"
)

// ErrRetriesExhausted is returned when the subscription could not be
// re-established within the bounded retry budget. The process keeps
// running but stops receiving events; external monitoring has to restart
// it.
var ErrRetriesExhausted = errors.New("event subscription retries exhausted")

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 64 * time.Second
	maxReconnects      = 10
	defaultProbeEvery  = 5 * time.Minute

	// A subscription that stays up at least this long before dropping
	// refreshes the reconnect budget. Anything shorter is treated as a
	// failed attempt so a flaky transport cannot hot-loop forever.
	defaultHealthyAfter = 1 * time.Minute
)

// EventsWatcher maintains a live log subscription on the watched contracts
// and hands normalized events to a sink.
type EventsWatcher interface {
	WatchTransfers(contracts []string, sink func(*nft.TransferEvent)) error
	WatchNames(contract string, sink func(*nft.NameEvent)) error
}

type DefaultEventsWatcher struct {
	ctx           context.Context
	client        EthClient
	decoder       LogsDecoder
	baseDelay     time.Duration
	maxDelay      time.Duration
	maxReconnects int
	probeEvery    time.Duration
	healthyAfter  time.Duration
}

func NewEventsWatcher(ctx context.Context) (*DefaultEventsWatcher, error) {
	client, err := CreateEthClient()
	if err != nil {
		return nil, err
	}
	return &DefaultEventsWatcher{
		ctx:           ctx,
		client:        client,
		decoder:       NewDefaultLogsDecoder(),
		baseDelay:     reconnectBaseDelay,
		maxDelay:      reconnectMaxDelay,
		maxReconnects: maxReconnects,
		probeEvery:    defaultProbeEvery,
		healthyAfter:  defaultHealthyAfter,
	}, nil
}

func (w *DefaultEventsWatcher) WatchTransfers(contracts []string, sink func(*nft.TransferEvent)) error {
	addrs := make([]common.Address, len(contracts))
	for i, c := range contracts {
		addrs[i] = common.HexToAddress(c)
	}
	query := ethereum.FilterQuery{
		Addresses: addrs,
		Topics:    [][]common.Hash{{erc721TransferSig}},
	}

	zap.L().Info("Starting watch on contract transfers", zap.Strings("contracts", contracts))

	return w.watch(query, func(lg types.Log) {
		ev, ok := w.decoder.DecodeTransfer(lg)
		if !ok {
			return
		}
		sink(ev)
	})
}

func (w *DefaultEventsWatcher) WatchNames(contract string, sink func(*nft.NameEvent)) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(contract)},
		Topics:    [][]common.Hash{{tokenNamedSig}},
	}

	zap.L().Info("Starting watch on naming events", zap.String("contract", contract))

	return w.watch(query, func(lg types.Log) {
		ev, ok := w.decoder.DecodeName(lg)
		if !ok {
			return
		}
		sink(ev)
	})
}

// watch runs the subscribe/deliver/reconnect loop. Reconnects are retried
// with exponential backoff and jitter up to maxReconnects consecutive
// failures. A failed subscribe and a subscription that drops before
// healthyAfter both count against the budget. A periodic header probe
// guards against connections that stay open but silently stop delivering.
func (w *DefaultEventsWatcher) watch(query ethereum.FilterQuery, handle func(types.Log)) error {
	attempts := 0
	for {
		if w.ctx.Err() != nil {
			return nil
		}

		if attempts > 0 {
			if attempts > w.maxReconnects {
				zap.L().Error("Giving up on event subscription", zap.Int("attempts", attempts-1))
				return ErrRetriesExhausted
			}
			delay := backoffDelay(w.baseDelay, w.maxDelay, attempts)
			zap.L().Warn("Reconnecting to event subscription",
				zap.Int("attempt", attempts),
				zap.Duration("delay", delay),
			)
			if !timeutil.Sleep(w.ctx, delay) {
				return nil
			}
		}

		logsCh := make(chan types.Log, 64)
		sub, err := w.client.SubscribeFilterLogs(w.ctx, query, logsCh)
		if err != nil {
			attempts++
			zap.L().Warn("Subscribe failed", zap.Error(err), zap.Int("attempt", attempts))
			continue
		}

		subscribedAt := time.Now()
		if err := w.deliver(sub, logsCh, handle); err != nil {
			if time.Since(subscribedAt) >= w.healthyAfter {
				attempts = 0
			}
			attempts++
			zap.L().Warn("Event subscription dropped", zap.Error(err), zap.Int("attempt", attempts))
			continue
		}
		return nil
	}
}

var errStaleSubscription = errors.New("subscription liveness probe failed")

func (w *DefaultEventsWatcher) deliver(
	sub ethereum.Subscription,
	logsCh <-chan types.Log,
	handle func(types.Log),
) error {
	defer sub.Unsubscribe()

	probe := time.NewTicker(w.probeEvery)
	defer probe.Stop()

	for {
		select {
		case err := <-sub.Err():
			if err == nil {
				return errors.New("subscription closed")
			}
			return err

		case lg := <-logsCh:
			if lg.Removed {
				continue
			}
			handle(lg)

		case <-probe.C:
			if _, err := w.client.HeaderByNumber(w.ctx, nil); err != nil {
				zap.L().Warn("Liveness probe failed, forcing resubscribe", zap.Error(err))
				return errStaleSubscription
			}

		case <-w.ctx.Done():
			return nil
		}
	}
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt-1)
	if delay > max || delay <= 0 {
		delay = max
	}
	// up to 25% jitter so restarting instances don't reconnect in lockstep
	if q := int64(delay) / 4; q > 0 {
		delay += time.Duration(rand.Int63n(q))
	}
	return delay
}
