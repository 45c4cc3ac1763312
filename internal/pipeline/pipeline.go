package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/tokenfeed/salesbot/internal/config"
	"github.com/tokenfeed/salesbot/internal/eth"
	"github.com/tokenfeed/salesbot/internal/lookup"
	"github.com/tokenfeed/salesbot/internal/marketplace"
	"github.com/tokenfeed/salesbot/internal/notify"
	"github.com/tokenfeed/salesbot/internal/store"
	"github.com/tokenfeed/salesbot/internal/timeutil"
	"github.com/tokenfeed/salesbot/pkg/nft"
)

// Pipeline is the two-stage path from a raw transfer event to an
// announced sale. Stage one waits out the settle delay and keeps only
// transfers whose transaction receipt reports success. Stage two waits out
// the marketplace indexing delay, correlates the transfer with a sale
// record, and announces it at most once.
type Pipeline struct {
	client    eth.EthClient
	matcher   marketplace.Matcher
	announcer *notify.Announcer
	rates     lookup.RateProvider
	salesDb   store.SalesDb
	sqlite    *sql.DB

	settleDelay time.Duration
	matchDelay  time.Duration
	pacing      time.Duration

	transfers *Queue[*nft.TransferEvent]
	sales     *Queue[*nft.TransferEvent]

	wg sync.WaitGroup
}

func NewPipeline(
	client eth.EthClient,
	matcher marketplace.Matcher,
	announcer *notify.Announcer,
	rates lookup.RateProvider,
	salesDb store.SalesDb,
	sqlite *sql.DB,
) *Pipeline {
	cfg := config.Get()
	return &Pipeline{
		client:      client,
		matcher:     matcher,
		announcer:   announcer,
		rates:       rates,
		salesDb:     salesDb,
		sqlite:      sqlite,
		settleDelay: time.Duration(cfg.TransferSettleDelaySeconds) * time.Second,
		matchDelay:  time.Duration(cfg.SaleMatchDelaySeconds) * time.Second,
		pacing:      time.Duration(cfg.AnnouncePacingSeconds) * time.Second,
		transfers:   NewQueue[*nft.TransferEvent](),
		sales:       NewQueue[*nft.TransferEvent](),
	}
}

// EnqueueTransfer is the sink handed to the chain watcher. Safe to call
// from any goroutine.
func (p *Pipeline) EnqueueTransfer(ev *nft.TransferEvent) {
	nft.Normalize(ev)
	p.transfers.Push(ev)
	zap.L().Debug("Transfer queued",
		zap.String("txHash", ev.TxHash),
		zap.String("tokenId", ev.TokenID))
}

// Start launches both stage workers. They exit when ctx is cancelled;
// Wait blocks until they have.
func (p *Pipeline) Start(ctx context.Context) {
	p.wg.Add(2)
	go p.runWorker(ctx, p.transfers, p.confirmTransfer)
	go p.runWorker(ctx, p.sales, p.matchAndAnnounce)
}

func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) runWorker(
	ctx context.Context,
	q *Queue[*nft.TransferEvent],
	handle func(ctx context.Context, ev *nft.TransferEvent),
) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.Wake():
			for {
				ev, ok := q.Pop()
				if !ok {
					break
				}
				p.handleItem(ctx, ev, handle)
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// handleItem isolates a panic in one item's processing so a poisoned
// event cannot take the whole drain worker down.
func (p *Pipeline) handleItem(
	ctx context.Context,
	ev *nft.TransferEvent,
	handle func(ctx context.Context, ev *nft.TransferEvent),
) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Recovered panic while processing transfer",
				zap.Any("panic", r),
				zap.String("txHash", ev.TxHash))
		}
	}()
	handle(ctx, ev)
}

// confirmTransfer is stage one: after the settle delay, the transfer is
// promoted only if its receipt exists and reports success. Everything else
// is dropped with a log, never retried.
func (p *Pipeline) confirmTransfer(ctx context.Context, ev *nft.TransferEvent) {
	if !timeutil.Sleep(ctx, p.settleDelay) {
		return
	}

	receipt, err := p.client.TransactionReceipt(ctx, common.HexToHash(ev.TxHash))
	if err != nil {
		zap.L().Warn("Dropping transfer, receipt lookup failed",
			zap.Error(err),
			zap.String("txHash", ev.TxHash))
		return
	}
	if receipt == nil || receipt.Status != types.ReceiptStatusSuccessful {
		zap.L().Info("Dropping transfer, transaction did not succeed",
			zap.String("txHash", ev.TxHash))
		return
	}

	p.sales.Push(ev)
}

// matchAndAnnounce is stage two. A transfer with no matching sale is a
// plain send and stays quiet. A matched sale is announced once, recorded,
// and followed by the pacing pause so bulk sweeps do not flood the chat.
func (p *Pipeline) matchAndAnnounce(ctx context.Context, ev *nft.TransferEvent) {
	if !timeutil.Sleep(ctx, p.matchDelay) {
		return
	}

	announced, err := p.salesDb.WasAnnounced(p.sqlite, ev.TxHash)
	if err != nil {
		zap.L().Error("Failed to check announcement history", zap.Error(err))
		return
	}
	if announced {
		zap.L().Debug("Sale already announced", zap.String("txHash", ev.TxHash))
		return
	}

	sale, err := p.matcher.FindSale(ctx, ev.TokenID, ev.From)
	if errors.Is(err, marketplace.ErrNoSale) {
		zap.L().Debug("No sale matched transfer",
			zap.String("txHash", ev.TxHash),
			zap.String("tokenId", ev.TokenID))
		return
	}
	if err != nil {
		zap.L().Error("Sale lookup failed", zap.Error(err), zap.String("txHash", ev.TxHash))
		return
	}

	if err := p.announcer.AnnounceSale(ctx, ev.Contract, sale); err != nil {
		if !errors.Is(err, notify.ErrSuppressed) {
			zap.L().Error("Failed to announce sale", zap.Error(err), zap.String("txHash", ev.TxHash))
		}
		return
	}

	p.recordAnnouncement(ctx, ev, sale)
	timeutil.Sleep(ctx, p.pacing)
}

func (p *Pipeline) recordAnnouncement(ctx context.Context, ev *nft.TransferEvent, sale *marketplace.Sale) {
	usdPrice := ""
	if rate, err := p.rates.UsdPerEth(ctx); err == nil {
		usdPrice = sale.Price.Mul(rate).StringFixed(2)
	}

	err := p.salesDb.RecordAnnouncement(ctx, p.sqlite, store.AnnouncedSale{
		TxHash:      ev.TxHash,
		TokenID:     sale.TokenID,
		Buyer:       sale.Buyer,
		Seller:      sale.Seller,
		Price:       sale.Price.StringFixed(3),
		Currency:    sale.Payment.Symbol,
		UsdPrice:    usdPrice,
		Marketplace: sale.Venue(),
		AnnouncedAt: time.Now().Unix(),
	})
	if err != nil {
		zap.L().Error("Failed to record announcement", zap.Error(err), zap.String("txHash", ev.TxHash))
	}
}
