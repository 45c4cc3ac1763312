package eth

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tokenfeed/salesbot/internal/eth/mocks"
	"github.com/tokenfeed/salesbot/pkg/nft"
)

func testWatcher(ctx context.Context, client EthClient) *DefaultEventsWatcher {
	return &DefaultEventsWatcher{
		ctx:           ctx,
		client:        client,
		decoder:       NewDefaultLogsDecoder(),
		baseDelay:     time.Millisecond,
		maxDelay:      4 * time.Millisecond,
		maxReconnects: 3,
		probeEvery:    time.Hour,
		healthyAfter:  time.Hour,
	}
}

func transferLog(tokenID int64) types.Log {
	return types.Log{
		Address:     common.HexToAddress("0xC0FFEE"),
		BlockNumber: 1,
		TxHash:      common.HexToHash("0xABC"),
		Topics: []common.Hash{
			erc721TransferSig,
			addressToTopic(common.HexToAddress("0xAAA")),
			addressToTopic(common.HexToAddress("0xBBB")),
			uintToTopic(tokenID),
		},
	}
}

func TestWatchTransfersDeliversToSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockClient := new(mocks.EthClient)
	sub := mocks.NewSubscription()

	mockClient.On("SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ch := args.Get(2).(chan<- types.Log)
			go func() {
				ch <- transferLog(42)
				ch <- transferLog(43)
			}()
		}).
		Return(sub, nil).Once()

	var mu sync.Mutex
	var seen []string
	watcher := testWatcher(ctx, mockClient)

	done := make(chan error, 1)
	go func() {
		done <- watcher.WatchTransfers([]string{"0xC0FFEE"}, func(ev *nft.TransferEvent) {
			mu.Lock()
			seen = append(seen, ev.TokenID)
			if len(seen) == 2 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	require.NoError(t, <-done)
	mu.Lock()
	assert.Equal(t, []string{"42", "43"}, seen)
	mu.Unlock()
}

func TestWatchReconnectsAfterSubscriptionError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockClient := new(mocks.EthClient)

	failing := mocks.NewSubscription()
	failing.ErrCh <- errors.New("connection reset")

	healthy := mocks.NewSubscription()

	mockClient.On("SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything).
		Return(failing, nil).Once()
	mockClient.On("SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ch := args.Get(2).(chan<- types.Log)
			go func() { ch <- transferLog(7) }()
		}).
		Return(healthy, nil).Once()

	watcher := testWatcher(ctx, mockClient)

	done := make(chan error, 1)
	go func() {
		done <- watcher.WatchTransfers([]string{"0xC0FFEE"}, func(ev *nft.TransferEvent) {
			assert.Equal(t, "7", ev.TokenID)
			cancel()
		})
	}()

	require.NoError(t, <-done)
	mockClient.AssertExpectations(t)
}

func TestWatchGivesUpAfterMaxReconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockClient := new(mocks.EthClient)
	mockClient.On("SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("dial refused"))

	watcher := testWatcher(ctx, mockClient)
	err := watcher.WatchTransfers([]string{"0xC0FFEE"}, func(*nft.TransferEvent) {
		t.Fatal("sink must not be invoked")
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestWatchCountsDroppedSubscriptionsAgainstBudget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockClient := new(mocks.EthClient)
	drop := mocks.NewSubscription()
	mockClient.On("SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { drop.ErrCh <- errors.New("connection reset") }).
		Return(drop, nil)

	watcher := testWatcher(ctx, mockClient)

	start := time.Now()
	err := watcher.WatchTransfers([]string{"0xC0FFEE"}, func(*nft.TransferEvent) {
		t.Error("sink must not be invoked")
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	// backoff delays of 1, 2 and 4ms separated the resubscribes
	assert.GreaterOrEqual(t, time.Since(start), 7*time.Millisecond)
	mockClient.AssertNumberOfCalls(t, "SubscribeFilterLogs", 4)
}

func TestWatchProbeForcesResubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockClient := new(mocks.EthClient)

	stale := mocks.NewSubscription()
	fresh := mocks.NewSubscription()

	mockClient.On("SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything).
		Return(stale, nil).Once()
	mockClient.On("SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(fresh, nil).Once()
	mockClient.On("HeaderByNumber", mock.Anything, (*big.Int)(nil)).
		Return(nil, errors.New("node unreachable")).Once()

	watcher := testWatcher(ctx, mockClient)
	watcher.probeEvery = 5 * time.Millisecond

	err := watcher.WatchTransfers([]string{"0xC0FFEE"}, func(*nft.TransferEvent) {})
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}
