package trace

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

var (
	ownerX = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	ownerY = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	ownerZ = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type fakeClient struct {
	lot     *model.Lot
	lotErr  error
	regs    []model.RegistrationEvent
	regErr  error
	xfers   []model.TransferEvent
	xferErr error
}

func (f *fakeClient) GetLot(ctx context.Context, lotID common.Hash) (*model.Lot, error) {
	return f.lot, f.lotErr
}

func (f *fakeClient) RegistrationEvents(ctx context.Context, lotID common.Hash) ([]model.RegistrationEvent, error) {
	return f.regs, f.regErr
}

func (f *fakeClient) TransferEvents(ctx context.Context, lotID common.Hash) ([]model.TransferEvent, error) {
	return f.xfers, f.xferErr
}

func existingLot(owner common.Address) *model.Lot {
	return &model.Lot{
		Name:         "Paracetamol 500 mg",
		Owner:        owner,
		RegisteredAt: time.Unix(1700000000, 0).UTC(),
		Exists:       true,
		Quantity:     big.NewInt(100),
	}
}

func reg(block uint64, logIndex uint, owner common.Address) model.RegistrationEvent {
	return model.RegistrationEvent{
		Owner:       owner,
		Quantity:    big.NewInt(100),
		Timestamp:   time.Unix(1700000000, 0).UTC(),
		BlockNumber: block,
		LogIndex:    logIndex,
		TxHash:      common.HexToHash("0x01"),
	}
}

func xfer(block uint64, logIndex uint, from, to common.Address) model.TransferEvent {
	return model.TransferEvent{
		From:        from,
		To:          to,
		Quantity:    big.NewInt(10),
		Timestamp:   time.Unix(1700000100, 0).UTC(),
		BlockNumber: block,
		LogIndex:    logIndex,
		TxHash:      common.HexToHash("0x02"),
	}
}

func TestLotIDIsKeccakOfSeriesCode(t *testing.T) {
	assert.Equal(t, crypto.Keccak256Hash([]byte("CODE-123")), LotID("CODE-123"))
	assert.Equal(t, LotID("CODE-123"), LotID("CODE-123"))
	assert.NotEqual(t, LotID("CODE-123"), LotID("CODE-124"))
}

func TestTraceLotNotFound(t *testing.T) {
	client := &fakeClient{lot: &model.Lot{Exists: false}}
	r := NewReconstructor(client, zap.NewNop())

	result, err := r.Trace(context.Background(), "CODE-404")
	require.ErrorIs(t, err, ErrLotNotFound)
	assert.Nil(t, result)
}

func TestTraceInterleavesEventsByChainPosition(t *testing.T) {
	// Registration at block 10 / log 0 to X, then within block 15 the log
	// index decides: log 1 (to Z) precedes log 2 (to Y). Y ends up current.
	client := &fakeClient{
		lot:  existingLot(ownerY),
		regs: []model.RegistrationEvent{reg(10, 0, ownerX)},
		xfers: []model.TransferEvent{
			xfer(15, 2, ownerZ, ownerY),
			xfer(15, 1, ownerX, ownerZ),
		},
	}
	r := NewReconstructor(client, zap.NewNop())

	result, err := r.Trace(context.Background(), "CODE-1")
	require.NoError(t, err)
	require.NoError(t, result.TimelineErr)
	require.Len(t, result.Timeline, 3)

	assert.True(t, result.Timeline[0].Genesis())
	assert.Equal(t, ownerX, result.Timeline[0].To)
	assert.Equal(t, ownerZ, result.Timeline[1].To)
	assert.Equal(t, ownerY, result.Timeline[2].To)

	assert.False(t, result.Timeline[0].IsCurrentOwner)
	assert.False(t, result.Timeline[1].IsCurrentOwner)
	assert.True(t, result.Timeline[2].IsCurrentOwner)
}

func TestTraceTimelineHasOneRecordPerEvent(t *testing.T) {
	transfers := []model.TransferEvent{
		xfer(11, 0, ownerX, ownerY),
		xfer(12, 0, ownerY, ownerZ),
		xfer(13, 0, ownerZ, ownerX),
	}
	client := &fakeClient{
		lot:   existingLot(ownerX),
		regs:  []model.RegistrationEvent{reg(10, 0, ownerX)},
		xfers: transfers,
	}
	r := NewReconstructor(client, zap.NewNop())

	result, err := r.Trace(context.Background(), "CODE-1")
	require.NoError(t, err)
	require.Len(t, result.Timeline, len(transfers)+1)

	current := 0
	for _, record := range result.Timeline {
		if record.IsCurrentOwner {
			current++
		}
	}
	// X owned the lot twice; only the latest matching record is flagged.
	assert.Equal(t, 1, current)
	assert.True(t, result.Timeline[len(result.Timeline)-1].IsCurrentOwner)
}

func TestTraceSynthesizesRecordWhenNoEvents(t *testing.T) {
	lot := existingLot(ownerX)
	client := &fakeClient{lot: lot}
	r := NewReconstructor(client, zap.NewNop())

	result, err := r.Trace(context.Background(), "CODE-1")
	require.NoError(t, err)
	require.Len(t, result.Timeline, 1)

	record := result.Timeline[0]
	assert.True(t, record.Genesis())
	assert.Equal(t, lot.Owner, record.To)
	assert.Equal(t, lot.RegisteredAt, record.Timestamp)
	assert.True(t, record.IsCurrentOwner)
}

func TestTraceEventFailureKeepsLotDetails(t *testing.T) {
	queryErr := errors.New("filter timeout")
	client := &fakeClient{
		lot:     existingLot(ownerX),
		regs:    []model.RegistrationEvent{reg(10, 0, ownerX)},
		xferErr: queryErr,
	}
	r := NewReconstructor(client, zap.NewNop())

	result, err := r.Trace(context.Background(), "CODE-1")
	require.NoError(t, err)
	require.NotNil(t, result.Lot)
	assert.Empty(t, result.Timeline)

	var eventErr *EventQueryError
	require.ErrorAs(t, result.TimelineErr, &eventErr)
	assert.ErrorIs(t, result.TimelineErr, queryErr)
}

func TestTraceSnapshotFailure(t *testing.T) {
	client := &fakeClient{lotErr: errors.New("node unreachable")}
	r := NewReconstructor(client, zap.NewNop())

	result, err := r.Trace(context.Background(), "CODE-1")
	require.Error(t, err)
	assert.Nil(t, result)
}
