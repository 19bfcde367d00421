// Package trace rebuilds the ownership timeline of a lot from the registry's
// registration and transfer event streams.
package trace

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

// ErrLotNotFound means the queried series code does not resolve to a
// registered lot.
var ErrLotNotFound = errors.New("lot not found")

// EventQueryError wraps a failed event-stream fetch. The lot snapshot itself
// was fine; only the timeline is affected and the query can be retried.
type EventQueryError struct {
	Err error
}

func (e *EventQueryError) Error() string {
	return fmt.Sprintf("failed to query lot events: %v", e.Err)
}

func (e *EventQueryError) Unwrap() error { return e.Err }

// Client is the registry subset the reconstructor reads from.
type Client interface {
	GetLot(ctx context.Context, lotID common.Hash) (*model.Lot, error)
	RegistrationEvents(ctx context.Context, lotID common.Hash) ([]model.RegistrationEvent, error)
	TransferEvents(ctx context.Context, lotID common.Hash) ([]model.TransferEvent, error)
}

// Result carries the lot snapshot and its reconstructed timeline. TimelineErr
// is set when the event queries failed while the snapshot succeeded; the lot
// details are still usable and the timeline fetch can be retried.
type Result struct {
	LotID       common.Hash
	Lot         *model.Lot
	Timeline    []model.OwnershipRecord
	TimelineErr error
}

// LotID derives the on-chain lot identifier from its series code.
func LotID(seriesCode string) common.Hash {
	return crypto.Keccak256Hash([]byte(seriesCode))
}

// Reconstructor merges the two event streams of a lot into one ownership
// timeline ordered by chain position.
type Reconstructor struct {
	client Client
	logger *zap.Logger
}

func NewReconstructor(client Client, logger *zap.Logger) *Reconstructor {
	return &Reconstructor{client: client, logger: logger}
}

// Trace resolves the series code and rebuilds the lot's ownership timeline.
// A nonexistent lot yields ErrLotNotFound. Event-query failures do not fail
// the whole call; they come back in Result.TimelineErr alongside the
// snapshot.
func (r *Reconstructor) Trace(ctx context.Context, seriesCode string) (*Result, error) {
	lotID := LotID(seriesCode)

	lot, err := r.client.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if !lot.Exists {
		return nil, fmt.Errorf("series code %q: %w", seriesCode, ErrLotNotFound)
	}

	// The two streams are independent reads; fetch them concurrently.
	var (
		registrations []model.RegistrationEvent
		transfers     []model.TransferEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		registrations, err = r.client.RegistrationEvents(gctx, lotID)
		return err
	})
	g.Go(func() error {
		var err error
		transfers, err = r.client.TransferEvents(gctx, lotID)
		return err
	})
	if err := g.Wait(); err != nil {
		r.logger.Warn("Event query failed, lot details still available",
			zap.String("lot_id", lotID.Hex()),
			zap.Error(err))
		return &Result{LotID: lotID, Lot: lot, TimelineErr: &EventQueryError{Err: err}}, nil
	}

	return &Result{
		LotID:    lotID,
		Lot:      lot,
		Timeline: BuildTimeline(lot, registrations, transfers),
	}, nil
}

// chainEntry is one event positioned in the chain timeline.
type chainEntry struct {
	block    uint64
	logIndex uint
	record   model.OwnershipRecord
}

// BuildTimeline interleaves registration and transfer events into ownership
// records ordered by (block number, log index). Registration and transfer are
// distinct event kinds emitted in the same chain timeline, so they must be
// merged, not concatenated.
func BuildTimeline(lot *model.Lot, registrations []model.RegistrationEvent, transfers []model.TransferEvent) []model.OwnershipRecord {
	entries := make([]chainEntry, 0, len(registrations)+len(transfers))

	for _, ev := range registrations {
		entries = append(entries, chainEntry{
			block:    ev.BlockNumber,
			logIndex: ev.LogIndex,
			record: model.OwnershipRecord{
				// Genesis marker: no prior owner.
				From:        common.Address{},
				To:          ev.Owner,
				Quantity:    ev.Quantity,
				Timestamp:   ev.Timestamp,
				BlockNumber: ev.BlockNumber,
				LogIndex:    ev.LogIndex,
				TxHash:      ev.TxHash,
			},
		})
	}

	for _, ev := range transfers {
		entries = append(entries, chainEntry{
			block:    ev.BlockNumber,
			logIndex: ev.LogIndex,
			record: model.OwnershipRecord{
				// Prior owner comes from the event's recorded field, never
				// inferred from the preceding record.
				From:        ev.From,
				To:          ev.To,
				Quantity:    ev.Quantity,
				Timestamp:   ev.Timestamp,
				BlockNumber: ev.BlockNumber,
				LogIndex:    ev.LogIndex,
				TxHash:      ev.TxHash,
			},
		})
	}

	if len(entries) == 0 {
		// The lot exists but the provider returned no events; synthesize the
		// registration record from the snapshot so the timeline is never
		// empty for an existing lot.
		return []model.OwnershipRecord{{
			From:           common.Address{},
			To:             lot.Owner,
			Quantity:       lot.Quantity,
			Timestamp:      lot.RegisteredAt,
			IsCurrentOwner: true,
		}}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].block != entries[j].block {
			return entries[i].block < entries[j].block
		}
		return entries[i].logIndex < entries[j].logIndex
	})

	records := make([]model.OwnershipRecord, len(entries))
	for i, entry := range entries {
		records[i] = entry.record
	}

	// Exactly one record carries the current-owner flag: the latest one whose
	// recipient matches the snapshot owner. Address comparison is canonical
	// bytes, so hex casing cannot cause a mismatch.
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].To == lot.Owner {
			records[i].IsCurrentOwner = true
			break
		}
	}

	return records
}
