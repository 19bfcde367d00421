package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RegistrationEvent is a decoded LoteRegistrado log.
type RegistrationEvent struct {
	LotID       common.Hash    `json:"lot_id"`
	Owner       common.Address `json:"owner"`
	Name        string         `json:"name"`
	Quantity    *big.Int       `json:"quantity"`
	Timestamp   time.Time      `json:"timestamp"`
	BlockNumber uint64         `json:"block_number"`
	LogIndex    uint           `json:"log_index"`
	TxHash      common.Hash    `json:"tx_hash"`
}

// TransferEvent is a decoded LoteTransferido log. From is the prior owner as
// recorded by the contract, never inferred client-side.
type TransferEvent struct {
	LotID       common.Hash    `json:"lot_id"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Quantity    *big.Int       `json:"quantity"`
	Timestamp   time.Time      `json:"timestamp"`
	BlockNumber uint64         `json:"block_number"`
	LogIndex    uint           `json:"log_index"`
	TxHash      common.Hash    `json:"tx_hash"`
}

// OwnershipRecord is one entry in a reconstructed lot timeline. A zero From
// address marks the genesis record (the initial registration).
type OwnershipRecord struct {
	From           common.Address `json:"from"`
	To             common.Address `json:"to"`
	Quantity       *big.Int       `json:"quantity"`
	Timestamp      time.Time      `json:"timestamp"`
	BlockNumber    uint64         `json:"block_number"`
	LogIndex       uint           `json:"log_index"`
	TxHash         common.Hash    `json:"tx_hash"`
	IsCurrentOwner bool           `json:"is_current_owner"`
}

// Genesis reports whether the record is the initial registration entry.
func (r OwnershipRecord) Genesis() bool {
	return r.From == (common.Address{})
}

// AuditRecord is the flattened form of a registry event published to the
// analytics broker by watch mode.
type AuditRecord struct {
	Kind        string    `json:"kind"` // "lote_registrado" or "lote_transferido"
	LotID       string    `json:"lot_id"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to"`
	Quantity    string    `json:"quantity"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	Timestamp   time.Time `json:"timestamp"`
}
