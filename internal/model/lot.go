package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ResponsibleParty holds the legal representative attached to a lot at
// registration time. It is immutable once submitted.
type ResponsibleParty struct {
	FullName   string `json:"full_name"`
	NationalID string `json:"national_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Lot is the last fetched snapshot of an on-chain pharmaceutical lot.
// The contract owns and mutates this data; the client never persists it.
type Lot struct {
	Name              string           `json:"name"`
	ActiveIngredient  string           `json:"active_ingredient"`
	ManufactureDate   time.Time        `json:"manufacture_date"`
	ExpiryDate        time.Time        `json:"expiry_date"`
	Owner             common.Address   `json:"owner"`
	RegisteredAt      time.Time        `json:"registered_at"`
	LastTransferredAt time.Time        `json:"last_transferred_at"` // zero if never transferred
	Exists            bool             `json:"exists"`
	Responsible       ResponsibleParty `json:"responsible"`
	Quantity          *big.Int         `json:"quantity"`
}
