package registry

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

// RegistrationInput carries the validated fields for a registrarLote call.
type RegistrationInput struct {
	Name             string
	ActiveIngredient string
	ManufactureDate  int64 // epoch seconds
	ExpiryDate       int64 // epoch seconds
	SeriesCode       string
	Responsible      model.ResponsibleParty
	Quantity         *big.Int
}

// TxResult describes a confirmed write transaction.
type TxResult struct {
	Hash        common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// Registry defines the typed client interface to the MedicineRegistry
// contract. Write methods block until the transaction is mined and surface
// the contract revert reason through *RevertError on rejection.
type Registry interface {
	// RegisterLot submits a registrarLote transaction and waits for it to be
	// mined.
	RegisterLot(ctx context.Context, input RegistrationInput) (*TxResult, error)

	// TransferLot submits a transferirLote transaction and waits for it to be
	// mined.
	TransferLot(ctx context.Context, lotID common.Hash, to common.Address, quantity *big.Int) (*TxResult, error)

	// GetLot fetches the current lot snapshot. A nonexistent lot is not an
	// error: the snapshot comes back with Exists = false and callers must
	// check it before trusting the remaining fields.
	GetLot(ctx context.Context, lotID common.Hash) (*model.Lot, error)

	// RoleHash queries the contract getter for a role identifier.
	RoleHash(ctx context.Context, role model.Role) (common.Hash, error)

	// HasRole reports whether the address holds the role.
	HasRole(ctx context.Context, role common.Hash, addr common.Address) (bool, error)

	// AssignRole submits an asignarRol transaction and waits for it to be
	// mined.
	AssignRole(ctx context.Context, role common.Hash, addr common.Address) (*TxResult, error)

	// RevokeRole submits a revocarRol transaction and waits for it to be
	// mined.
	RevokeRole(ctx context.Context, role common.Hash, addr common.Address) (*TxResult, error)

	// RegistrationEvents fetches all LoteRegistrado logs for the lot.
	RegistrationEvents(ctx context.Context, lotID common.Hash) ([]model.RegistrationEvent, error)

	// TransferEvents fetches all LoteTransferido logs for the lot.
	TransferEvents(ctx context.Context, lotID common.Hash) ([]model.TransferEvent, error)
}
