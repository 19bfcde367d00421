package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/config"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

// Backend is the node surface the facade needs: contract calls, transaction
// submission, log filtering and receipt lookup. *ethclient.Client satisfies
// it; tests substitute a fake.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Contract binds the MedicineRegistry ABI to a deployed address and a signer.
type Contract struct {
	address    common.Address
	abi        abi.ABI
	bound      *bind.BoundContract
	backend    Backend
	signer     *bind.TransactOpts
	startBlock uint64
	logger     *zap.Logger
}

// abiResponsable mirrors the responsable tuple in the contract schema. Field
// names must match the ABI component names for packing.
type abiResponsable struct {
	Nombre   string
	Dni      string
	Telefono string
	Correo   string
}

type loteRegistradoLog struct {
	LoteId      [32]byte
	Propietario common.Address
	Nombre      string
	Cantidad    *big.Int
	Fecha       *big.Int
}

type loteTransferidoLog struct {
	LoteId   [32]byte
	Anterior common.Address
	Nuevo    common.Address
	Cantidad *big.Int
	Fecha    *big.Int
}

// NewContract binds the registry ABI to the configured address. The signer
// may be nil for a read-only binding; write methods then fail.
func NewContract(cfg *config.RegistryConfig, backend Backend, signer *bind.TransactOpts, logger *zap.Logger) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(medicineRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	address := common.HexToAddress(cfg.ContractAddress)

	return &Contract{
		address:    address,
		abi:        parsed,
		bound:      bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:    backend,
		signer:     signer,
		startBlock: cfg.StartBlock,
		logger:     logger,
	}, nil
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// RegisterLot submits registrarLote and waits for the transaction to be mined.
func (c *Contract) RegisterLot(ctx context.Context, input RegistrationInput) (*TxResult, error) {
	responsable := abiResponsable{
		Nombre:   input.Responsible.FullName,
		Dni:      input.Responsible.NationalID,
		Telefono: input.Responsible.Phone,
		Correo:   input.Responsible.Email,
	}

	result, err := c.transact(ctx, "registrarLote",
		input.Name,
		input.ActiveIngredient,
		big.NewInt(input.ManufactureDate),
		big.NewInt(input.ExpiryDate),
		input.SeriesCode,
		responsable,
		input.Quantity,
	)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Lot registered",
		zap.String("series_code", input.SeriesCode),
		zap.String("tx", result.Hash.Hex()))

	return result, nil
}

// TransferLot submits transferirLote and waits for the transaction to be mined.
func (c *Contract) TransferLot(ctx context.Context, lotID common.Hash, to common.Address, quantity *big.Int) (*TxResult, error) {
	result, err := c.transact(ctx, "transferirLote", [32]byte(lotID), to, quantity)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Lot transferred",
		zap.String("lot_id", lotID.Hex()),
		zap.String("to", to.Hex()),
		zap.String("tx", result.Hash.Hex()))

	return result, nil
}

// GetLot fetches a lot snapshot. Nonexistence is reported through the Exists
// flag, never as an error.
func (c *Contract) GetLot(ctx context.Context, lotID common.Hash) (*model.Lot, error) {
	var out []interface{}
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "obtenerLote", [32]byte(lotID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lot %s: %w", lotID.Hex(), err)
	}

	responsable := *abi.ConvertType(out[8], new(abiResponsable)).(*abiResponsable)

	lot := &model.Lot{
		Name:             *abi.ConvertType(out[0], new(string)).(*string),
		ActiveIngredient: *abi.ConvertType(out[1], new(string)).(*string),
		ManufactureDate:  epochToTime(*abi.ConvertType(out[2], new(*big.Int)).(**big.Int)),
		ExpiryDate:       epochToTime(*abi.ConvertType(out[3], new(*big.Int)).(**big.Int)),
		Owner:            *abi.ConvertType(out[4], new(common.Address)).(*common.Address),
		RegisteredAt:     epochToTime(*abi.ConvertType(out[5], new(*big.Int)).(**big.Int)),
		Exists:           *abi.ConvertType(out[7], new(bool)).(*bool),
		Responsible: model.ResponsibleParty{
			FullName:   responsable.Nombre,
			NationalID: responsable.Dni,
			Phone:      responsable.Telefono,
			Email:      responsable.Correo,
		},
		Quantity: *abi.ConvertType(out[9], new(*big.Int)).(**big.Int),
	}

	// ultimaTransferencia is zero until the first transfer.
	if transferred := *abi.ConvertType(out[6], new(*big.Int)).(**big.Int); transferred.Sign() > 0 {
		lot.LastTransferredAt = epochToTime(transferred)
	}

	return lot, nil
}

// RoleHash queries the contract getter for a role identifier.
func (c *Contract) RoleHash(ctx context.Context, role model.Role) (common.Hash, error) {
	var out []interface{}
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, string(role))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch hash for role %s: %w", role, err)
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

// HasRole reports whether the address holds the role.
func (c *Contract) HasRole(ctx context.Context, role common.Hash, addr common.Address) (bool, error) {
	var out []interface{}
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "hasRole", [32]byte(role), addr)
	if err != nil {
		return false, fmt.Errorf("failed to check role %s for %s: %w", role.Hex(), addr.Hex(), err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// AssignRole submits asignarRol and waits for the transaction to be mined.
func (c *Contract) AssignRole(ctx context.Context, role common.Hash, addr common.Address) (*TxResult, error) {
	return c.transact(ctx, "asignarRol", [32]byte(role), addr)
}

// RevokeRole submits revocarRol and waits for the transaction to be mined.
func (c *Contract) RevokeRole(ctx context.Context, role common.Hash, addr common.Address) (*TxResult, error) {
	return c.transact(ctx, "revocarRol", [32]byte(role), addr)
}

// RegistrationEvents fetches LoteRegistrado logs for the lot since the
// contract's deployment block.
func (c *Contract) RegistrationEvents(ctx context.Context, lotID common.Hash) ([]model.RegistrationEvent, error) {
	logs, err := c.filterLotLogs(ctx, "LoteRegistrado", lotID)
	if err != nil {
		return nil, err
	}

	events := make([]model.RegistrationEvent, 0, len(logs))
	for _, lg := range logs {
		var decoded loteRegistradoLog
		if err := c.bound.UnpackLog(&decoded, "LoteRegistrado", lg); err != nil {
			return nil, fmt.Errorf("failed to decode LoteRegistrado log in tx %s: %w", lg.TxHash.Hex(), err)
		}
		events = append(events, model.RegistrationEvent{
			LotID:       common.Hash(decoded.LoteId),
			Owner:       decoded.Propietario,
			Name:        decoded.Nombre,
			Quantity:    decoded.Cantidad,
			Timestamp:   epochToTime(decoded.Fecha),
			BlockNumber: lg.BlockNumber,
			LogIndex:    lg.Index,
			TxHash:      lg.TxHash,
		})
	}
	return events, nil
}

// TransferEvents fetches LoteTransferido logs for the lot since the
// contract's deployment block.
func (c *Contract) TransferEvents(ctx context.Context, lotID common.Hash) ([]model.TransferEvent, error) {
	logs, err := c.filterLotLogs(ctx, "LoteTransferido", lotID)
	if err != nil {
		return nil, err
	}

	events := make([]model.TransferEvent, 0, len(logs))
	for _, lg := range logs {
		var decoded loteTransferidoLog
		if err := c.bound.UnpackLog(&decoded, "LoteTransferido", lg); err != nil {
			return nil, fmt.Errorf("failed to decode LoteTransferido log in tx %s: %w", lg.TxHash.Hex(), err)
		}
		events = append(events, model.TransferEvent{
			LotID:       common.Hash(decoded.LoteId),
			From:        decoded.Anterior,
			To:          decoded.Nuevo,
			Quantity:    decoded.Cantidad,
			Timestamp:   epochToTime(decoded.Fecha),
			BlockNumber: lg.BlockNumber,
			LogIndex:    lg.Index,
			TxHash:      lg.TxHash,
		})
	}
	return events, nil
}

// Events fetches every registry event from the given block onward, decoded
// into flattened audit records. Watch mode uses it for backfill.
func (c *Contract) Events(ctx context.Context, fromBlock uint64) ([]model.AuditRecord, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{c.address},
		Topics: [][]common.Hash{{
			c.abi.Events["LoteRegistrado"].ID,
			c.abi.Events["LoteTransferido"].ID,
		}},
	}

	logs, err := c.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registry events from block %d: %w", fromBlock, err)
	}

	records := make([]model.AuditRecord, 0, len(logs))
	for _, lg := range logs {
		record, err := c.decodeAuditRecord(lg)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// WatchEvents subscribes to registry events over the websocket backend and
// delivers decoded audit records. The returned subscription reports stream
// errors; cancelling ctx ends the stream.
func (c *Contract) WatchEvents(ctx context.Context) (<-chan model.AuditRecord, ethereum.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics: [][]common.Hash{{
			c.abi.Events["LoteRegistrado"].ID,
			c.abi.Events["LoteTransferido"].ID,
		}},
	}

	logs := make(chan types.Log)
	sub, err := c.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to registry events: %w", err)
	}

	records := make(chan model.AuditRecord)
	go func() {
		defer close(records)
		for {
			select {
			case lg := <-logs:
				record, err := c.decodeAuditRecord(lg)
				if err != nil {
					c.logger.Error("Dropping undecodable registry log",
						zap.String("tx", lg.TxHash.Hex()),
						zap.Error(err))
					continue
				}
				select {
				case records <- record:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return records, sub, nil
}

func (c *Contract) decodeAuditRecord(lg types.Log) (model.AuditRecord, error) {
	if len(lg.Topics) == 0 {
		return model.AuditRecord{}, fmt.Errorf("registry log in tx %s has no topics", lg.TxHash.Hex())
	}

	switch lg.Topics[0] {
	case c.abi.Events["LoteRegistrado"].ID:
		var decoded loteRegistradoLog
		if err := c.bound.UnpackLog(&decoded, "LoteRegistrado", lg); err != nil {
			return model.AuditRecord{}, fmt.Errorf("failed to decode LoteRegistrado log in tx %s: %w", lg.TxHash.Hex(), err)
		}
		return model.AuditRecord{
			Kind:        "lote_registrado",
			LotID:       common.Hash(decoded.LoteId).Hex(),
			To:          decoded.Propietario.Hex(),
			Quantity:    decoded.Cantidad.String(),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash.Hex(),
			Timestamp:   epochToTime(decoded.Fecha),
		}, nil

	case c.abi.Events["LoteTransferido"].ID:
		var decoded loteTransferidoLog
		if err := c.bound.UnpackLog(&decoded, "LoteTransferido", lg); err != nil {
			return model.AuditRecord{}, fmt.Errorf("failed to decode LoteTransferido log in tx %s: %w", lg.TxHash.Hex(), err)
		}
		return model.AuditRecord{
			Kind:        "lote_transferido",
			LotID:       common.Hash(decoded.LoteId).Hex(),
			From:        decoded.Anterior.Hex(),
			To:          decoded.Nuevo.Hex(),
			Quantity:    decoded.Cantidad.String(),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash.Hex(),
			Timestamp:   epochToTime(decoded.Fecha),
		}, nil
	}

	return model.AuditRecord{}, fmt.Errorf("registry log in tx %s has unknown topic %s", lg.TxHash.Hex(), lg.Topics[0].Hex())
}

func (c *Contract) filterLotLogs(ctx context.Context, eventName string, lotID common.Hash) ([]types.Log, error) {
	event, ok := c.abi.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("unknown registry event %q", eventName)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(c.startBlock),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{event.ID}, {lotID}},
	}

	logs, err := c.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s logs for lot %s: %w", eventName, lotID.Hex(), err)
	}
	return logs, nil
}

func (c *Contract) transact(ctx context.Context, method string, params ...interface{}) (*TxResult, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("registry is bound read-only, connect a wallet before calling %s", method)
	}

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.bound.Transact(&opts, method, params...)
	if err != nil {
		return nil, newRevertError(err)
	}

	c.logger.Debug("Transaction submitted, awaiting confirmation",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()))

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed awaiting confirmation of %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &RevertError{Reason: genericRevertReason}
	}

	return &TxResult{
		Hash:        tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

func epochToTime(v *big.Int) time.Time {
	if v == nil || v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
