// Package app orchestrates the front-end flows: wallet connection, form
// validation, contract calls and role-gated navigation. It is the layer the
// CLI commands call into.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/explorer"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/form"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/registry"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/session"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/trace"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/wallet"
)

var (
	// ErrBusy means the same logical action is already in flight. The
	// duplicate request is dropped; nothing is retried automatically.
	ErrBusy = errors.New("a request for this action is still pending")

	// ErrNotConnected means the action needs a signed session.
	ErrNotConnected = errors.New("wallet is not connected")
)

// RegistrationSummary is the confirmation record of the last registered lot,
// kept for redisplay until the next registration.
type RegistrationSummary struct {
	MedicineName string
	SeriesCode   string
	ExpiryDate   string
	Account      common.Address
	TxHash       common.Hash
	ExplorerURL  string
	Quantity     string
	Responsible  model.ResponsibleParty
}

// RegistryFactory binds the contract facade to a signer. A nil signer yields
// a read-only binding.
type RegistryFactory func(signer *bind.TransactOpts) (registry.Registry, error)

type App struct {
	logger      *zap.Logger
	connector   *wallet.Connector
	newRegistry RegistryFactory
	links       explorer.Links
	tabs        []session.Tab

	mu       sync.Mutex
	registry registry.Registry // read-only before connect, signed after
	session  *session.Session
	lastLot  *RegistrationSummary
	onReset  func()

	registering  atomic.Bool
	transferring atomic.Bool
	tracing      atomic.Bool
	roleWriting  atomic.Bool
}

// New builds the orchestrator with a read-only contract binding, so lot
// consultation works before any wallet is connected.
func New(connector *wallet.Connector, newRegistry RegistryFactory, links explorer.Links, logger *zap.Logger) (*App, error) {
	readOnly, err := newRegistry(nil)
	if err != nil {
		return nil, err
	}

	a := &App{
		logger:      logger,
		connector:   connector,
		newRegistry: newRegistry,
		links:       links,
		tabs:        session.DefaultTabs(),
		registry:    readOnly,
	}

	connector.OnAccountSwitch(a.handleAccountSwitch)
	connector.OnChainSwitch(a.handleChainSwitch)

	return a, nil
}

// OnReset registers the handler invoked when the chain changes and the whole
// application state has to be rebuilt.
func (a *App) OnReset(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onReset = fn
}

// Connect establishes the wallet session, binds the facade to its signer and
// loads role memberships. A role-query failure does not fail the connection;
// gating just stays closed until RefreshRoles succeeds.
func (a *App) Connect(ctx context.Context) (*wallet.Session, error) {
	ws, err := a.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := a.newRegistry(ws.Signer)
	if err != nil {
		a.connector.Disconnect()
		return nil, err
	}

	sess := session.New(signed, a.logger)
	sess.SetAccount(ws.Address)

	a.mu.Lock()
	a.registry = signed
	a.session = sess
	a.mu.Unlock()

	if err := sess.LoadRoles(ctx); err != nil {
		a.logger.Warn("Roles unavailable after connect", zap.Error(err))
	}

	return ws, nil
}

// Session returns the role-gated session state, nil before connect.
func (a *App) Session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// RefreshRoles re-runs the role membership queries for the active account.
func (a *App) RefreshRoles(ctx context.Context) error {
	sess := a.Session()
	if sess == nil {
		return ErrNotConnected
	}
	return sess.LoadRoles(ctx)
}

// VisibleTabs returns the navigation the current roles unlock. Without a
// session only public tabs show.
func (a *App) VisibleTabs() []session.Tab {
	a.mu.Lock()
	sess := a.session
	tabs := a.tabs
	a.mu.Unlock()

	if sess == nil {
		visible := make([]session.Tab, 0, len(tabs))
		for _, tab := range tabs {
			if len(tab.Required) == 0 {
				visible = append(visible, tab)
			}
		}
		return visible
	}
	return sess.VisibleTabs(tabs)
}

// RegisterLot validates the lot and legal forms and submits the
// registration. Validation failures never reach the facade.
func (a *App) RegisterLot(ctx context.Context, lot form.LotForm, legal form.LegalForm) (*RegistrationSummary, error) {
	if !a.registering.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer a.registering.Store(false)

	reg, sess, err := a.signedRegistry()
	if err != nil {
		return nil, err
	}

	input, err := form.ValidateLotSubmission(lot, legal)
	if err != nil {
		return nil, err
	}

	result, err := reg.RegisterLot(ctx, *input)
	if err != nil {
		return nil, err
	}

	account, _ := sess.Address()
	summary := &RegistrationSummary{
		MedicineName: input.Name,
		SeriesCode:   input.SeriesCode,
		ExpiryDate:   lot.ExpDate,
		Account:      account,
		TxHash:       result.Hash,
		ExplorerURL:  a.links.TxURL(result.Hash),
		Quantity:     lot.Quantity,
		Responsible:  input.Responsible,
	}

	a.mu.Lock()
	a.lastLot = summary
	a.mu.Unlock()

	return summary, nil
}

// LastRegistered returns the summary of the most recent registration, nil if
// none happened this session.
func (a *App) LastRegistered() *RegistrationSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastLot
}

// TransferLot validates the transfer form and submits the transfer.
func (a *App) TransferLot(ctx context.Context, f form.TransferForm) (*registry.TxResult, error) {
	if !a.transferring.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer a.transferring.Store(false)

	reg, _, err := a.signedRegistry()
	if err != nil {
		return nil, err
	}

	sub, err := form.ValidateTransfer(f)
	if err != nil {
		return nil, err
	}

	return reg.TransferLot(ctx, trace.LotID(sub.SeriesCode), sub.To, sub.Quantity)
}

// Trace reconstructs the ownership timeline for a series code. It works on
// the read-only binding, no wallet needed.
func (a *App) Trace(ctx context.Context, seriesCode string) (*trace.Result, error) {
	if !a.tracing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer a.tracing.Store(false)

	a.mu.Lock()
	reg := a.registry
	a.mu.Unlock()

	return trace.NewReconstructor(reg, a.logger).Trace(ctx, seriesCode)
}

// AssignRole validates the role form and submits the grant.
func (a *App) AssignRole(ctx context.Context, f form.RoleForm) (*registry.TxResult, error) {
	return a.roleWrite(ctx, f, true)
}

// RevokeRole validates the role form and submits the revocation.
func (a *App) RevokeRole(ctx context.Context, f form.RoleForm) (*registry.TxResult, error) {
	return a.roleWrite(ctx, f, false)
}

// RoleMembership queries all four role memberships for an arbitrary address
// on the current binding. Unlike session gating this is a one-off report, so
// failures surface directly.
func (a *App) RoleMembership(ctx context.Context, addr common.Address) (map[model.Role]bool, error) {
	a.mu.Lock()
	reg := a.registry
	a.mu.Unlock()

	membership := make(map[model.Role]bool, len(model.AllRoles()))
	for _, role := range model.AllRoles() {
		hash, err := reg.RoleHash(ctx, role)
		if err != nil {
			return nil, err
		}
		member, err := reg.HasRole(ctx, hash, addr)
		if err != nil {
			return nil, err
		}
		membership[role] = member
	}
	return membership, nil
}

// TxURL formats the explorer link for a transaction hash.
func (a *App) TxURL(hash common.Hash) string {
	return a.links.TxURL(hash)
}

func (a *App) roleWrite(ctx context.Context, f form.RoleForm, assign bool) (*registry.TxResult, error) {
	if !a.roleWriting.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer a.roleWriting.Store(false)

	reg, sess, err := a.signedRegistry()
	if err != nil {
		return nil, err
	}

	sub, err := form.ValidateRole(f)
	if err != nil {
		return nil, err
	}

	hash := sess.RoleHash(sub.Role)
	if assign {
		return reg.AssignRole(ctx, hash, sub.Address)
	}
	return reg.RevokeRole(ctx, hash, sub.Address)
}

func (a *App) signedRegistry() (registry.Registry, *session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, nil, ErrNotConnected
	}
	return a.registry, a.session, nil
}

func (a *App) handleAccountSwitch(ws *wallet.Session) {
	if ws == nil {
		// Access withdrawn: drop the signed binding and the session.
		readOnly, err := a.newRegistry(nil)
		a.mu.Lock()
		if err == nil {
			a.registry = readOnly
		}
		if a.session != nil {
			a.session.Clear()
		}
		a.session = nil
		a.mu.Unlock()
		return
	}

	signed, err := a.newRegistry(ws.Signer)
	if err != nil {
		a.logger.Error("Failed to rebind registry after account switch", zap.Error(err))
		return
	}

	sess := session.New(signed, a.logger)
	sess.SetAccount(ws.Address)

	a.mu.Lock()
	a.registry = signed
	a.session = sess
	a.mu.Unlock()

	if err := sess.LoadRoles(context.Background()); err != nil {
		a.logger.Warn("Roles unavailable after account switch", zap.Error(err))
	}
}

func (a *App) handleChainSwitch() {
	a.mu.Lock()
	fn := a.onReset
	if a.session != nil {
		a.session.Clear()
	}
	a.session = nil
	a.lastLot = nil
	a.mu.Unlock()

	if fn != nil {
		fn()
	}
}
