package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Session is an established wallet connection: the active account and a
// signer bound to it.
type Session struct {
	Address common.Address
	Signer  *bind.TransactOpts
	ChainID *big.Int
}

// Connector obtains a signer from an injected Provider and tracks the
// account/chain change signals for the lifetime of the session.
type Connector struct {
	provider Provider
	logger   *zap.Logger

	mu         sync.Mutex
	connecting bool
	session    *Session
	unsubs     []func()

	// Shell callbacks, set before Connect. onAccountSwitch receives the
	// replacement session, or nil when access was withdrawn and the contract
	// binding must be torn down. onChainSwitch means the session is invalid
	// wholesale and the application state must be rebuilt.
	onAccountSwitch func(*Session)
	onChainSwitch   func()
}

func NewConnector(provider Provider, logger *zap.Logger) *Connector {
	return &Connector{
		provider: provider,
		logger:   logger,
	}
}

// OnAccountSwitch registers the shell handler for account replacement. A nil
// session argument signals teardown.
func (c *Connector) OnAccountSwitch(fn func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAccountSwitch = fn
}

// OnChainSwitch registers the shell handler for chain changes.
func (c *Connector) OnChainSwitch(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChainSwitch = fn
}

// Connect requests account access and returns a session bound to the active
// account. While one prompt is open, further calls fail with
// ErrRequestPending instead of issuing a duplicate prompt.
func (c *Connector) Connect(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if c.provider == nil {
		c.mu.Unlock()
		return nil, ErrProviderUnavailable
	}
	if c.connecting {
		c.mu.Unlock()
		return nil, ErrRequestPending
	}
	c.connecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrUserRejected
	}

	session, err := c.buildSession(ctx, accounts[0])
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.teardownLocked()
	c.session = session
	c.unsubs = []func(){
		c.provider.OnAccountsChanged(c.handleAccountsChanged),
		c.provider.OnChainChanged(c.handleChainChanged),
	}
	c.mu.Unlock()

	c.logger.Info("Wallet connected",
		zap.String("address", session.Address.Hex()),
		zap.String("chain_id", session.ChainID.String()))

	return session, nil
}

// Session returns the active session, or nil when disconnected.
func (c *Connector) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Disconnect drops the session and removes both change listeners.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.session = nil
	c.logger.Info("Wallet disconnected")
}

func (c *Connector) buildSession(ctx context.Context, account common.Address) (*Session, error) {
	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	signer, err := c.provider.Signer(ctx, account)
	if err != nil {
		return nil, err
	}

	return &Session{Address: account, Signer: signer, ChainID: chainID}, nil
}

func (c *Connector) handleAccountsChanged(accounts []common.Address) {
	c.mu.Lock()
	fn := c.onAccountSwitch
	active := c.session
	c.mu.Unlock()

	if active == nil {
		return
	}

	if len(accounts) == 0 {
		c.logger.Warn("Wallet access withdrawn, tearing down session")
		c.mu.Lock()
		c.teardownLocked()
		c.session = nil
		c.mu.Unlock()
		if fn != nil {
			fn(nil)
		}
		return
	}

	next := accounts[0]
	if next == active.Address {
		return
	}

	session, err := c.buildSession(context.Background(), next)
	if err != nil {
		c.logger.Error("Failed to rebind signer after account switch",
			zap.String("address", next.Hex()),
			zap.Error(err))
		c.mu.Lock()
		c.teardownLocked()
		c.session = nil
		c.mu.Unlock()
		if fn != nil {
			fn(nil)
		}
		return
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.logger.Info("Active account switched", zap.String("address", next.Hex()))
	if fn != nil {
		fn(session)
	}
}

func (c *Connector) handleChainChanged(chainID *big.Int) {
	c.mu.Lock()
	fn := c.onChainSwitch
	c.teardownLocked()
	c.session = nil
	c.mu.Unlock()

	// Contract addresses are chain-specific, so the only safe response is a
	// full reset of the application state.
	c.logger.Warn("Chain switched, resetting session", zap.String("chain_id", chainID.String()))
	if fn != nil {
		fn()
	}
}

func (c *Connector) teardownLocked() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}
