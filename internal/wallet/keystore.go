package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/config"
)

const chainPollInterval = 15 * time.Second

// PassphraseFunc asks the user for the passphrase of an account. Returning an
// error means the prompt was dismissed.
type PassphraseFunc func(account common.Address) (string, error)

// ChainIDReader is the node surface the provider needs to detect the active
// chain. *ethclient.Client satisfies it.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// KeystoreProvider implements Provider over a local encrypted keystore
// directory, the CLI analog of a browser-injected wallet. Account changes are
// observed through keystore wallet events, chain changes by polling the node.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	node       ChainIDReader
	passphrase PassphraseFunc
	logger     *zap.Logger

	mu          sync.Mutex
	nextID      int
	accountSubs map[int]func([]common.Address)
	chainSubs   map[int]func(*big.Int)
	lastChainID *big.Int
	watching    bool
	stop        chan struct{}
}

func NewKeystoreProvider(cfg *config.WalletConfig, node ChainIDReader, passphrase PassphraseFunc, logger *zap.Logger) *KeystoreProvider {
	var ks *keystore.KeyStore
	if cfg.KeystoreDir != "" {
		ks = keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	}

	return &KeystoreProvider{
		ks:          ks,
		node:        node,
		passphrase:  passphrase,
		logger:      logger,
		accountSubs: make(map[int]func([]common.Address)),
		chainSubs:   make(map[int]func(*big.Int)),
		stop:        make(chan struct{}),
	}
}

// RequestAccounts lists the keystore accounts. An absent or empty keystore
// maps to ErrProviderUnavailable: there is no wallet to connect.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if p.ks == nil {
		return nil, ErrProviderUnavailable
	}

	all := p.ks.Accounts()
	if len(all) == 0 {
		return nil, fmt.Errorf("keystore holds no accounts: %w", ErrProviderUnavailable)
	}

	addresses := make([]common.Address, len(all))
	for i, account := range all {
		addresses[i] = account.Address
	}
	return addresses, nil
}

// Signer unlocks the account and returns keystore-backed transact options. A
// dismissed prompt or wrong passphrase maps to ErrUserRejected.
func (p *KeystoreProvider) Signer(ctx context.Context, address common.Address) (*bind.TransactOpts, error) {
	if p.ks == nil {
		return nil, ErrProviderUnavailable
	}

	account, err := p.findAccount(address)
	if err != nil {
		return nil, err
	}

	pass, err := p.passphrase(address)
	if err != nil {
		return nil, fmt.Errorf("passphrase prompt dismissed: %w", ErrUserRejected)
	}

	if err := p.ks.Unlock(account, pass); err != nil {
		return nil, fmt.Errorf("failed to unlock %s: %w", address.Hex(), ErrUserRejected)
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyStoreTransactorWithChainID(p.ks, account, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build signer for %s: %w", address.Hex(), err)
	}
	return opts, nil
}

func (p *KeystoreProvider) ChainID(ctx context.Context) (*big.Int, error) {
	chainID, err := p.node.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	return chainID, nil
}

func (p *KeystoreProvider) OnAccountsChanged(fn func([]common.Address)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.accountSubs[id] = fn
	p.ensureWatchersLocked()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.accountSubs, id)
	}
}

func (p *KeystoreProvider) OnChainChanged(fn func(*big.Int)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.chainSubs[id] = fn
	p.ensureWatchersLocked()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.chainSubs, id)
	}
}

// Close stops the keystore and chain watchers.
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watching {
		close(p.stop)
		p.watching = false
	}
}

func (p *KeystoreProvider) ensureWatchersLocked() {
	if p.watching {
		return
	}
	p.watching = true

	if p.ks != nil {
		go p.watchKeystore()
	}
	go p.watchChain()
}

func (p *KeystoreProvider) watchKeystore() {
	events := make(chan accounts.WalletEvent, 16)
	sub := p.ks.Subscribe(events)
	defer sub.Unsubscribe()

	for {
		select {
		case <-events:
			addresses, err := p.RequestAccounts(context.Background())
			if err != nil {
				addresses = nil
			}
			p.mu.Lock()
			subs := make([]func([]common.Address), 0, len(p.accountSubs))
			for _, fn := range p.accountSubs {
				subs = append(subs, fn)
			}
			p.mu.Unlock()
			for _, fn := range subs {
				fn(addresses)
			}
		case err := <-sub.Err():
			if err != nil {
				p.logger.Error("Keystore subscription error", zap.Error(err))
			}
			return
		case <-p.stop:
			return
		}
	}
}

func (p *KeystoreProvider) watchChain() {
	ticker := time.NewTicker(chainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			chainID, err := p.node.ChainID(context.Background())
			if err != nil {
				p.logger.Debug("Chain id poll failed", zap.Error(err))
				continue
			}

			p.mu.Lock()
			changed := p.lastChainID != nil && p.lastChainID.Cmp(chainID) != 0
			p.lastChainID = chainID
			subs := make([]func(*big.Int), 0, len(p.chainSubs))
			for _, fn := range p.chainSubs {
				subs = append(subs, fn)
			}
			p.mu.Unlock()

			if changed {
				for _, fn := range subs {
					fn(chainID)
				}
			}
		case <-p.stop:
			return
		}
	}
}

func (p *KeystoreProvider) findAccount(address common.Address) (accounts.Account, error) {
	for _, account := range p.ks.Accounts() {
		if account.Address == address {
			return account, nil
		}
	}
	return accounts.Account{}, fmt.Errorf("account %s not found in keystore: %w", address.Hex(), ErrProviderUnavailable)
}
