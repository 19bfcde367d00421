package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrProviderUnavailable means no usable wallet backend exists. Nothing
	// chain-related can proceed; the user has to set one up first.
	ErrProviderUnavailable = errors.New("no wallet provider available")

	// ErrUserRejected means the user dismissed or failed the connection
	// prompt. Recoverable by connecting again.
	ErrUserRejected = errors.New("wallet connection rejected by user")

	// ErrRequestPending means a prior connection prompt is still open. The
	// pending prompt must be completed or cancelled; a duplicate prompt is
	// never issued.
	ErrRequestPending = errors.New("a wallet connection request is already pending")
)

// Provider abstracts the injected wallet surface. It mirrors the
// account-request and change-notification contract of a browser-injected
// provider so the connector stays testable with a fake.
type Provider interface {
	// RequestAccounts asks the wallet for account access and returns the
	// available accounts, active account first.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Signer returns transaction-signing options bound to the account.
	Signer(ctx context.Context, account common.Address) (*bind.TransactOpts, error)

	// ChainID returns the chain the provider is connected to.
	ChainID(ctx context.Context) (*big.Int, error)

	// OnAccountsChanged registers a listener for account-set changes and
	// returns its unsubscribe function. An empty slice means access was
	// withdrawn entirely.
	OnAccountsChanged(fn func(accounts []common.Address)) (unsubscribe func())

	// OnChainChanged registers a listener for chain switches and returns its
	// unsubscribe function.
	OnChainChanged(fn func(chainID *big.Int)) (unsubscribe func())
}
