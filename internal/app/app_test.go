package app

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/config"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/explorer"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/form"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/registry"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/wallet"
)

var (
	testAccount = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	otherParty  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testTxHash  = common.HexToHash("0x0101")
)

// fakeRegistry records calls and lets a test hold a write open to exercise
// the in-flight guards.
type fakeRegistry struct {
	mu            sync.Mutex
	registerCalls int
	transferCalls int
	roleCalls     int
	lot           *model.Lot
	held          map[model.Role]bool

	// blockWrites, when set, holds every write until closed. writeStarted
	// signals that a write reached the hold.
	blockWrites  chan struct{}
	writeStarted chan struct{}
}

func (f *fakeRegistry) waitIfBlocked() {
	f.mu.Lock()
	block := f.blockWrites
	started := f.writeStarted
	f.writeStarted = nil
	f.mu.Unlock()
	if block != nil {
		if started != nil {
			close(started)
		}
		<-block
	}
}

func (f *fakeRegistry) RegisterLot(ctx context.Context, input registry.RegistrationInput) (*registry.TxResult, error) {
	f.mu.Lock()
	f.registerCalls++
	f.mu.Unlock()
	f.waitIfBlocked()
	return &registry.TxResult{Hash: testTxHash, BlockNumber: 1}, nil
}

func (f *fakeRegistry) TransferLot(ctx context.Context, lotID common.Hash, to common.Address, quantity *big.Int) (*registry.TxResult, error) {
	f.mu.Lock()
	f.transferCalls++
	f.mu.Unlock()
	f.waitIfBlocked()
	return &registry.TxResult{Hash: testTxHash, BlockNumber: 2}, nil
}

func (f *fakeRegistry) GetLot(ctx context.Context, lotID common.Hash) (*model.Lot, error) {
	if f.lot == nil {
		return &model.Lot{}, nil
	}
	return f.lot, nil
}

func (f *fakeRegistry) RoleHash(ctx context.Context, role model.Role) (common.Hash, error) {
	return role.Hash(), nil
}

func (f *fakeRegistry) HasRole(ctx context.Context, role common.Hash, addr common.Address) (bool, error) {
	for _, r := range model.AllRoles() {
		if r.Hash() == role {
			return f.held[r], nil
		}
	}
	return false, nil
}

func (f *fakeRegistry) AssignRole(ctx context.Context, role common.Hash, addr common.Address) (*registry.TxResult, error) {
	f.mu.Lock()
	f.roleCalls++
	f.mu.Unlock()
	f.waitIfBlocked()
	return &registry.TxResult{Hash: testTxHash, BlockNumber: 3}, nil
}

func (f *fakeRegistry) RevokeRole(ctx context.Context, role common.Hash, addr common.Address) (*registry.TxResult, error) {
	return f.AssignRole(ctx, role, addr)
}

func (f *fakeRegistry) RegistrationEvents(ctx context.Context, lotID common.Hash) ([]model.RegistrationEvent, error) {
	return nil, nil
}

func (f *fakeRegistry) TransferEvents(ctx context.Context, lotID common.Hash) ([]model.TransferEvent, error) {
	return nil, nil
}

// fakeWalletProvider is the minimal injected provider for connector wiring.
type fakeWalletProvider struct {
	accounts []common.Address
}

func (f *fakeWalletProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return f.accounts, nil
}

func (f *fakeWalletProvider) Signer(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: account}, nil
}

func (f *fakeWalletProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(11155111), nil
}

func (f *fakeWalletProvider) OnAccountsChanged(fn func([]common.Address)) func() {
	return func() {}
}

func (f *fakeWalletProvider) OnChainChanged(fn func(*big.Int)) func() {
	return func() {}
}

func newTestApp(t *testing.T, reg *fakeRegistry) *App {
	t.Helper()
	connector := wallet.NewConnector(&fakeWalletProvider{accounts: []common.Address{testAccount}}, zap.NewNop())
	links := explorer.New(&config.ExplorerConfig{TxURLTemplate: "https://sepolia.etherscan.io/tx/{tx}"})

	a, err := New(connector, func(signer *bind.TransactOpts) (registry.Registry, error) {
		return reg, nil
	}, links, zap.NewNop())
	require.NoError(t, err)
	return a
}

func connectedApp(t *testing.T, reg *fakeRegistry) *App {
	t.Helper()
	a := newTestApp(t, reg)
	_, err := a.Connect(context.Background())
	require.NoError(t, err)
	return a
}

func validRegistration() (form.LotForm, form.LegalForm) {
	lot := form.LotForm{
		SeriesCode: "CODE-AB12CD34",
		MfgDate:    "2025-01-15",
		ExpDate:    "2027-01-15",
		Quantity:   "100",
	}
	lot.SetMedicineName("Paracetamol 500 mg")
	legal := form.LegalForm{FullName: "Maria Quispe", NationalID: "45678912"}
	return lot, legal
}

func TestRegisterLotRequiresConnection(t *testing.T) {
	a := newTestApp(t, &fakeRegistry{})
	lot, legal := validRegistration()

	_, err := a.RegisterLot(context.Background(), lot, legal)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRegisterLot(t *testing.T) {
	reg := &fakeRegistry{}
	a := connectedApp(t, reg)
	lot, legal := validRegistration()

	summary, err := a.RegisterLot(context.Background(), lot, legal)
	require.NoError(t, err)

	assert.Equal(t, "Paracetamol 500 mg", summary.MedicineName)
	assert.Equal(t, "CODE-AB12CD34", summary.SeriesCode)
	assert.Equal(t, testAccount, summary.Account)
	assert.Equal(t, testTxHash, summary.TxHash)
	assert.Equal(t, "https://sepolia.etherscan.io/tx/"+testTxHash.Hex(), summary.ExplorerURL)
	assert.Same(t, summary, a.LastRegistered())
	assert.Equal(t, 1, reg.registerCalls)
}

func TestRegisterLotValidationFailureNeverReachesContract(t *testing.T) {
	reg := &fakeRegistry{}
	a := connectedApp(t, reg)

	lot, legal := validRegistration()
	lot.Quantity = "0"

	_, err := a.RegisterLot(context.Background(), lot, legal)
	require.ErrorIs(t, err, form.ErrValidation)
	assert.Equal(t, 0, reg.registerCalls)
	assert.Nil(t, a.LastRegistered())
}

func TestRegisterLotRejectsDuplicateInFlight(t *testing.T) {
	reg := &fakeRegistry{
		blockWrites:  make(chan struct{}),
		writeStarted: make(chan struct{}),
	}
	a := connectedApp(t, reg)
	lot, legal := validRegistration()

	done := make(chan error, 1)
	go func() {
		_, err := a.RegisterLot(context.Background(), lot, legal)
		done <- err
	}()

	// Once the first call holds the guard, the duplicate must be turned away
	// without touching the contract again.
	<-reg.writeStarted
	_, err := a.RegisterLot(context.Background(), lot, legal)
	assert.ErrorIs(t, err, ErrBusy)

	close(reg.blockWrites)
	require.NoError(t, <-done)
	assert.Equal(t, 1, reg.registerCalls)
}

func TestTransferLot(t *testing.T) {
	reg := &fakeRegistry{}
	a := connectedApp(t, reg)

	result, err := a.TransferLot(context.Background(), form.TransferForm{
		SeriesCode: "CODE-AB12CD34",
		Recipient:  otherParty.Hex(),
		Quantity:   "25",
	})
	require.NoError(t, err)
	assert.Equal(t, testTxHash, result.Hash)
	assert.Equal(t, 1, reg.transferCalls)
}

func TestTransferLotValidationFailureNeverReachesContract(t *testing.T) {
	reg := &fakeRegistry{}
	a := connectedApp(t, reg)

	_, err := a.TransferLot(context.Background(), form.TransferForm{
		SeriesCode: "CODE-AB12CD34",
		Recipient:  "0x123",
		Quantity:   "25",
	})
	require.ErrorIs(t, err, form.ErrValidation)
	assert.Equal(t, 0, reg.transferCalls)
}

func TestTraceWorksWithoutConnection(t *testing.T) {
	reg := &fakeRegistry{lot: &model.Lot{
		Name:     "Paracetamol 500 mg",
		Owner:    testAccount,
		Exists:   true,
		Quantity: big.NewInt(100),
	}}
	a := newTestApp(t, reg)

	result, err := a.Trace(context.Background(), "CODE-AB12CD34")
	require.NoError(t, err)
	require.NotNil(t, result.Lot)
	assert.True(t, result.Lot.Exists)
	require.Len(t, result.Timeline, 1)
	assert.True(t, result.Timeline[0].IsCurrentOwner)
}

func TestRoleWrite(t *testing.T) {
	reg := &fakeRegistry{}
	a := connectedApp(t, reg)

	result, err := a.AssignRole(context.Background(), form.RoleForm{
		Role:    "DISTRIBUIDOR_ROLE",
		Address: otherParty.Hex(),
	})
	require.NoError(t, err)
	assert.Equal(t, testTxHash, result.Hash)

	_, err = a.RevokeRole(context.Background(), form.RoleForm{
		Role:    "DISTRIBUIDOR_ROLE",
		Address: otherParty.Hex(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.roleCalls)

	_, err = a.AssignRole(context.Background(), form.RoleForm{
		Role:    "SUPERUSER_ROLE",
		Address: otherParty.Hex(),
	})
	assert.ErrorIs(t, err, form.ErrValidation)
	assert.Equal(t, 2, reg.roleCalls)
}

func TestRoleMembership(t *testing.T) {
	reg := &fakeRegistry{held: map[model.Role]bool{
		model.RoleManufacturer: true,
		model.RolePharmacy:     true,
	}}
	a := newTestApp(t, reg)

	membership, err := a.RoleMembership(context.Background(), testAccount)
	require.NoError(t, err)
	assert.True(t, membership[model.RoleManufacturer])
	assert.True(t, membership[model.RolePharmacy])
	assert.False(t, membership[model.RoleAdmin])
	assert.False(t, membership[model.RoleDistributor])
}

func TestVisibleTabsBeforeConnect(t *testing.T) {
	a := newTestApp(t, &fakeRegistry{})

	tabs := a.VisibleTabs()
	require.Len(t, tabs, 1)
	assert.Equal(t, "consult", tabs[0].ID)
}

func TestVisibleTabsAfterConnect(t *testing.T) {
	reg := &fakeRegistry{held: map[model.Role]bool{model.RoleManufacturer: true}}
	a := connectedApp(t, reg)

	ids := make([]string, 0)
	for _, tab := range a.VisibleTabs() {
		ids = append(ids, tab.ID)
	}
	assert.Equal(t, []string{"consult", "register", "transfer"}, ids)
}
