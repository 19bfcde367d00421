// Package session tracks the connected account, its on-chain role
// memberships and which navigation tabs those roles unlock.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

// RoleClient is the registry subset needed for membership queries.
type RoleClient interface {
	RoleHash(ctx context.Context, role model.Role) (common.Hash, error)
	HasRole(ctx context.Context, role common.Hash, addr common.Address) (bool, error)
}

// Tab is a navigation destination gated by role membership. An empty
// Required set means the tab is public.
type Tab struct {
	ID       string
	Label    string
	Required []model.Role
}

// DefaultTabs is the navigation of the shell. Consultation is public;
// registration belongs to manufacturers, transfers to any operative role,
// role administration to admins.
func DefaultTabs() []Tab {
	return []Tab{
		{ID: "consult", Label: "Consultar Medicamentos"},
		{ID: "register", Label: "Registrar Lote", Required: []model.Role{model.RoleManufacturer}},
		{ID: "transfer", Label: "Realizar Transferencia", Required: []model.Role{model.RoleManufacturer, model.RoleDistributor, model.RolePharmacy}},
		{ID: "roles", Label: "Administración de Roles", Required: []model.Role{model.RoleAdmin}},
	}
}

// Session is the in-memory state derived from the connected account. It is
// never persisted; a reload starts from scratch.
type Session struct {
	client RoleClient
	logger *zap.Logger

	mu         sync.Mutex
	address    common.Address
	active     bool
	generation uint64
	loading    bool

	roles       map[model.Role]bool
	roleHashes  map[model.Role]common.Hash
	rolesLoaded bool
	roleErr     error
}

func New(client RoleClient, logger *zap.Logger) *Session {
	return &Session{
		client: client,
		logger: logger,
		roles:  make(map[model.Role]bool),
	}
}

// SetAccount makes addr the active identity and invalidates any role data
// and in-flight queries belonging to the previous one.
func (s *Session) SetAccount(addr common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = addr
	s.active = true
	s.generation++
	s.resetRolesLocked()
}

// Clear drops the session entirely (disconnect or access withdrawal).
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = common.Address{}
	s.active = false
	s.generation++
	s.resetRolesLocked()
}

func (s *Session) resetRolesLocked() {
	s.roles = make(map[model.Role]bool)
	s.roleHashes = nil
	s.rolesLoaded = false
	s.roleErr = nil
}

// Address returns the active account and whether a session exists.
func (s *Session) Address() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address, s.active
}

// LoadRoles queries membership for every role concurrently. A second call
// while one is outstanding is a no-op. If the account changes while the
// query is in flight, the stale result is discarded instead of committed.
// On failure the session holds no roles at all: gating fails closed.
func (s *Session) LoadRoles(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return fmt.Errorf("no active session")
	}
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	generation := s.generation
	address := s.address
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	roles := make(map[model.Role]bool, len(model.AllRoles()))
	hashes := make(map[model.Role]common.Hash, len(model.AllRoles()))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, role := range model.AllRoles() {
		role := role
		g.Go(func() error {
			hash, err := s.client.RoleHash(gctx, role)
			if err != nil {
				return err
			}
			member, err := s.client.HasRole(gctx, hash, address)
			if err != nil {
				return err
			}
			mu.Lock()
			roles[role] = member
			hashes[role] = hash
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		// The identity changed while the query was outstanding; this answer
		// belongs to a session that no longer exists.
		s.logger.Debug("Discarding stale role query result",
			zap.String("address", address.Hex()))
		return nil
	}

	if err != nil {
		s.resetRolesLocked()
		s.roleErr = err
		s.logger.Error("Role query failed, hiding all gated tabs", zap.Error(err))
		return fmt.Errorf("failed to load roles for %s: %w", address.Hex(), err)
	}

	s.roles = roles
	s.roleHashes = hashes
	s.rolesLoaded = true
	s.roleErr = nil

	return nil
}

// HasRole reports membership from the last successful load.
func (s *Session) HasRole(role model.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolesLoaded && s.roles[role]
}

// RoleHash returns the contract-supplied role identifier, falling back to
// the local keccak derivation when roles have not been loaded.
func (s *Session) RoleHash(role model.Role) common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hash, ok := s.roleHashes[role]; ok {
		return hash
	}
	return role.Hash()
}

// RoleError returns the failure of the last load, if any.
func (s *Session) RoleError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roleErr
}

// VisibleTabs filters tabs by held roles. While roles are pending or after a
// failed query, gated tabs are hidden entirely, never shown disabled: a tab
// on screen must mean a capability the account actually has.
func (s *Session) VisibleTabs(tabs []Tab) []Tab {
	s.mu.Lock()
	loaded := s.rolesLoaded
	roles := s.roles
	s.mu.Unlock()

	visible := make([]Tab, 0, len(tabs))
	for _, tab := range tabs {
		if len(tab.Required) == 0 {
			visible = append(visible, tab)
			continue
		}
		if !loaded {
			continue
		}
		for _, role := range tab.Required {
			if roles[role] {
				visible = append(visible, tab)
				break
			}
		}
	}
	return visible
}

// ActiveTab keeps current if it is still visible, otherwise falls back to
// the first available tab, or "" when none remain.
func (s *Session) ActiveTab(tabs []Tab, current string) string {
	visible := s.VisibleTabs(tabs)
	for _, tab := range visible {
		if tab.ID == current {
			return current
		}
	}
	if len(visible) > 0 {
		return visible[0].ID
	}
	return ""
}
