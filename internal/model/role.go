package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role is one of the four fixed capability tags managed by the registry
// contract. The string value is the on-chain role name whose keccak256 hash
// identifies the role in hasRole/asignarRol/revocarRol calls.
type Role string

const (
	RoleAdmin        Role = "ADMIN_ROLE"
	RoleManufacturer Role = "FABRICANTE_ROLE"
	RoleDistributor  Role = "DISTRIBUIDOR_ROLE"
	RolePharmacy     Role = "FARMACIA_ROLE"
)

// AllRoles returns every role the contract defines, in a stable order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManufacturer, RoleDistributor, RolePharmacy}
}

// Hash derives the on-chain role identifier (keccak256 of the role name).
// The contract getters return the same value; this local derivation is the
// fallback when they have not been queried yet.
func (r Role) Hash() common.Hash {
	return crypto.Keccak256Hash([]byte(r))
}

// Label returns the display name used by the role management surface.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleManufacturer:
		return "Fabricante"
	case RoleDistributor:
		return "Distribuidor"
	case RolePharmacy:
		return "Farmacia"
	}
	return string(r)
}
