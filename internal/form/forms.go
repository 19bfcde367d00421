// Package form holds the user-entered field state for each registry action
// and validates it at submission time, before anything reaches the contract
// facade.
package form

import (
	"strings"

	"github.com/google/uuid"
)

// LotForm holds the technical fields of a lot registration. Values stay as
// entered; validation happens only on submit.
type LotForm struct {
	MedicineName     string
	ActiveIngredient string
	SeriesCode       string
	MfgDate          string // YYYY-MM-DD
	ExpDate          string // YYYY-MM-DD
	HealthReg        string
	Quantity         string
}

// SetMedicineName selects a catalog entry and auto-fills the dependent
// fields. Unknown names clear them.
func (f *LotForm) SetMedicineName(name string) {
	f.MedicineName = name
	if med, ok := LookupMedicine(name); ok {
		f.ActiveIngredient = med.ActiveIngredient
		f.HealthReg = med.HealthRegistration
		return
	}
	f.ActiveIngredient = ""
	f.HealthReg = ""
}

// GenerateSeriesCode fills SeriesCode with a fresh human-readable batch code.
func (f *LotForm) GenerateSeriesCode() string {
	f.SeriesCode = "CODE-" + strings.ToUpper(uuid.NewString()[:8])
	return f.SeriesCode
}

// LegalForm holds the legal representative fields.
type LegalForm struct {
	FullName   string
	NationalID string
	Phone      string
	Email      string
}

// TransferForm holds the fields of a lot transfer.
type TransferForm struct {
	SeriesCode string
	Recipient  string
	Quantity   string
}

// RoleForm holds the fields of a role grant or revocation.
type RoleForm struct {
	Role    string
	Address string
}
