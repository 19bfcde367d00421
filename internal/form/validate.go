package form

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/registry"
)

// ErrValidation is the sentinel all submission-validation failures match via
// errors.Is.
var ErrValidation = errors.New("validation failed")

const dateLayout = "2006-01-02"

// ValidationError is a field-specific submission problem. It resolves
// locally; a failing form never produces a contract call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransferSubmission is a validated transfer form.
type TransferSubmission struct {
	SeriesCode string
	To         common.Address
	Quantity   *big.Int
}

// RoleSubmission is a validated role form.
type RoleSubmission struct {
	Role    model.Role
	Address common.Address
}

// ValidateLotSubmission checks the lot and legal forms together and produces
// the registration input for the facade. Manufacture-before-expiry ordering
// is intentionally not checked here; that rule belongs to the contract.
func ValidateLotSubmission(lot LotForm, legal LegalForm) (*registry.RegistrationInput, error) {
	if strings.TrimSpace(lot.MedicineName) == "" {
		return nil, invalid("medicine_name", "select a medicine")
	}
	if strings.TrimSpace(lot.SeriesCode) == "" {
		return nil, invalid("series_code", "series code is required")
	}

	mfg, err := parseDate("mfg_date", lot.MfgDate)
	if err != nil {
		return nil, err
	}
	exp, err := parseDate("exp_date", lot.ExpDate)
	if err != nil {
		return nil, err
	}

	quantity, err := parseQuantity(lot.Quantity)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(legal.FullName)
	id := strings.TrimSpace(legal.NationalID)
	if name == "" {
		return nil, invalid("responsible_name", "responsible party name is required")
	}
	if id == "" {
		return nil, invalid("responsible_id", "responsible party national id is required")
	}

	return &registry.RegistrationInput{
		Name:             lot.MedicineName,
		ActiveIngredient: lot.ActiveIngredient,
		ManufactureDate:  mfg.Unix(),
		ExpiryDate:       exp.Unix(),
		SeriesCode:       strings.TrimSpace(lot.SeriesCode),
		Responsible: model.ResponsibleParty{
			FullName:   name,
			NationalID: id,
			Phone:      strings.TrimSpace(legal.Phone),
			Email:      strings.TrimSpace(legal.Email),
		},
		Quantity: quantity,
	}, nil
}

// ValidateTransfer checks a transfer form.
func ValidateTransfer(f TransferForm) (*TransferSubmission, error) {
	code := strings.TrimSpace(f.SeriesCode)
	if code == "" {
		return nil, invalid("series_code", "series code is required")
	}

	to, err := ParseAddress("recipient", f.Recipient)
	if err != nil {
		return nil, err
	}

	quantity, err := parseQuantity(f.Quantity)
	if err != nil {
		return nil, err
	}

	return &TransferSubmission{SeriesCode: code, To: to, Quantity: quantity}, nil
}

// ValidateRole checks a role form.
func ValidateRole(f RoleForm) (*RoleSubmission, error) {
	role := model.Role(strings.TrimSpace(f.Role))
	known := false
	for _, r := range model.AllRoles() {
		if r == role {
			known = true
			break
		}
	}
	if !known {
		return nil, invalid("role", fmt.Sprintf("unknown role %q", f.Role))
	}

	addr, err := ParseAddress("address", f.Address)
	if err != nil {
		return nil, err
	}

	return &RoleSubmission{Role: role, Address: addr}, nil
}

// ParseAddress validates a 0x-prefixed address, enforcing the EIP-55
// checksum when the input uses mixed case.
func ParseAddress(field, value string) (common.Address, error) {
	s := strings.TrimSpace(value)
	if !common.IsHexAddress(s) {
		return common.Address{}, invalid(field, "not a valid address")
	}

	addr := common.HexToAddress(s)
	hexPart := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) {
		if addr.Hex() != "0x"+hexPart {
			return common.Address{}, invalid(field, "address checksum mismatch")
		}
	}
	return addr, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invalid(field, "enter a valid date (YYYY-MM-DD)")
	}
	return t, nil
}

func parseQuantity(value string) (*big.Int, error) {
	quantity, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, invalid("quantity", "enter a whole number")
	}
	if quantity.Sign() <= 0 {
		return nil, invalid("quantity", "quantity must be greater than zero")
	}
	return quantity, nil
}
