package form

import (
	"strings"
	"testing"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

func validLotForm() LotForm {
	f := LotForm{
		SeriesCode: "CODE-AB12CD34",
		MfgDate:    "2025-01-15",
		ExpDate:    "2027-01-15",
		Quantity:   "100",
	}
	f.SetMedicineName("Paracetamol 500 mg")
	return f
}

func validLegalForm() LegalForm {
	return LegalForm{
		FullName:   "Maria Quispe",
		NationalID: "45678912",
		Phone:      "+51 999 888 777",
		Email:      "maria@farmacia.pe",
	}
}

func TestValidateLotSubmission(t *testing.T) {
	input, err := ValidateLotSubmission(validLotForm(), validLegalForm())
	require.NoError(t, err)

	assert.Equal(t, "Paracetamol 500 mg", input.Name)
	assert.Equal(t, "Paracetamol", input.ActiveIngredient)
	assert.Equal(t, "CODE-AB12CD34", input.SeriesCode)
	assert.Equal(t, int64(100), input.Quantity.Int64())
	assert.Equal(t, "Maria Quispe", input.Responsible.FullName)
	assert.Less(t, input.ManufactureDate, input.ExpiryDate)
}

func TestValidateLotSubmissionRejectsBadFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*LotForm, *LegalForm)
		field  string
	}{
		{"missing medicine", func(l *LotForm, _ *LegalForm) { l.SetMedicineName("") }, "medicine_name"},
		{"missing series code", func(l *LotForm, _ *LegalForm) { l.SeriesCode = "  " }, "series_code"},
		{"malformed mfg date", func(l *LotForm, _ *LegalForm) { l.MfgDate = "15/01/2025" }, "mfg_date"},
		{"malformed exp date", func(l *LotForm, _ *LegalForm) { l.ExpDate = "soon" }, "exp_date"},
		{"zero quantity", func(l *LotForm, _ *LegalForm) { l.Quantity = "0" }, "quantity"},
		{"negative quantity", func(l *LotForm, _ *LegalForm) { l.Quantity = "-5" }, "quantity"},
		{"fractional quantity", func(l *LotForm, _ *LegalForm) { l.Quantity = "2.5" }, "quantity"},
		{"missing responsible name", func(_ *LotForm, lg *LegalForm) { lg.FullName = "" }, "responsible_name"},
		{"missing responsible id", func(_ *LotForm, lg *LegalForm) { lg.NationalID = "" }, "responsible_id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lot, legal := validLotForm(), validLegalForm()
			tc.mutate(&lot, &legal)

			input, err := ValidateLotSubmission(lot, legal)
			assert.Nil(t, input)
			require.ErrorIs(t, err, ErrValidation)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestValidateLotSubmissionAllowsExpiryBeforeManufacture(t *testing.T) {
	// Date ordering is the contract's rule, not the form's.
	lot := validLotForm()
	lot.MfgDate = "2027-01-15"
	lot.ExpDate = "2025-01-15"

	_, err := ValidateLotSubmission(lot, validLegalForm())
	assert.NoError(t, err)
}

func TestValidateTransfer(t *testing.T) {
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	sub, err := ValidateTransfer(TransferForm{
		SeriesCode: "CODE-AB12CD34",
		Recipient:  recipient.Hex(),
		Quantity:   "25",
	})
	require.NoError(t, err)
	assert.Equal(t, recipient, sub.To)
	assert.Equal(t, int64(25), sub.Quantity.Int64())
}

func TestValidateTransferRejectsBadRecipient(t *testing.T) {
	for _, recipient := range []string{"", "0x123", "not-an-address"} {
		_, err := ValidateTransfer(TransferForm{
			SeriesCode: "CODE-AB12CD34",
			Recipient:  recipient,
			Quantity:   "25",
		})
		assert.ErrorIs(t, err, ErrValidation, "recipient %q", recipient)
	}
}

func TestValidateRole(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	sub, err := ValidateRole(RoleForm{Role: "FABRICANTE_ROLE", Address: addr.Hex()})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManufacturer, sub.Role)
	assert.Equal(t, addr, sub.Address)

	_, err = ValidateRole(RoleForm{Role: "SUPERUSER_ROLE", Address: addr.Hex()})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseAddressChecksum(t *testing.T) {
	checksummed := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed").Hex()

	addr, err := ParseAddress("address", checksummed)
	require.NoError(t, err)
	assert.Equal(t, checksummed, addr.Hex())

	// All-lowercase and all-uppercase inputs carry no checksum to verify.
	_, err = ParseAddress("address", strings.ToLower(checksummed))
	assert.NoError(t, err)
	_, err = ParseAddress("address", "0x"+strings.ToUpper(strings.TrimPrefix(checksummed, "0x")))
	assert.NoError(t, err)

	// Flipping the case of one checksummed letter must fail.
	broken := []rune(checksummed)
	for i := len(broken) - 1; i >= 2; i-- {
		if unicode.IsUpper(broken[i]) {
			broken[i] = unicode.ToLower(broken[i])
			break
		} else if unicode.IsLower(broken[i]) && broken[i] > '9' {
			broken[i] = unicode.ToUpper(broken[i])
			break
		}
	}
	_, err = ParseAddress("address", string(broken))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetMedicineNameAutofill(t *testing.T) {
	var f LotForm
	f.SetMedicineName("Amoxicilina 500 mg")
	assert.Equal(t, "Amoxicilina", f.ActiveIngredient)
	assert.NotEmpty(t, f.HealthReg)

	f.SetMedicineName("Unlisted 10 mg")
	assert.Empty(t, f.ActiveIngredient)
	assert.Empty(t, f.HealthReg)
}

func TestGenerateSeriesCode(t *testing.T) {
	var f LotForm
	code := f.GenerateSeriesCode()

	assert.Equal(t, code, f.SeriesCode)
	assert.True(t, strings.HasPrefix(code, "CODE-"))
	assert.Len(t, code, len("CODE-")+8)
	assert.Equal(t, code, strings.ToUpper(code))
	assert.NotEqual(t, code, f.GenerateSeriesCode())
}
