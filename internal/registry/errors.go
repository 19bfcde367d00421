package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const genericRevertReason = "execution reverted"

// RevertError reports a write rejected by the contract's business rules.
// Reason carries the contract-supplied text verbatim when one could be
// extracted, so the user sees the same message the contract emitted.
type RevertError struct {
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("transaction reverted: %s", e.Reason)
}

func (e *RevertError) Unwrap() error { return e.Err }

// newRevertError maps a provider error onto RevertError, choosing the reason
// by preference: ABI-encoded Error(string) payload, the node's short
// "execution reverted: ..." message, then the raw error text, then a generic
// fallback.
func newRevertError(err error) *RevertError {
	return &RevertError{Reason: revertReason(err), Err: err}
}

func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := decodeRevertData(dataErr.ErrorData()); ok {
			return reason
		}
	}
	if err == nil {
		return genericRevertReason
	}
	msg := err.Error()
	if idx := strings.Index(msg, genericRevertReason); idx >= 0 {
		short := strings.TrimPrefix(msg[idx+len(genericRevertReason):], ":")
		if short = strings.TrimSpace(short); short != "" {
			return short
		}
	}
	if msg != "" {
		return msg
	}
	return genericRevertReason
}

// decodeRevertData unpacks the standard solidity Error(string) payload
// carried in the RPC error data field.
func decodeRevertData(data interface{}) (string, bool) {
	hexStr, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hexutil.Decode(hexStr)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return reason, true
}
