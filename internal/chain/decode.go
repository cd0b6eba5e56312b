package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// UserRejectedCode is the EIP-1193 code for a request the wallet owner declined.
const UserRejectedCode = 4001

// RejectedError reports a signature request declined by the wallet owner.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "user rejected the request"
	}
	return "user rejected the request: " + e.Reason
}

// ErrorCode implements rpc.Error.
func (e *RejectedError) ErrorCode() int {
	return UserRejectedCode
}

// IsUserRejected reports whether err, or any error it wraps, carries code 4001.
func IsUserRejected(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == UserRejectedCode
}

// Decoder turns submission failures into readable reasons.
type Decoder struct {
	custom map[[4]byte]abi.Error
}

// NewDecoder knows the custom errors declared in contractABI.
func NewDecoder(contractABI abi.ABI) *Decoder {
	d := &Decoder{custom: make(map[[4]byte]abi.Error, len(contractABI.Errors))}
	for _, e := range contractABI.Errors {
		var sel [4]byte
		copy(sel[:], e.ID[:4])
		d.custom[sel] = e
	}
	return d
}

// Reason decodes revert data attached to err. Errors without revert data are
// reported by their message.
func (d *Decoder) Reason(err error) string {
	if err == nil {
		return ""
	}

	data := revertData(err)
	if len(data) >= 4 {
		if reason, uerr := abi.UnpackRevert(data); uerr == nil {
			return reason
		}

		var sel [4]byte
		copy(sel[:], data[:4])
		if e, ok := d.custom[sel]; ok {
			args, uerr := e.Unpack(data)
			if uerr != nil {
				return e.Name
			}
			return formatCustomError(e.Name, args)
		}
	}
	return err.Error()
}

func revertData(err error) []byte {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil
	}
	switch v := dataErr.ErrorData().(type) {
	case string:
		return common.FromHex(v)
	case []byte:
		return v
	}
	return nil
}

func formatCustomError(name string, args interface{}) string {
	values, ok := args.([]interface{})
	if !ok {
		return name
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
