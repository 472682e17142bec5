// Package txerr defines the error taxonomy shared by every stage of the
// Ethereum-to-Godwoken transcoder, so callers can distinguish failure kinds
// with errors.As instead of parsing message strings.
package txerr

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DecodeError covers malformed RLP, wrong field count, bad Polyjuice magic,
// input-size mismatches, and Polyjuice args values that cannot be encoded.
// Oversized transactions are a ValidationError with SubkindSize.
type DecodeError struct {
	Context string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Context, e.Cause)
	}
	return fmt.Sprintf("decode error: %s", e.Context)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// NewDecodeError builds a DecodeError wrapping cause with a human context.
func NewDecodeError(context string, cause error) *DecodeError {
	return &DecodeError{Context: context, Cause: cause}
}

// SignatureError covers recovery failure and bad recovery ids.
type SignatureError struct {
	Context string
	Cause   error
}

func (e *SignatureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("signature error: %s: %v", e.Context, e.Cause)
	}
	return fmt.Sprintf("signature error: %s", e.Context)
}

func (e *SignatureError) Unwrap() error { return e.Cause }

func NewSignatureError(context string, cause error) *SignatureError {
	return &SignatureError{Context: context, Cause: cause}
}

// ValidationSubkind distinguishes the validator that rejected a transaction.
type ValidationSubkind string

const (
	SubkindGasLimit     ValidationSubkind = "gas_limit"
	SubkindGasPrice     ValidationSubkind = "gas_price"
	SubkindIntrinsicGas ValidationSubkind = "intrinsic_gas"
	SubkindSize         ValidationSubkind = "size"
)

// ValidationError carries a context breadcrumb that later stages may extend
// with WithContext without losing the root cause or its subkind.
type ValidationError struct {
	Subkind ValidationSubkind
	Context string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error [%s]: %s: %v", e.Subkind, e.Context, e.Cause)
	}
	return fmt.Sprintf("validation error [%s]: %s", e.Subkind, e.Context)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// WithContext prepends an additional breadcrumb, preserving subkind and cause.
func (e *ValidationError) WithContext(prefix string) *ValidationError {
	return &ValidationError{
		Subkind: e.Subkind,
		Context: prefix + ": " + e.Context,
		Cause:   e.Cause,
	}
}

// NewValidationError builds a ValidationError of the given subkind.
func NewValidationError(subkind ValidationSubkind, context string) *ValidationError {
	return &ValidationError{Subkind: subkind, Context: context}
}

// InsufficientBalance is returned when from's balance cannot cover value +
// gasLimit*gasPrice.
type InsufficientBalance struct {
	Required *big.Int
	Got      *big.Int
	Address  common.Address
}

func (e *InsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance for %s: required %s, got %s",
		e.Address.Hex(), e.Required.String(), e.Got.String())
}

// RecipientNotFound is returned when a regular contract call targets an
// address with no resolvable account id.
type RecipientNotFound struct {
	Address common.Address
}

func (e *RecipientNotFound) Error() string {
	return fmt.Sprintf("recipient not found: %s", e.Address.Hex())
}

// UpstreamError is an opaque wrapper around rollup RPC transport failures.
// It is never retried at the transcoder layer.
type UpstreamError struct {
	Context string
	Cause   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %s: %v", e.Context, e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// NewUpstreamError wraps cause as an UpstreamError with the given context.
func NewUpstreamError(context string, cause error) *UpstreamError {
	return &UpstreamError{Context: context, Cause: cause}
}

// ConfigError signals missing or malformed required configuration at
// startup. It is never surfaced on request-time paths.
type ConfigError struct {
	Context string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Context, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Context)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func NewConfigError(context string, cause error) *ConfigError {
	return &ConfigError{Context: context, Cause: cause}
}
