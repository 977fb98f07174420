// Package solanatx decodes caller-submitted Solana transactions and extracts
// the programs they invoke.
package solanatx

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Encoding names accepted for transaction payloads
const (
	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

var ErrMalformed = errors.New("malformed transaction")

// DecodePayload turns the textual transaction sent by a caller into raw bytes.
// An empty encoding means hex.
func DecodePayload(payload, encoding string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	switch strings.ToLower(encoding) {
	case "", EncodingHex:
		raw, err := hex.DecodeString(strings.TrimPrefix(payload, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid hex: %v", ErrMalformed, err)
		}
		return raw, nil
	case EncodingBase64:
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64: %v", ErrMalformed, err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrMalformed, encoding)
	}
}

// EncodePayload is the inverse of DecodePayload
func EncodePayload(raw []byte, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingHex:
		return hex.EncodeToString(raw), nil
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(raw), nil
	default:
		return "", fmt.Errorf("%w: unsupported encoding %q", ErrMalformed, encoding)
	}
}

// Decode parses a wire-format transaction (legacy or v0). Trailing bytes,
// transactions without instructions and program indexes outside the static
// account keys are rejected.
func Decode(raw []byte) (*solana.Transaction, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty transaction", ErrMalformed)
	}

	decoder := bin.NewBinDecoder(raw)
	tx, err := solana.TransactionFromDecoder(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if decoder.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, decoder.Remaining())
	}
	if len(tx.Message.Instructions) == 0 {
		return nil, fmt.Errorf("%w: no instructions", ErrMalformed)
	}
	if _, err := ProgramIDs(tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// ProgramIDs returns the program invoked by each instruction, in instruction order.
func ProgramIDs(tx *solana.Transaction) ([]solana.PublicKey, error) {
	keys := tx.Message.AccountKeys
	programs := make([]solana.PublicKey, 0, len(tx.Message.Instructions))

	for i, ix := range tx.Message.Instructions {
		idx := int(ix.ProgramIDIndex)
		if idx >= len(keys) {
			return nil, fmt.Errorf("%w: instruction %d references account index %d of %d", ErrMalformed, i, idx, len(keys))
		}
		programs = append(programs, keys[idx])
	}

	return programs, nil
}

// SignerIndex returns the signature slot of address, or -1 when address is not a required signer.
func SignerIndex(tx *solana.Transaction, address solana.PublicKey) int {
	required := int(tx.Message.Header.NumRequiredSignatures)
	for i, key := range tx.Message.AccountKeys {
		if i >= required {
			break
		}
		if key.Equals(address) {
			return i
		}
	}
	return -1
}
