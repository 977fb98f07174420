// Package solanatxtest builds wire-format transactions for tests.
package solanatxtest

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// NewKey returns a fresh random ed25519 key pair.
func NewKey(t testing.TB) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

// Build returns an unsigned transaction paid by payer with one instruction per program.
// Signature slots are zero filled, the way wallets serialize unsigned transactions.
func Build(t testing.TB, payer solana.PublicKey, programs ...solana.PublicKey) *solana.Transaction {
	t.Helper()

	instructions := make([]solana.Instruction, 0, len(programs))
	for _, program := range programs {
		instructions = append(instructions, solana.NewInstruction(
			program,
			solana.AccountMetaSlice{solana.NewAccountMeta(payer, true, true)},
			[]byte{0x01, 0x02},
		))
	}

	tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	return tx
}

// Raw serializes tx to its wire format.
func Raw(t testing.TB, tx *solana.Transaction) []byte {
	t.Helper()
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}
