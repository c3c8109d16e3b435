package wallet

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: key.String()},
		{name: "valid with whitespace", input: "  " + key.String() + "\n"},
		{name: "empty", input: "", wantErr: true},
		{name: "not base58", input: "0OIl", wantErr: true},
		{name: "wrong length", input: base58.Encode(make([]byte, 32)), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWallet(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, w)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, key.PublicKey(), w.PublicKey)
			assert.Equal(t, key.PublicKey().String(), w.String())
		})
	}
}

func TestWallet_SignTransaction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(key.String())
	require.NoError(t, err)

	ix := solana.NewInstruction(solana.SystemProgramID, []*solana.AccountMeta{
		solana.NewAccountMeta(w.PublicKey, true, true),
	}, []byte{2, 0, 0, 0})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(w.PublicKey))
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestWallet_GetATA(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(key.String())
	require.NoError(t, err)

	mint := solana.WrappedSol
	want, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := w.GetATA(mint)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
