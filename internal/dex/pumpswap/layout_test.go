package pumpswap

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePool returns a pool with distinct, recognisable keys.
func samplePool() *PoolState {
	key := func(b byte) solana.PublicKey {
		var k solana.PublicKey
		for i := range k {
			k[i] = b
		}
		return k
	}
	return &PoolState{
		Discriminator:         PoolDiscriminator,
		Bump:                  254,
		Index:                 0x0102,
		Creator:               key(1),
		BaseMint:              key(2),
		QuoteMint:             WSOLMint,
		LPMint:                key(4),
		PoolBaseTokenAccount:  key(5),
		PoolQuoteTokenAccount: key(6),
		LPSupply:              4_193_388_418_382,
		CoinCreator:           key(8),
	}
}

func TestPoolLayoutOffsets(t *testing.T) {
	assert.Equal(t, 243, PoolAccountSize)
	assert.Equal(t, 43, PoolBaseMintOffset)
	assert.Equal(t, 75, PoolQuoteMintOffset)
}

func TestDecodePool(t *testing.T) {
	want := samplePool()
	data, err := want.Encode()
	require.NoError(t, err)
	require.Len(t, data, PoolAccountSize)

	// поля лежат по ожидаемым смещениям
	assert.Equal(t, PoolDiscriminator[:], data[:8])
	assert.Equal(t, byte(254), data[8])
	assert.Equal(t, []byte{0x02, 0x01}, data[9:11])
	assert.Equal(t, want.BaseMint.Bytes(), data[PoolBaseMintOffset:PoolBaseMintOffset+32])
	assert.Equal(t, WSOLMint.Bytes(), data[PoolQuoteMintOffset:PoolQuoteMintOffset+32])

	got, err := DecodePool(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, IsPoolAccount(data))
}

// rawPool собирает аккаунт пула побайтово, без Encode.
func rawPool(tag [8]byte, bump byte, index uint16, keys [7]solana.PublicKey, supply uint64) []byte {
	data := make([]byte, 0, PoolAccountSize)
	data = append(data, tag[:]...)
	data = append(data, bump)
	data = binary.LittleEndian.AppendUint16(data, index)
	for _, k := range keys[:6] {
		data = append(data, k[:]...)
	}
	data = binary.LittleEndian.AppendUint64(data, supply)
	return append(data, keys[6][:]...)
}

func TestDecodePool_HandBuiltBytes(t *testing.T) {
	var keys [7]solana.PublicKey
	for i := range keys {
		keys[i] = solana.NewWallet().PublicKey()
	}

	tests := []struct {
		name   string
		tag    [8]byte
		bump   byte
		index  uint16
		supply uint64
	}{
		{name: "zero tag", tag: [8]byte{}, bump: 254, index: 0, supply: 4_195_261_632_540},
		{name: "pool tag", tag: PoolDiscriminator, bump: 255, index: 0xbeef, supply: 1},
		{name: "max supply", tag: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, bump: 0, index: 0xffff, supply: ^uint64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rawPool(tt.tag, tt.bump, tt.index, keys, tt.supply)
			require.Len(t, data, PoolAccountSize)

			pool, err := DecodePool(data)
			require.NoError(t, err)
			assert.Equal(t, tt.tag, pool.Discriminator)
			assert.Equal(t, tt.bump, pool.Bump)
			assert.Equal(t, tt.index, pool.Index)
			assert.Equal(t, keys[0], pool.Creator)
			assert.Equal(t, keys[1], pool.BaseMint)
			assert.Equal(t, keys[2], pool.QuoteMint)
			assert.Equal(t, keys[3], pool.LPMint)
			assert.Equal(t, keys[4], pool.PoolBaseTokenAccount)
			assert.Equal(t, keys[5], pool.PoolQuoteTokenAccount)
			assert.Equal(t, tt.supply, pool.LPSupply)
			assert.Equal(t, keys[6], pool.CoinCreator)
			assert.Equal(t, tt.tag == PoolDiscriminator, IsPoolAccount(data))
		})
	}
}

func TestDecodePool_RoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		data := make([]byte, PoolAccountSize)
		rng.Read(data)

		pool, err := DecodePool(data)
		require.NoError(t, err)

		encoded, err := pool.Encode()
		require.NoError(t, err)
		assert.Equal(t, data, encoded)
	}
}

func TestDecodePool_InvalidLength(t *testing.T) {
	valid, err := samplePool().Encode()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "empty", data: []byte{}},
		{name: "discriminator only", data: valid[:8]},
		{name: "237 bytes", data: valid[:237]},
		{name: "one short", data: valid[:PoolAccountSize-1]},
		{name: "one long", data: append(append([]byte{}, valid...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := DecodePool(tt.data)
			assert.Nil(t, pool)
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr))
		})
	}
}

func TestDecodePool_DiscriminatorNotValidated(t *testing.T) {
	data, err := samplePool().Encode()
	require.NoError(t, err)
	data[0] ^= 0xff

	pool, err := DecodePool(data)
	require.NoError(t, err)
	assert.False(t, IsPoolAccount(data))
	assert.Equal(t, samplePool().BaseMint, pool.BaseMint)
}

func TestDecodePoolAccount_TruncatesTrailingFields(t *testing.T) {
	data, err := samplePool().Encode()
	require.NoError(t, err)
	extended := append(append([]byte{}, data...), make([]byte, 57)...)

	pool, err := decodePoolAccount(extended)
	require.NoError(t, err)
	assert.Equal(t, samplePool(), pool)
}

func TestPoolAddressRendersBase58(t *testing.T) {
	addr := solana.MustPublicKeyFromBase58("2rFmkf5q9fVz5gCu8rftfZnP8rF37sna3hDnu1YNyW3E")
	assert.Equal(t, "2rFmkf5q9fVz5gCu8rftfZnP8rF37sna3hDnu1YNyW3E", addr.String())
}
