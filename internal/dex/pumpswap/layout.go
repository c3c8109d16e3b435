// internal/dex/pumpswap/layout.go
package pumpswap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// PoolDiscriminator is the anchor account tag of Pool accounts.
var PoolDiscriminator = [8]byte{241, 154, 109, 4, 17, 177, 109, 188}

const (
	discriminatorSize = 8
	pubkeySize        = 32

	// PoolAccountSize is the exact length of a pool account:
	// tag, u8 bump, u16 index, 6 pubkeys, u64 lp supply, coin creator pubkey.
	PoolAccountSize = discriminatorSize + 1 + 2 + 6*pubkeySize + 8 + pubkeySize

	// Offsets used by getProgramAccounts memcmp filters.
	PoolBaseMintOffset  = discriminatorSize + 1 + 2 + pubkeySize
	PoolQuoteMintOffset = PoolBaseMintOffset + pubkeySize
)

// PoolState is a decoded snapshot of a PumpSwap pool account.
type PoolState struct {
	Discriminator [8]byte

	Bump                  uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64
	CoinCreator           solana.PublicKey
}

// IsPoolAccount reports whether data carries the Pool account tag.
func IsPoolAccount(data []byte) bool {
	return len(data) >= discriminatorSize && bytes.Equal(data[:discriminatorSize], PoolDiscriminator[:])
}

// DecodePool decodes a raw pool account. The tag is kept but not checked.
func DecodePool(data []byte) (*PoolState, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty account data")}
	}
	if len(data) != PoolAccountSize {
		return nil, &DecodeError{
			Length: len(data),
			Err:    fmt.Errorf("expected %d bytes", PoolAccountSize),
		}
	}

	d := poolDecoder{dec: bin.NewBinDecoder(data), length: len(data)}
	pool := &PoolState{}

	copy(pool.Discriminator[:], d.bytes("discriminator", discriminatorSize))
	pool.Bump = d.u8("bump")
	pool.Index = d.u16("index")
	pool.Creator = d.pubkey("creator")
	pool.BaseMint = d.pubkey("base_mint")
	pool.QuoteMint = d.pubkey("quote_mint")
	pool.LPMint = d.pubkey("lp_mint")
	pool.PoolBaseTokenAccount = d.pubkey("pool_base_token_account")
	pool.PoolQuoteTokenAccount = d.pubkey("pool_quote_token_account")
	pool.LPSupply = d.u64("lp_supply")
	pool.CoinCreator = d.pubkey("coin_creator")

	if d.err != nil {
		return nil, d.err
	}
	return pool, nil
}

// Encode writes the pool back in account layout.
func (p *PoolState) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(PoolAccountSize)
	enc := bin.NewBinEncoder(buf)

	steps := []func() error{
		func() error { return enc.WriteBytes(p.Discriminator[:], false) },
		func() error { return enc.WriteUint8(p.Bump) },
		func() error { return enc.WriteUint16(p.Index, binary.LittleEndian) },
		func() error { return enc.WriteBytes(p.Creator[:], false) },
		func() error { return enc.WriteBytes(p.BaseMint[:], false) },
		func() error { return enc.WriteBytes(p.QuoteMint[:], false) },
		func() error { return enc.WriteBytes(p.LPMint[:], false) },
		func() error { return enc.WriteBytes(p.PoolBaseTokenAccount[:], false) },
		func() error { return enc.WriteBytes(p.PoolQuoteTokenAccount[:], false) },
		func() error { return enc.WriteUint64(p.LPSupply, binary.LittleEndian) },
		func() error { return enc.WriteBytes(p.CoinCreator[:], false) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("encode pool: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// poolDecoder keeps the first error and turns every later read into a no-op.
type poolDecoder struct {
	dec    *bin.Decoder
	length int
	err    error
}

func (d *poolDecoder) fail(field string, err error) {
	if d.err == nil {
		d.err = &DecodeError{Field: field, Length: d.length, Err: err}
	}
}

func (d *poolDecoder) bytes(field string, n int) []byte {
	if d.err != nil {
		return nil
	}
	out, err := d.dec.ReadNBytes(n)
	if err != nil {
		d.fail(field, err)
		return nil
	}
	return out
}

func (d *poolDecoder) u8(field string) uint8 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint8()
	if err != nil {
		d.fail(field, err)
	}
	return v
}

func (d *poolDecoder) u16(field string) uint16 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint16(binary.LittleEndian)
	if err != nil {
		d.fail(field, err)
	}
	return v
}

func (d *poolDecoder) u64(field string) uint64 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		d.fail(field, err)
	}
	return v
}

func (d *poolDecoder) pubkey(field string) solana.PublicKey {
	raw := d.bytes(field, pubkeySize)
	if raw == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(raw)
}
