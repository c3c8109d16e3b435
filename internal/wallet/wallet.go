// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet представляет кошелёк Solana, которым подписываются покупки.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.RWMutex
	ataCache map[solana.PublicKey]solana.PublicKey // mint -> ATA
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBase58 = strings.TrimSpace(privateKeyBase58)
	if privateKeyBase58 == "" {
		return nil, errors.New("private key is empty")
	}
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}, nil
}

// SignTransaction подписывает транзакцию с помощью приватного ключа кошелька.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// GetATA возвращает адрес ассоциированного токен-аккаунта (ATA) для заданного токена (mint).
// Если адрес уже был вычислен ранее, возвращается значение из кеша.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.RLock()
	ata, ok := w.ataCache[mint]
	w.mu.RUnlock()
	if ok {
		return ata, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	w.mu.Lock()
	w.ataCache[mint] = ata
	w.mu.Unlock()
	return ata, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
