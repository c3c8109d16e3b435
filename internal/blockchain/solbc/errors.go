// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrAccountNotFound возникает, когда аккаунт отсутствует в сети
	ErrAccountNotFound = errors.New("account not found")

	// ErrRateLimit возникает при превышении лимита запросов
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")

	// ErrConnectionFailed возникает при ошибке подключения
	ErrConnectionFailed = errors.New("connection failed")

	// ErrTransactionFailed возникает, когда транзакция попала в блок с ошибкой
	ErrTransactionFailed = errors.New("transaction failed on chain")
)

// RPCError представляет ошибку RPC с дополнительным контекстом
type RPCError struct {
	Method string
	Err    error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Method, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *RPCError) Unwrap() error {
	return e.Err
}

// newRPCError classifies err by its text and wraps it with the method name.
func newRPCError(method string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit"):
		err = fmt.Errorf("%w: %v", ErrRateLimit, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") || strings.Contains(msg, "eof"):
		err = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return &RPCError{Method: method, Err: err}
}

// IsRetryableError определяет, имеет ли смысл повторить запрос
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrConnectionFailed) {
		return true
	}
	if IsBlockhashNotFoundError(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "502 Bad Gateway") ||
		strings.Contains(msg, "503 Service Unavailable") ||
		strings.Contains(msg, "504 Gateway Timeout")
}

// IsBlockhashNotFoundError сообщает, что узел не знает blockhash транзакции.
// Такая транзакция не была принята этим узлом.
func IsBlockhashNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "BlockhashNotFound") || strings.Contains(msg, "Blockhash not found")
}

// IsAlreadyProcessedError сообщает, что транзакция с этой подписью уже обработана.
func IsAlreadyProcessedError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "AlreadyProcessed") || strings.Contains(msg, "already been processed")
}

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound)
}
