package bot

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/config"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/dex/pumpswap"
)

func testConfig(t *testing.T, rpcURL string) *config.Config {
	t.Helper()
	return &config.Config{
		RPCURL:           rpcURL,
		Slippage:         config.DefaultSlippage,
		ComputeUnitLimit: config.DefaultComputeUnitLimit,
		ComputeUnitPrice: config.DefaultComputeUnitPrice,
		RPCTimeout:       config.DefaultRPCTimeout,
		ConfirmTimeout:   config.DefaultConfirmTimeout,
		MaxAttempts:      config.DefaultMaxAttempts,
		MaxElapsed:       config.DefaultMaxElapsed,
		LogFile:          filepath.Join(t.TempDir(), "bot.log"),
	}
}

func newTestRunner(t *testing.T, cfg *config.Config) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, true)
	require.NoError(t, err)
	t.Cleanup(r.Shutdown)
	return r
}

// poolRPC serves one pool account and its two vault balances.
func poolRPC(t *testing.T, pool solana.PublicKey, state *pumpswap.PoolState) *httptest.Server {
	t.Helper()
	data, err := state.Encode()
	require.NoError(t, err)

	balances := map[string]string{
		state.PoolBaseTokenAccount.String():  `{"amount":"1000000000000","decimals":6,"uiAmount":1000000.0,"uiAmountString":"1000000"}`,
		state.PoolQuoteTokenAccount.String(): `{"amount":"2270000000","decimals":9,"uiAmount":2.27,"uiAmountString":"2.27"}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params []json.RawMessage
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var key string
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params[0], &key)
		}

		var result string
		switch {
		case req.Method == "getAccountInfo" && key == pool.String():
			result = fmt.Sprintf(`{"context":{"slot":1},"value":{"data":[%q,"base64"],"executable":false,"lamports":3000000,"owner":%q,"rentEpoch":0,"space":%d}}`,
				base64.StdEncoding.EncodeToString(data), pumpswap.PumpSwapProgramID.String(), len(data))
		case req.Method == "getAccountInfo":
			result = `{"context":{"slot":1},"value":null}`
		case req.Method == "getTokenAccountBalance" && balances[key] != "":
			result = fmt.Sprintf(`{"context":{"slot":1},"value":%s}`, balances[key])
		default:
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32602,"message":"unexpected request"}}`, req.ID)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func samplePoolState() *pumpswap.PoolState {
	return &pumpswap.PoolState{
		Discriminator:         pumpswap.PoolDiscriminator,
		Bump:                  255,
		Creator:               solana.NewWallet().PublicKey(),
		BaseMint:              solana.NewWallet().PublicKey(),
		QuoteMint:             pumpswap.WSOLMint,
		LPMint:                solana.NewWallet().PublicKey(),
		PoolBaseTokenAccount:  solana.NewWallet().PublicKey(),
		PoolQuoteTokenAccount: solana.NewWallet().PublicKey(),
		CoinCreator:           solana.MustPublicKeyFromBase58("2rFmkf5q9fVz5gCu8rftfZnP8rF37sna3hDnu1YNyW3E"),
	}
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "ftp://rpc.example.com")
	_, err := NewRunner(cfg, true)
	assert.Error(t, err)

	cfg = testConfig(t, "https://rpc.example.com")
	cfg.PrivateKey = "not-a-key"
	_, err = NewRunner(cfg, true)
	assert.Error(t, err)
}

func TestRunner_WithoutWallet(t *testing.T) {
	r := newTestRunner(t, testConfig(t, "https://rpc.example.com"))

	_, err := r.Buy(context.Background())
	assert.ErrorIs(t, err, ErrNoWallet)

	_, err = r.CloseWSOL(context.Background(), solana.PublicKey{})
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestRunner_BuyRejectsInvalidTrade(t *testing.T) {
	cfg := testConfig(t, "https://rpc.example.com")
	cfg.PrivateKey = solana.NewWallet().PrivateKey.String()
	r := newTestRunner(t, cfg)

	// neither pool nor mint, no spend
	_, err := r.Buy(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trade")
}

func TestRunner_InspectPool(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	state := samplePoolState()
	srv := poolRPC(t, pool, state)

	cfg := testConfig(t, srv.URL)
	key := solana.NewWallet().PrivateKey
	cfg.PrivateKey = key.String()
	r := newTestRunner(t, cfg)

	report, err := r.InspectPool(context.Background(), pool, solana.PublicKey{})
	require.NoError(t, err)

	assert.Equal(t, pool, report.Address)
	assert.Equal(t, state.BaseMint, report.State.BaseMint)
	assert.InDelta(t, 1_000_000.0, report.Reserves.Base, 1e-9)
	assert.InDelta(t, 2.27, report.Reserves.Quote, 1e-9)

	require.NotNil(t, report.Accounts)
	wantATA, _, err := solana.FindAssociatedTokenAddress(key.PublicKey(), state.BaseMint)
	require.NoError(t, err)
	assert.Equal(t, wantATA, report.Accounts.UserBaseATA)
	assert.Equal(t, "6HpANPRTw85fgmSe8ozQmszvyNtR4pHBtkq9DAgqeSqi", report.Accounts.CoinCreatorVault.Address.String())

	wantFunding, err := solana.CreateWithSeed(key.PublicKey(), pumpswap.DefaultWSOLSeed, solana.TokenProgramID)
	require.NoError(t, err)
	assert.Equal(t, wantFunding, report.FundingAccount)
}

func TestRunner_InspectPoolErrors(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	srv := poolRPC(t, pool, samplePoolState())
	r := newTestRunner(t, testConfig(t, srv.URL))

	_, err := r.InspectPool(context.Background(), solana.PublicKey{}, solana.PublicKey{})
	assert.Error(t, err)

	// unknown pool address
	_, err = r.InspectPool(context.Background(), solana.NewWallet().PublicKey(), solana.PublicKey{})
	assert.Error(t, err)

	// read-only runner has no derived accounts
	report, err := r.InspectPool(context.Background(), pool, solana.PublicKey{})
	require.NoError(t, err)
	assert.Nil(t, report.Accounts)
}

func TestRunner_RunPassesContext(t *testing.T) {
	r := newTestRunner(t, testConfig(t, "https://rpc.example.com"))

	var inner context.Context
	boom := errors.New("boom")
	err := r.Run(context.Background(), func(ctx context.Context) error {
		inner = ctx
		assert.NoError(t, ctx.Err())
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, inner.Err(), context.Canceled)
}

func TestRunner_MetricsHandler(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	srv := poolRPC(t, pool, samplePoolState())
	r := newTestRunner(t, testConfig(t, srv.URL))

	_, err := r.InspectPool(context.Background(), pool, solana.PublicKey{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pumpswap_bot_pool_reserves")
	assert.Contains(t, rec.Body.String(), "pumpswap_bot_rpc_latency_seconds")
}
