package pumpswap

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/blockchain"
)

// fakeChain is an in-memory stand-in for the RPC client.
type fakeChain struct {
	mu sync.Mutex

	accounts        map[solana.PublicKey]*rpc.Account
	balances        map[solana.PublicKey]*blockchain.TokenBalance
	programAccounts rpc.GetProgramAccountsResult
	rent            uint64

	// errors consumed in order, one per call; nil entries mean success
	blockhashErrs []error
	sendErrs      []error
	confirmErr    error
	balanceErr    error
	existsErr     error
	statusErr     error

	// подписи, о которых "знает" сеть; knowReceived добавляет все полученные
	knownSigs    map[solana.Signature]bool
	knowReceived bool

	blockhashCalls int
	received       []*solana.Transaction // every send call, failed ones included
	sent           []*solana.Transaction
	confirmCalls   int
	statusCalls    int
	programQueries []*rpc.GetProgramAccountsOpts
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts: map[solana.PublicKey]*rpc.Account{},
		balances:  map[solana.PublicKey]*blockchain.TokenBalance{},
		knownSigs: map[solana.Signature]bool{},
		rent:      2_039_280,
	}
}

func (f *fakeChain) putAccount(key, owner solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[key] = &rpc.Account{
		Lamports: 1,
		Owner:    owner,
		Data:     rpc.DataBytesOrJSONFromBytes(data),
	}
}

func (f *fakeChain) popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeChain) GetRecentBlockhash(_ context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockhashCalls++
	if err := f.popErr(&f.blockhashErrs); err != nil {
		return solana.Hash{}, err
	}
	var h solana.Hash
	h[0] = byte(f.blockhashCalls)
	return h, nil
}

func (f *fakeChain) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !opts.SkipPreflight {
		return solana.Signature{}, fmt.Errorf("preflight must be skipped")
	}
	f.received = append(f.received, tx)
	if f.knowReceived {
		f.knownSigs[tx.Signatures[0]] = true
	}
	if err := f.popErr(&f.sendErrs); err != nil {
		return solana.Signature{}, err
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeChain) WaitForTransactionConfirmation(_ context.Context, _ solana.Signature, _ rpc.CommitmentType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	return f.confirmErr
}

func (f *fakeChain) GetSignatureStatuses(_ context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	res := &rpc.GetSignatureStatusesResult{Value: make([]*rpc.SignatureStatusesResult, len(signatures))}
	for i, sig := range signatures {
		if f.knownSigs[sig] {
			res.Value[i] = &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusProcessed}
		}
	}
	return res, nil
}

// receivedSignatures returns the distinct signatures handed to the node.
func (f *fakeChain) receivedSignatures() []solana.Signature {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sigs []solana.Signature
	seen := map[solana.Signature]bool{}
	for _, tx := range f.received {
		if sig := tx.Signatures[0]; !seen[sig] {
			seen[sig] = true
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

func (f *fakeChain) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[pubkey]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *fakeChain) AccountExists(_ context.Context, pubkey solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.accounts[pubkey]
	return ok, nil
}

func (f *fakeChain) GetTokenBalance(_ context.Context, account solana.PublicKey) (*blockchain.TokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	bal, ok := f.balances[account]
	if !ok {
		return nil, fmt.Errorf("no balance for %s", account)
	}
	return bal, nil
}

func (f *fakeChain) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	return f.rent, nil
}

func (f *fakeChain) GetProgramAccountsWithOpts(_ context.Context, _ solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.programQueries = append(f.programQueries, opts)
	return f.programAccounts, nil
}

// keySigner signs with a single private key.
type keySigner struct {
	key solana.PrivateKey
}

func (s keySigner) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}

func newTestKey() solana.PrivateKey {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		panic(err)
	}
	return key
}
