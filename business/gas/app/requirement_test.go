package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/transfer-dashboard/internal/logger"
)

var (
	testAccount   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRecipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

type fakeOracle struct {
	mu        sync.Mutex
	price     *big.Int
	priceErr  error
	units     uint64
	unitsErr  error
	priceCall int
	lastCall  TransferCall
}

func (f *fakeOracle) GasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCall++
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return new(big.Int).Set(f.price), nil
}

func (f *fakeOracle) EstimateTransferGas(_ context.Context, call TransferCall) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCall = call
	return f.units, f.unitsErr
}

func TestRequirementService_Check(t *testing.T) {
	tests := []struct {
		name         string
		oracle       *fakeOracle
		input        RequirementInput
		wantRequired string
		wantGasError bool
		wantFallback bool
	}{
		{
			name:   "native transfer with headroom",
			oracle: &fakeOracle{price: gwei(20), units: 21000},
			input: RequirementInput{
				Account: testAccount, Recipient: testRecipient, IsNative: true,
				Amount: ether(1), NativeBalance: ether(2),
			},
			wantRequired: "520000000000000",
		},
		{
			name:   "native transfer of full balance is short",
			oracle: &fakeOracle{price: gwei(20), units: 21000},
			input: RequirementInput{
				Account: testAccount, Recipient: testRecipient, IsNative: true,
				Amount: ether(1), NativeBalance: ether(1),
			},
			wantRequired: "520000000000000",
			wantGasError: true,
		},
		{
			name:   "token transfer falls back to erc20 units",
			oracle: &fakeOracle{price: gwei(10), unitsErr: errors.New("execution reverted")},
			input: RequirementInput{
				Account: testAccount, Recipient: testRecipient, Token: testToken,
				Amount: big.NewInt(5_000_000), NativeBalance: ether(1),
			},
			// 65000 * 10 gwei = 6.5e14, buffer 2.6e13 < 1e14
			wantRequired: "750000000000000",
			wantFallback: true,
		},
		{
			name:   "token transfer without native balance",
			oracle: &fakeOracle{price: gwei(10), units: 50000},
			input: RequirementInput{
				Account: testAccount, Recipient: testRecipient, Token: testToken,
				Amount: big.NewInt(5_000_000), NativeBalance: big.NewInt(0),
			},
			wantRequired: "600000000000000",
			wantGasError: true,
		},
		{
			name:   "gas price failure uses fallback reserve",
			oracle: &fakeOracle{priceErr: errors.New("rpc down")},
			input: RequirementInput{
				Account: testAccount, Recipient: testRecipient, IsNative: true,
				Amount: ether(1), NativeBalance: ether(5),
			},
			wantRequired: "1000000000000000",
			wantGasError: true,
			wantFallback: true,
		},
		{
			name:   "zero amount needs nothing",
			oracle: &fakeOracle{price: gwei(20), units: 21000},
			input: RequirementInput{
				Account: testAccount, IsNative: true, Amount: big.NewInt(0),
			},
			wantRequired: "0",
		},
		{
			name:   "no account needs nothing",
			oracle: &fakeOracle{price: gwei(20), units: 21000},
			input: RequirementInput{
				IsNative: true, Amount: ether(1),
			},
			wantRequired: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRequirementService(tt.oracle, DefaultRequirementConfig(), testLogger())
			defer svc.Close()

			res, err := svc.Check(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Required.String() != tt.wantRequired {
				t.Errorf("required = %s, want %s", res.Required, tt.wantRequired)
			}
			if res.GasError != tt.wantGasError {
				t.Errorf("gas error = %v, want %v", res.GasError, tt.wantGasError)
			}
			if res.Fallback != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", res.Fallback, tt.wantFallback)
			}
		})
	}
}

func TestRequirementService_TokenCallCarriesContract(t *testing.T) {
	oracle := &fakeOracle{price: gwei(1), units: 40000}
	svc := NewRequirementService(oracle, DefaultRequirementConfig(), testLogger())
	defer svc.Close()

	_, err := svc.Check(context.Background(), RequirementInput{
		Account: testAccount, Recipient: testRecipient, Token: testToken,
		Amount: big.NewInt(10), NativeBalance: ether(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if oracle.lastCall.Token == nil || *oracle.lastCall.Token != testToken {
		t.Errorf("token = %v, want %s", oracle.lastCall.Token, testToken.Hex())
	}
	if oracle.lastCall.To != testRecipient || oracle.lastCall.From != testAccount {
		t.Errorf("unexpected call %+v", oracle.lastCall)
	}
}

func TestRequirementService_CachesFailingAmounts(t *testing.T) {
	oracle := &fakeOracle{price: gwei(20), units: 21000}
	svc := NewRequirementService(oracle, DefaultRequirementConfig(), testLogger())
	defer svc.Close()
	ctx := context.Background()

	in := RequirementInput{
		Account: testAccount, Recipient: testRecipient, IsNative: true,
		Amount: ether(1), NativeBalance: ether(1),
	}
	first, err := svc.Check(ctx, in)
	if err != nil || !first.GasError {
		t.Fatalf("first check: %+v, %v", first, err)
	}

	larger := in
	larger.Amount = new(big.Int).Add(ether(1), big.NewInt(1))
	cached, err := svc.Check(ctx, larger)
	if err != nil {
		t.Fatal(err)
	}
	if !cached.FromCache || !cached.GasError {
		t.Errorf("larger amount should be served from cache, got %+v", cached)
	}
	if oracle.priceCall != 1 {
		t.Errorf("price fetched %d times, want 1", oracle.priceCall)
	}

	smaller := in
	smaller.Amount = big.NewInt(1000)
	fresh, err := svc.Check(ctx, smaller)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.FromCache || fresh.GasError {
		t.Errorf("smaller amount must be re-estimated, got %+v", fresh)
	}

	svc.Forget()
	if _, err := svc.Check(ctx, larger); err != nil {
		t.Fatal(err)
	}
	if oracle.priceCall != 3 {
		t.Errorf("price fetched %d times after Forget, want 3", oracle.priceCall)
	}
}

func TestRequirementService_CachedFailureIsPerChain(t *testing.T) {
	oracle := &fakeOracle{price: gwei(20), units: 21000}
	svc := NewRequirementService(oracle, DefaultRequirementConfig(), testLogger())
	defer svc.Close()
	ctx := context.Background()

	in := RequirementInput{
		ChainID: 11155111, Account: testAccount, Recipient: testRecipient, IsNative: true,
		Amount: ether(1), NativeBalance: ether(1),
	}
	if res, err := svc.Check(ctx, in); err != nil || !res.GasError {
		t.Fatalf("first check: %+v, %v", res, err)
	}

	other := in
	other.ChainID = 1
	res, err := svc.Check(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if res.FromCache {
		t.Error("failure cached on one chain must not answer for another")
	}
	if oracle.priceCall != 2 {
		t.Errorf("price fetched %d times, want 2", oracle.priceCall)
	}
}
