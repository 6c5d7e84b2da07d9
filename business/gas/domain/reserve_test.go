package domain

import (
	"math/big"
	"math/rand"
	"testing"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestRequiredGas(t *testing.T) {
	tests := []struct {
		name   string
		units  uint64
		price  *big.Int
		cost   string
		buffer string
		total  string
	}{
		{
			name:   "standard transfer floors at minimum buffer",
			units:  21000,
			price:  gwei(20),
			cost:   "420000000000000",
			buffer: "100000000000000",
			total:  "520000000000000",
		},
		{
			name:   "expensive call uses percentage buffer",
			units:  1_000_000,
			price:  gwei(200),
			cost:   "200000000000000000",
			buffer: "8000000000000000",
			total:  "208000000000000000",
		},
		{
			name:   "zero price still reserves the minimum",
			units:  21000,
			price:  big.NewInt(0),
			cost:   "0",
			buffer: "100000000000000",
			total:  "100000000000000",
		},
		{
			name:   "nil price is zero",
			units:  65000,
			price:  nil,
			cost:   "0",
			buffer: "100000000000000",
			total:  "100000000000000",
		},
	}

	policy := DefaultBufferPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := policy.Required(tt.units, tt.price)
			if req.Cost.String() != tt.cost {
				t.Errorf("cost = %s, want %s", req.Cost, tt.cost)
			}
			if req.Buffer.String() != tt.buffer {
				t.Errorf("buffer = %s, want %s", req.Buffer, tt.buffer)
			}
			if req.Total.String() != tt.total {
				t.Errorf("total = %s, want %s", req.Total, tt.total)
			}
		})
	}
}

func TestRequiredGas_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	policy := DefaultBufferPolicy()

	for i := 0; i < 500; i++ {
		units := uint64(rng.Int63n(5_000_000))
		price := big.NewInt(rng.Int63n(1_000_000_000_000))

		got := policy.Required(units, price).Total

		cost := new(big.Int).Mul(new(big.Int).SetUint64(units), price)
		buffer := new(big.Int).Quo(cost, big.NewInt(DefaultBufferDivisor))
		if buffer.Cmp(big.NewInt(DefaultMinimumBuffer)) < 0 {
			buffer = big.NewInt(DefaultMinimumBuffer)
		}
		want := new(big.Int).Add(cost, buffer)

		if got.Cmp(want) != 0 {
			t.Fatalf("Required(%d, %s) = %s, want %s", units, price, got, want)
		}
		if got.Cmp(cost) < 0 {
			t.Fatalf("Required(%d, %s) = %s below cost %s", units, price, got, cost)
		}
	}
}

func TestNewBufferPolicy(t *testing.T) {
	p := NewBufferPolicy(10, big.NewInt(5))
	if got := p.Buffer(big.NewInt(1000)); got.Int64() != 100 {
		t.Errorf("buffer = %s, want 100", got)
	}
	if got := p.Buffer(big.NewInt(20)); got.Int64() != 5 {
		t.Errorf("buffer = %s, want minimum 5", got)
	}

	fallback := NewBufferPolicy(0, nil)
	if fallback.Divisor.Int64() != DefaultBufferDivisor || fallback.Minimum.Int64() != DefaultMinimumBuffer {
		t.Errorf("invalid inputs should fall back to defaults, got %+v", fallback)
	}
}

func TestBufferPolicy_ZeroValueUsesDefaults(t *testing.T) {
	var zero BufferPolicy
	def := DefaultBufferPolicy()

	for _, cost := range []*big.Int{big.NewInt(0), gwei(420_000), gwei(200_000_000)} {
		if got, want := zero.Buffer(cost), def.Buffer(cost); got.Cmp(want) != 0 {
			t.Errorf("Buffer(%s) = %s, want %s", cost, got, want)
		}
	}
	if got := zero.Required(21000, gwei(20)).Total.String(); got != "520000000000000" {
		t.Errorf("Required total = %s", got)
	}
}

func TestMaxSendable(t *testing.T) {
	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)

	tests := []struct {
		name    string
		balance *big.Int
		reserve *big.Int
		want    string
	}{
		{"scenario balance minus reserve", oneEther, RequiredGas(21000, gwei(20)), "999480000000000000"},
		{"reserve exceeds balance", big.NewInt(100), big.NewInt(500), "0"},
		{"equal", big.NewInt(500), big.NewInt(500), "0"},
		{"nil reserve", big.NewInt(42), nil, "42"},
		{"nil balance", nil, big.NewInt(1), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxSendable(tt.balance, tt.reserve); got.String() != tt.want {
				t.Errorf("MaxSendable = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMaxSendable_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		balance := big.NewInt(rng.Int63n(1 << 40))
		reserve := big.NewInt(rng.Int63n(1 << 40))
		got := MaxSendable(balance, reserve)

		diff := new(big.Int).Sub(balance, reserve)
		if diff.Sign() > 0 && got.Cmp(diff) != 0 {
			t.Fatalf("MaxSendable(%s, %s) = %s, want %s", balance, reserve, got, diff)
		}
		if diff.Sign() <= 0 && got.Sign() != 0 {
			t.Fatalf("MaxSendable(%s, %s) = %s, want 0", balance, reserve, got)
		}
	}
}

func TestHasGasShortfall(t *testing.T) {
	tests := []struct {
		name     string
		native   bool
		balance  int64
		amount   int64
		required int64
		want     bool
	}{
		{"native with room", true, 1000, 500, 400, false},
		{"native exact", true, 1000, 600, 400, false},
		{"native short", true, 1000, 700, 400, true},
		{"token ignores amount", false, 1000, 5_000_000, 400, false},
		{"token short", false, 300, 1, 400, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasGasShortfall(tt.native, big.NewInt(tt.balance), big.NewInt(tt.amount), big.NewInt(tt.required))
			if got != tt.want {
				t.Errorf("HasGasShortfall = %v, want %v", got, tt.want)
			}
		})
	}
}
