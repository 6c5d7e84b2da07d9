package domain

import (
	"math/big"
	"testing"
)

func TestConfirmations(t *testing.T) {
	tests := []struct {
		name     string
		included uint64
		head     uint64
		want     uint64
	}{
		{"not included", 0, 100, 0},
		{"head behind inclusion", 101, 100, 0},
		{"same block", 100, 100, 0},
		{"one block on top", 100, 101, 1},
		{"two blocks on top", 100, 102, 2},
		{"deep", 100, 111, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confirmations(tt.included, tt.head); got != tt.want {
				t.Errorf("Confirmations(%d, %d) = %d, want %d", tt.included, tt.head, got, tt.want)
			}
		})
	}
}

func TestReceiptFee(t *testing.T) {
	r := Receipt{GasUsed: 21000, EffectiveGasPrice: big.NewInt(2_000_000_000)}
	if got := r.Fee().String(); got != "42000000000000" {
		t.Errorf("fee = %s", got)
	}
	if (Receipt{GasUsed: 1}).Fee() != nil {
		t.Error("fee without price should be nil")
	}
	if !(Receipt{Status: ReceiptSuccess}).Succeeded() || (Receipt{}).Succeeded() {
		t.Error("Succeeded mapping wrong")
	}
}

func TestConnectionStateGauge(t *testing.T) {
	if StateConnected.Gauge() != 2 || StateDisconnected.Gauge() != 0 || ConnectionState("x").Gauge() != 0 {
		t.Error("gauge mapping wrong")
	}
}
