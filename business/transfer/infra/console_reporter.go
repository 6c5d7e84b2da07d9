package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
	"github.com/fd1az/transfer-dashboard/internal/asset"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer

	mu        sync.Mutex
	lastPhase domain.Phase
	lastStat  domain.TxStatus
	estimated bool
	done      chan domain.Notification
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:       out,
		lastPhase: domain.PhaseIdle,
		done:      make(chan domain.Notification, 1),
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Transfer Dashboard")
	fmt.Fprintln(r.out, "==================")
	return nil
}

// Report prints phase changes, the estimate once known and inclusion.
func (r *ConsoleReporter) Report(snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := snap.State
	if state == nil {
		state = domain.Idle{}
	}
	phase := state.Phase()

	switch st := state.(type) {
	case domain.Signing:
		if r.lastPhase != phase {
			fmt.Fprintf(r.out, "[%s] signing transaction...\n", stamp(snap.At))
		}
	case domain.Pending:
		if r.lastPhase != phase {
			r.estimated = false
			fmt.Fprintf(r.out, "[%s] submitted %s %s to %s\n", stamp(snap.At), st.Amount, st.TokenSymbol, st.Recipient.Hex())
			fmt.Fprintf(r.out, "  Hash:     %s\n", st.Hash.Hex())
			if snap.ExplorerURL != "" {
				fmt.Fprintf(r.out, "  Explorer: %s\n", snap.ExplorerURL)
			}
		}
		if st.Estimate != nil && !r.estimated {
			r.estimated = true
			fmt.Fprintf(r.out, "  Tier:     %s\n", st.Estimate.Tier.Label())
			fmt.Fprintf(r.out, "  Wait:     ~%s\n", st.Estimate.Wait.Round(time.Second))
			fmt.Fprintf(r.out, "  Cost:     %s %s (%d gas)\n",
				asset.FormatDisplay(st.Estimate.Cost, asset.NativeDecimals, 8), nativeSymbol(snap.ChainID), st.Estimate.GasUnits)
		}
		if snap.TxStatus == domain.StatusIncluded && r.lastStat != domain.StatusIncluded {
			fmt.Fprintf(r.out, "[%s] included in block #%d, waiting for confirmations\n", stamp(snap.At), snap.IncludedBlock)
		}
	case domain.Confirmed:
		if r.lastPhase != phase {
			fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
			fmt.Fprintln(r.out, "TRANSFER CONFIRMED")
			fmt.Fprintf(r.out, "  Amount:   %s %s\n", st.Amount, st.TokenSymbol)
			fmt.Fprintf(r.out, "  To:       %s\n", st.Recipient.Hex())
			fmt.Fprintf(r.out, "  Block:    #%d\n", st.BlockNumber)
			fmt.Fprintf(r.out, "  Time:     %ds\n", st.CompletionTimeSeconds)
			if snap.ExplorerURL != "" {
				fmt.Fprintf(r.out, "  Explorer: %s\n", snap.ExplorerURL)
			}
			fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		}
	}

	r.lastPhase = phase
	r.lastStat = snap.TxStatus
}

// Notify prints the outcome and releases Wait.
func (r *ConsoleReporter) Notify(n domain.Notification) {
	r.mu.Lock()
	switch n.Kind {
	case domain.NotifyError:
		fmt.Fprintf(r.out, "[%s] ERROR %s: %s\n", stamp(n.At), n.Code, n.Message)
	default:
		fmt.Fprintf(r.out, "[%s] %s\n", stamp(n.At), n.Message)
	}
	r.mu.Unlock()

	if n.Kind == domain.NotifyInfo {
		return
	}
	select {
	case r.done <- n:
	default:
	}
}

// Wait blocks until a transfer succeeds or fails, or ctx ends.
func (r *ConsoleReporter) Wait(ctx context.Context) (domain.Notification, error) {
	select {
	case n := <-r.done:
		return n, nil
	case <-ctx.Done():
		return domain.Notification{}, ctx.Err()
	}
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Transfer Dashboard Stopped")
	return nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("15:04:05")
}

func nativeSymbol(chainID uint64) string {
	if c, ok := asset.LookupChain(chainID); ok && c.NativeSymbol != "" {
		return c.NativeSymbol
	}
	return "ETH"
}
