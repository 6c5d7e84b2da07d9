package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	transferDomain "github.com/fd1az/transfer-dashboard/business/transfer/domain"
	"github.com/fd1az/transfer-dashboard/internal/asset"
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Transfer Dashboard "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	fees := m.renderFees()
	form := m.renderForm()
	if m.width > 100 {
		half := m.width/2 - 2
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			BoxStyle.Width(half).Render(fees),
			FocusedBoxStyle.Width(half).Render(form)))
	} else {
		b.WriteString(BoxStyle.Render(fees))
		b.WriteString("\n")
		b.WriteString(FocusedBoxStyle.Render(form))
	}
	b.WriteString("\n")
	b.WriteString(BoxStyle.Render(m.renderLifecycle()))
	b.WriteString("\n")

	if panel := m.renderNotifications(); panel != "" {
		b.WriteString(panel)
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	chainID := m.session.ChainID
	if chain, ok := asset.LookupChain(chainID); ok {
		parts = append(parts, chain.Name)
	} else if chainID != 0 {
		parts = append(parts, fmt.Sprintf("Chain %d", chainID))
	}

	if m.connected {
		parts = append(parts, NodeUp.Render("● Node"))
	} else {
		parts = append(parts, NodeDown.Render("○ Node (disconnected)"))
	}

	if m.head > 0 {
		parts = append(parts, fmt.Sprintf("Block: #%d", m.head))
	}

	if m.session.Connected {
		parts = append(parts, "Account: "+shortHex(m.session.Account.Hex()))
	} else {
		parts = append(parts, WarnText.Render("No signer"))
	}

	return strings.Join(parts, "  │  ")
}

func (m Model) renderFees() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("NETWORK FEES"))
	sb.WriteString("\n\n")

	if m.fees == nil {
		sb.WriteString(DimText.Render("  Waiting for fee suggestions..."))
		return sb.String()
	}
	s := m.fees

	sb.WriteString(DimText.Render(fmt.Sprintf("  %-16s %10s %10s %10s", "Tier", "Priority", "Max fee", "Wait")))
	sb.WriteString("\n")
	for _, t := range gasDomain.Tiers {
		sg := s.Suggestion(t)
		sb.WriteString(fmt.Sprintf("  %-16s %10s %10s %10s\n",
			t.Label(),
			asset.FormatGwei(sg.MaxPriorityFee, 2),
			asset.FormatGwei(sg.MaxFee, 2),
			formatWaitRange(sg.MinWait, sg.MaxWait)))
	}
	sb.WriteString(DimText.Render("  (gwei)"))
	sb.WriteString("\n\n")

	if s.BaseFee != nil {
		sb.WriteString(LabelStyle.Render("  Base fee"))
		sb.WriteString(asset.FormatGwei(s.BaseFee, 2) + " gwei\n")
	}

	level := gasDomain.ClassifyCongestion(s.Congestion)
	sb.WriteString(LabelStyle.Render("  Congestion"))
	sb.WriteString(congestionStyle(level).Render(fmt.Sprintf("%s (%.0f%%)", level, s.Congestion*100)))
	sb.WriteString("\n")

	if !s.FetchedAt.IsZero() {
		age := s.Age(m.now).Round(time.Second)
		if age < 0 {
			age = 0
		}
		sb.WriteString(DimText.Render(fmt.Sprintf("  Updated %s ago", age)))
	}
	return sb.String()
}

func (m Model) renderForm() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("SEND"))
	sb.WriteString("\n\n")

	switch {
	case !m.session.Connected:
		sb.WriteString(WarnText.Render("  Wallet not connected"))
		return sb.String()
	case m.loading && len(m.portfolio.Tokens) == 0:
		sb.WriteString(m.spinner.View() + " Loading balances...")
		return sb.String()
	case len(m.portfolio.Tokens) == 0:
		sb.WriteString(DimText.Render("  No tokens"))
		return sb.String()
	}

	tok := m.portfolio.Tokens[m.tokenIdx]
	sb.WriteString(LabelStyle.Render("Token"))
	sb.WriteString(fmt.Sprintf("%s  %s", tok.Symbol(),
		DimText.Render("balance "+asset.FormatDisplay(tok.Balance, tok.Asset.Decimals(), 6))))
	if tok.UsdPrice != nil {
		sb.WriteString(DimText.Render(" @ $" + tok.UsdPrice.StringFixed(2)))
	}
	sb.WriteString("\n")

	sb.WriteString(LabelStyle.Render("Amount"))
	sb.WriteString(m.amount.View())
	if !m.input.UsdValue.IsZero() {
		sb.WriteString(DimText.Render(" ≈ $" + m.input.UsdValue.StringFixed(2)))
	}
	sb.WriteString("\n")

	sb.WriteString(LabelStyle.Render("Recipient"))
	sb.WriteString(m.recipient.View())
	sb.WriteString("\n\n")

	sb.WriteString(LabelStyle.Render("Gas reserve"))
	switch {
	case m.input.Estimating:
		sb.WriteString(m.spinner.View() + " estimating...")
	case m.input.Required != nil && m.input.Required.Sign() > 0:
		sb.WriteString(asset.FormatDisplay(m.input.Required, asset.NativeDecimals, 8) + " " + m.nativeSymbol())
	default:
		sb.WriteString(DimText.Render("-"))
	}
	sb.WriteString("\n")

	if m.input.InsufficientBalance {
		sb.WriteString(ErrText.Render("  Insufficient balance"))
		sb.WriteString("\n")
	}
	if m.input.GasError {
		sb.WriteString(ErrText.Render("  Insufficient " + m.nativeSymbol() + " for gas"))
		sb.WriteString("\n")
	}
	if m.formErr != "" {
		sb.WriteString(ErrText.Render("  " + m.formErr))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderLifecycle() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("TRANSFER"))
	sb.WriteString("\n\n")

	state := m.snapshot.State
	if state == nil {
		state = transferDomain.Idle{}
	}

	switch st := state.(type) {
	case transferDomain.Idle:
		sb.WriteString(DimText.Render("  Ready"))

	case transferDomain.Signing:
		sb.WriteString(m.spinner.View() + " Signing transaction...")

	case transferDomain.Pending:
		sb.WriteString(m.spinner.View() + " Pending")
		sb.WriteString(DimText.Render(fmt.Sprintf("  %s elapsed", elapsed(st.SubmittedAt, m.now))))
		sb.WriteString("\n")
		m.renderSubmission(&sb, st.Submission)
		if st.Estimate != nil {
			sb.WriteString(LabelStyle.Render("Priority"))
			sb.WriteString(tierStyle(st.Estimate.Tier).Render(st.Estimate.Tier.Label()))
			sb.WriteString("\n")
			sb.WriteString(LabelStyle.Render("Est. wait"))
			sb.WriteString("~" + st.Estimate.Wait.Round(time.Second).String())
			sb.WriteString("\n")
			sb.WriteString(LabelStyle.Render("Est. cost"))
			sb.WriteString(fmt.Sprintf("%s %s (%d gas)",
				asset.FormatDisplay(st.Estimate.Cost, asset.NativeDecimals, 8), m.nativeSymbol(), st.Estimate.GasUnits))
			sb.WriteString("\n")
		} else {
			sb.WriteString(DimText.Render("  Estimating fees..."))
			sb.WriteString("\n")
		}
		if m.snapshot.TxStatus == transferDomain.StatusIncluded {
			sb.WriteString(OkText.Render(fmt.Sprintf("  Included in block #%d, waiting for confirmations", m.snapshot.IncludedBlock)))
			sb.WriteString("\n")
		}

	case transferDomain.Confirmed:
		sb.WriteString(OkText.Render("✓ Confirmed"))
		sb.WriteString("\n")
		m.renderSubmission(&sb, st.Submission)
		sb.WriteString(LabelStyle.Render("Block"))
		sb.WriteString(fmt.Sprintf("#%d\n", st.BlockNumber))
		sb.WriteString(LabelStyle.Render("Time"))
		sb.WriteString(fmt.Sprintf("%ds\n", st.CompletionTimeSeconds))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderSubmission(sb *strings.Builder, sub transferDomain.Submission) {
	sb.WriteString(LabelStyle.Render("Amount"))
	sb.WriteString(sub.Amount + " " + sub.TokenSymbol + "\n")
	sb.WriteString(LabelStyle.Render("To"))
	sb.WriteString(sub.Recipient.Hex() + "\n")
	sb.WriteString(LabelStyle.Render("Hash"))
	sb.WriteString(sub.Hash.Hex() + "\n")
	if m.snapshot.ExplorerURL != "" {
		sb.WriteString(LabelStyle.Render("Explorer"))
		sb.WriteString(LinkText.Render(m.snapshot.ExplorerURL) + "\n")
	}
}

func (m Model) renderNotifications() string {
	if len(m.notes) == 0 && len(m.errors) == 0 && len(m.logs) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, n := range m.notes {
		switch n.Kind {
		case transferDomain.NotifySuccess:
			sb.WriteString(OkText.Render("  ✓ " + n.Message))
		case transferDomain.NotifyError:
			sb.WriteString(ErrText.Render("  ✗ " + n.Message))
		default:
			sb.WriteString(DimText.Render("  • " + n.Message))
		}
		sb.WriteString("\n")
	}
	for _, e := range m.errors {
		ago := m.now.Sub(e.Timestamp).Round(time.Second)
		if ago < 0 {
			ago = 0
		}
		sb.WriteString(ErrText.Render("  • " + e.Message))
		sb.WriteString(DimText.Render(fmt.Sprintf(" (%s ago)", ago)))
		sb.WriteString("\n")
	}
	for _, l := range m.logs {
		sb.WriteString(DimText.Render("  " + l))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) nativeSymbol() string {
	if chain, ok := asset.LookupChain(m.session.ChainID); ok {
		return chain.NativeSymbol
	}
	return "ETH"
}

func formatWaitRange(lo, hi time.Duration) string {
	return fmt.Sprintf("%d-%ds", int64(lo.Seconds()), int64(hi.Seconds()))
}

func elapsed(since, now time.Time) time.Duration {
	if since.IsZero() || now.Before(since) {
		return 0
	}
	return now.Sub(since).Round(time.Second)
}

func shortHex(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
