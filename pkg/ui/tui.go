package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	transferApp "github.com/fd1az/transfer-dashboard/business/transfer/app"
	transferDomain "github.com/fd1az/transfer-dashboard/business/transfer/domain"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
)

// Form is the transfer form behind the dashboard. *transferApp.InputSession
// satisfies it.
type Form interface {
	SelectToken(tok walletDomain.Token)
	SetAmount(text string)
	SetRecipient(text string)
	FillPercent(ctx context.Context, pct int64) (string, error)
	Ready() error
	Request() transferDomain.Request
}

// Transfers submits and resets transfers. *transferApp.Controller satisfies it.
type Transfers interface {
	Submit(ctx context.Context, req transferDomain.Request) (common.Hash, error)
	Reset(ctx context.Context, reason string)
}

// PortfolioFunc loads the current session's tokens, bypassing caches.
type PortfolioFunc func(ctx context.Context) (walletDomain.Portfolio, error)

// Deps wires the model to the application.
type Deps struct {
	Context   context.Context
	Form      Form
	Transfers Transfers
	Portfolio PortfolioFunc
	Session   walletDomain.Session
	Now       func() time.Time
}

type field int

const (
	fieldAmount field = iota
	fieldRecipient
)

// TickInterval refreshes the pending timer.
const TickInterval = time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	deps    Deps
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	amount    textinput.Model
	recipient textinput.Model
	focus     field

	// State
	width    int
	height   int
	quitting bool
	now      time.Time

	session    walletDomain.Session
	portfolio  walletDomain.Portfolio
	tokenIdx   int
	loading    bool
	input      transferApp.InputState
	percentIdx int
	formErr    string

	fees      *gasDomain.FeeTierSnapshot
	head      uint64
	connected bool

	snapshot transferDomain.Snapshot
	notes    []transferDomain.Notification // last 3
	errors   []ErrorEntry                  // last 3
	logs     []string
}

// New creates a new TUI model.
func New(deps Deps) Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	amount := textinput.New()
	amount.Placeholder = "0.0"
	amount.CharLimit = 40
	amount.Focus()

	recipient := textinput.New()
	recipient.Placeholder = "0x..."
	recipient.CharLimit = 42
	recipient.Width = 44

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WarnText

	return Model{
		deps:      deps,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		amount:    amount,
		recipient: recipient,
		focus:     fieldAmount,
		now:       deps.Now(),
		session:   deps.Session,
		loading:   deps.Session.Connected,
		snapshot:  transferDomain.Snapshot{ChainID: deps.Session.ChainID, State: transferDomain.Idle{}},
		logs:      make([]string, 0, 5),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, tickCmd()}
	if m.session.Connected {
		cmds = append(cmds, m.loadPortfolio())
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg{At: t}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		m.now = msg.At
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case FeeSnapshotMsg:
		snap := msg.Snapshot
		m.fees = &snap

	case BlockMsg:
		m.head = msg.Number
		m.connected = true

	case ConnectionStatusMsg:
		m.connected = msg.Connected
		if !msg.Connected {
			m.logs = addLog(m.logs, m.deps.Now(), "warn", msg.Name+" disconnected")
		}

	case SessionMsg:
		if msg.Session == m.session {
			return m, nil
		}
		m.session = msg.Session
		m.portfolio = walletDomain.Portfolio{}
		m.tokenIdx = 0
		m.percentIdx = 0
		m.input = transferApp.InputState{}
		m.amount.SetValue("")
		m.recipient.SetValue("")
		m.formErr = ""
		if !m.session.Connected {
			m.loading = false
			return m, nil
		}
		m.loading = true
		return m, m.loadPortfolio()

	case PortfolioMsg:
		m.loading = false
		if msg.Err != nil {
			m = m.pushError(msg.Err)
			return m, nil
		}
		m.portfolio = msg.Portfolio
		if m.tokenIdx >= len(m.portfolio.Tokens) {
			m.tokenIdx = 0
		}
		m.selectToken()

	case InputMsg:
		m.input = msg.State

	case FillMsg:
		if msg.Err != nil {
			m.formErr = msg.Err.Error()
			return m, nil
		}
		m.amount.SetValue(msg.Amount)
		m.formErr = ""

	case SubmittedMsg:
		if msg.Err != nil {
			m.formErr = msg.Err.Error()
			return m, nil
		}
		m.formErr = ""
		m.amount.SetValue("")
		m.deps.Form.SetAmount("")

	case transferDomain.Snapshot:
		m.snapshot = msg

	case transferDomain.Notification:
		m.notes = append(m.notes, msg)
		if len(m.notes) > 3 {
			m.notes = m.notes[len(m.notes)-3:]
		}
		if msg.Kind == transferDomain.NotifySuccess && m.session.Connected {
			return m, m.loadPortfolio()
		}

	case ErrorMsg:
		m = m.pushError(msg.Error)

	case LogMsg:
		m.logs = addLog(m.logs, m.deps.Now(), msg.Level, msg.Message)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == fieldAmount {
			m.focus = fieldRecipient
			m.amount.Blur()
			return m, m.recipient.Focus()
		}
		m.focus = fieldAmount
		m.recipient.Blur()
		return m, m.amount.Focus()

	case key.Matches(msg, m.keys.Token):
		if len(m.portfolio.Tokens) == 0 {
			return m, nil
		}
		m.tokenIdx = (m.tokenIdx + 1) % len(m.portfolio.Tokens)
		m.percentIdx = 0
		m.selectToken()
		return m, nil

	case key.Matches(msg, m.keys.Percent):
		if len(m.portfolio.Tokens) == 0 {
			return m, nil
		}
		pct := transferApp.PercentOptions[m.percentIdx]
		m.percentIdx = (m.percentIdx + 1) % len(transferApp.PercentOptions)
		return m, m.fill(pct)

	case key.Matches(msg, m.keys.Refresh):
		if !m.session.Connected {
			return m, nil
		}
		m.loading = true
		return m, m.loadPortfolio()

	case key.Matches(msg, m.keys.Dismiss):
		m.formErr = ""
		m.errors = m.errors[:0]
		if _, ok := m.snapshot.State.(transferDomain.Confirmed); ok {
			m.deps.Transfers.Reset(m.deps.Context, "dismissed")
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if err := m.deps.Form.Ready(); err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		m.formErr = ""
		return m, m.submit()
	}

	// Everything else edits the focused field.
	var cmd tea.Cmd
	if m.focus == fieldAmount {
		before := m.amount.Value()
		m.amount, cmd = m.amount.Update(msg)
		if v := m.amount.Value(); v != before {
			m.deps.Form.SetAmount(v)
		}
		return m, cmd
	}
	before := m.recipient.Value()
	m.recipient, cmd = m.recipient.Update(msg)
	if v := m.recipient.Value(); v != before {
		m.deps.Form.SetRecipient(v)
	}
	return m, cmd
}

func (m *Model) selectToken() {
	if len(m.portfolio.Tokens) == 0 {
		return
	}
	m.deps.Form.SelectToken(m.portfolio.Tokens[m.tokenIdx])
}

func (m Model) pushError(err error) Model {
	if err == nil {
		return m
	}
	m.errors = append(m.errors, ErrorEntry{Message: err.Error(), Timestamp: m.deps.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
	return m
}

func (m Model) loadPortfolio() tea.Cmd {
	ctx, load := m.deps.Context, m.deps.Portfolio
	if load == nil {
		return nil
	}
	return func() tea.Msg {
		p, err := load(ctx)
		return PortfolioMsg{Portfolio: p, Err: err}
	}
}

func (m Model) fill(pct int64) tea.Cmd {
	ctx, form := m.deps.Context, m.deps.Form
	return func() tea.Msg {
		amount, err := form.FillPercent(ctx, pct)
		return FillMsg{Amount: amount, Err: err}
	}
}

func (m Model) submit() tea.Cmd {
	ctx, form, transfers := m.deps.Context, m.deps.Form, m.deps.Transfers
	req := form.Request()
	return func() tea.Msg {
		hash, err := transfers.Submit(ctx, req)
		return SubmittedMsg{Hash: hash, Err: err}
	}
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, at time.Time, level, message string) []string {
	logLine := fmt.Sprintf("[%s] %s: %s", at.Format("15:04:05"), level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}
