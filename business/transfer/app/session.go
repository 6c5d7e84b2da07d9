package app

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	gasApp "github.com/fd1az/transfer-dashboard/business/gas/app"
	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/debounce"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// PercentOptions are the quick-fill shortcuts; 100 is MAX.
var PercentOptions = []int64{25, 50, 75, 100}

// InputState is what the form shows for the current input.
type InputState struct {
	Token               *walletDomain.Token
	Amount              string
	Recipient           string
	Required            *big.Int
	GasError            bool
	Estimating          bool
	InsufficientBalance bool
	UsdValue            decimal.Decimal
}

// InputListener receives the input state after each completed check.
type InputListener func(InputState)

// InputSession holds the transfer form for one wallet session and keeps the
// gas requirement current, debouncing checks while the user types.
type InputSession struct {
	checker   RequirementChecker
	debouncer *debounce.Debouncer
	logger    logger.LoggerInterface
	ctx       context.Context
	cancel    context.CancelFunc

	mu            sync.Mutex
	session       walletDomain.Session
	nativeBalance *big.Int
	token         *walletDomain.Token
	amount        string
	recipient     string
	required      *big.Int
	gasError      bool
	estimating    bool
	gen           uint64
	inputSeq      uint64
	listeners     []InputListener
}

// NewInputSession creates an empty session. delay is the debounce window.
func NewInputSession(checker RequirementChecker, delay time.Duration, log logger.LoggerInterface) *InputSession {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &InputSession{
		checker:   checker,
		debouncer: debounce.New(delay),
		logger:    log,
		ctx:       ctx,
		cancel:    cancel,
		required:  new(big.Int),
	}
}

// OnChange registers a listener.
func (s *InputSession) OnChange(fn InputListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetSession binds the form to a wallet session. Any change of account,
// chain or connection clears the form and drops pending checks.
func (s *InputSession) SetSession(sess walletDomain.Session, nativeBalance *big.Int) {
	s.mu.Lock()
	changed := s.session != sess
	s.session = sess
	s.nativeBalance = copyInt(nativeBalance)
	if changed {
		s.clearLocked()
	}
	s.mu.Unlock()

	if changed {
		s.debouncer.Cancel()
	}
}

// SetNativeBalance refreshes the native balance used for the gas check.
func (s *InputSession) SetNativeBalance(balance *big.Int) {
	s.mu.Lock()
	s.nativeBalance = copyInt(balance)
	s.mu.Unlock()
	s.schedule()
}

// SelectToken switches the token being sent.
func (s *InputSession) SelectToken(tok walletDomain.Token) {
	s.mu.Lock()
	s.token = &tok
	s.inputSeq++
	s.mu.Unlock()
	s.schedule()
}

// SetAmount replaces the amount text.
func (s *InputSession) SetAmount(text string) {
	s.mu.Lock()
	s.amount = text
	s.inputSeq++
	s.mu.Unlock()
	s.schedule()
}

// SetRecipient replaces the recipient text.
func (s *InputSession) SetRecipient(text string) {
	s.mu.Lock()
	s.recipient = text
	s.inputSeq++
	s.mu.Unlock()
	s.schedule()
}

// FillPercent sets the amount to pct of the token balance. MAX on the native
// coin leaves the gas reserve behind; on a token it is the full balance.
func (s *InputSession) FillPercent(ctx context.Context, pct int64) (string, error) {
	if pct <= 0 || pct > 100 {
		return "", apperror.Validation(apperror.CodeInvalidInput, "percentage must be in (0, 100]")
	}

	s.mu.Lock()
	if s.token == nil {
		s.mu.Unlock()
		return "", apperror.Validation(apperror.CodeInvalidInput, "no token selected")
	}
	tok := *s.token
	balance := copyInt(tok.Balance)
	in := s.requirementInputLocked(tok, balance)
	s.mu.Unlock()

	amount := new(big.Int).Div(new(big.Int).Mul(balance, big.NewInt(pct)), big.NewInt(100))
	if pct == 100 && tok.IsNative() {
		res, err := s.checker.Check(ctx, in)
		if err != nil {
			return "", err
		}
		amount = gasDomain.MaxSendable(balance, res.Required)
	}

	text := asset.FromMinorUnits(amount, tok.Asset.Decimals())
	s.SetAmount(text)
	return text, nil
}

// State returns the current input state.
func (s *InputSession) State() InputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Request returns the form as a transfer request.
func (s *InputSession) Request() domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := domain.Request{Amount: s.amount, Recipient: s.recipient}
	if s.token != nil {
		req.Token = s.token.Asset
	}
	return req
}

// Ready validates the form and reports the first reason it cannot be sent.
func (s *InputSession) Ready() error {
	s.mu.Lock()
	st := s.stateLocked()
	req := domain.Request{Amount: s.amount, Recipient: s.recipient}
	if s.token != nil {
		req.Token = s.token.Asset
	}
	s.mu.Unlock()

	if _, err := req.Validate(); err != nil {
		return err
	}
	switch {
	case st.InsufficientBalance:
		return apperror.Validation(apperror.CodeInsufficientBalance, st.Amount)
	case st.GasError:
		return apperror.New(apperror.CodeInsufficientGasReserve)
	}
	return nil
}

// Check runs the requirement check now, bypassing the debounce window.
func (s *InputSession) Check(ctx context.Context) InputState {
	s.debouncer.Cancel()
	s.run(ctx)
	return s.State()
}

// Clear empties the form.
func (s *InputSession) Clear() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	s.debouncer.Cancel()
}

// Close cancels pending checks; nothing fires afterwards.
func (s *InputSession) Close() {
	s.debouncer.Stop()
	s.cancel()
}

func (s *InputSession) clearLocked() {
	s.gen++
	s.inputSeq++
	s.token = nil
	s.amount = ""
	s.recipient = ""
	s.required = new(big.Int)
	s.gasError = false
	s.estimating = false
}

func (s *InputSession) schedule() {
	s.debouncer.Trigger(func() { s.run(s.ctx) })
}

func (s *InputSession) run(ctx context.Context) {
	s.mu.Lock()
	if s.token == nil {
		s.mu.Unlock()
		return
	}
	tok := *s.token
	amount, err := asset.ToMinorUnits(s.amount, tok.Asset.Decimals())
	if err != nil {
		amount = new(big.Int)
	}
	in := s.requirementInputLocked(tok, amount)
	gen, seq := s.gen, s.inputSeq
	s.estimating = true
	s.gasError = false
	s.mu.Unlock()

	res, err := s.checker.Check(ctx, in)

	s.mu.Lock()
	if s.gen != gen || s.inputSeq != seq {
		s.mu.Unlock()
		return
	}
	s.estimating = false
	if err != nil {
		s.logger.Debug(ctx, "requirement check aborted", "error", err)
	} else {
		s.required = res.Required
		s.gasError = res.GasError
	}
	st := s.stateLocked()
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// requirementInputLocked builds a check for amount. Without a valid
// recipient the account itself stands in, so gas can still be estimated.
func (s *InputSession) requirementInputLocked(tok walletDomain.Token, amount *big.Int) gasApp.RequirementInput {
	in := gasApp.RequirementInput{
		ChainID:       s.session.ChainID,
		Account:       s.session.Account,
		Recipient:     s.session.Account,
		IsNative:      tok.IsNative(),
		Amount:        amount,
		NativeBalance: copyInt(s.nativeBalance),
	}
	if !s.session.Connected {
		in.Account = common.Address{}
	}
	if r, err := domain.ParseRecipient(s.recipient); err == nil {
		in.Recipient = r
	}
	if !tok.IsNative() {
		in.Token = tok.Asset.Address()
	}
	return in
}

func (s *InputSession) stateLocked() InputState {
	st := InputState{
		Amount:     s.amount,
		Recipient:  s.recipient,
		Required:   copyInt(s.required),
		GasError:   s.gasError,
		Estimating: s.estimating,
		UsdValue:   decimal.Zero,
	}
	if s.token == nil {
		return st
	}
	tok := *s.token
	st.Token = &tok

	amt, err := asset.ParseString(tok.Asset, s.amount)
	if err != nil {
		return st
	}
	st.InsufficientBalance = tok.Balance != nil && amt.Raw().Cmp(tok.Balance) > 0
	st.UsdValue = tok.UsdValue(amt)
	return st
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
