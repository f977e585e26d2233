package swap

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/purse/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrInvalidAmount means the requested amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrRateUnavailable means one of the prices is missing or zero.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	// ErrInsufficientBalance means the source balance cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrUnknownToken means the symbol has no entry in the ledger.
	ErrUnknownToken = errors.New("token is not in the wallet")
)

// Prices resolves a symbol to its current price.
type Prices interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// Ledger is the balance surface the engine mutates.
type Ledger interface {
	Balance(symbol string) (decimal.Decimal, bool)
	SetBalance(symbol string, balance decimal.Decimal)
	Remove(symbol string) bool
}

// Engine computes exchange rates and performs atomic balance transfers.
// It never touches the transaction log: successful operations return the
// transaction payload for the caller to append.
//
// The mutex serializes whole operations, not single ledger calls: the
// balance check and the writes that follow it must see the same state.
type Engine struct {
	mu sync.Mutex
	l  *zap.Logger
}

// NewEngine creates a swap engine.
func NewEngine(l *zap.Logger) *Engine {
	return &Engine{l: l}
}

// Rate returns price(from)/price(to), or zero when either price is
// missing or not positive.
func (e *Engine) Rate(from, to string, prices Prices) decimal.Decimal {
	fromPrice, ok := prices.Price(from)
	if !ok || !fromPrice.IsPositive() {
		return decimal.Zero
	}
	toPrice, ok := prices.Price(to)
	if !ok || !toPrice.IsPositive() {
		return decimal.Zero
	}

	return fromPrice.Div(toPrice)
}

// Quote converts an amount at the given rate.
func (e *Engine) Quote(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

// Execute swaps amount of from-token into to-token at the current rate.
// All preconditions are checked before any balance is touched; a failure
// leaves both balances exactly as they were. The drained entry stays in
// the ledger even at balance zero.
func (e *Engine) Execute(ledger Ledger, from, to string, amount decimal.Decimal, prices Prices) (domain.TransactionPayload, error) {
	from = strings.ToLower(from)
	to = strings.ToLower(to)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !amount.IsPositive() {
		return domain.TransactionPayload{}, ErrInvalidAmount
	}

	rate := e.Rate(from, to, prices)
	if !rate.IsPositive() {
		return domain.TransactionPayload{}, ErrRateUnavailable
	}

	fromBalance, ok := ledger.Balance(from)
	if !ok || amount.GreaterThan(fromBalance) {
		return domain.TransactionPayload{}, ErrInsufficientBalance
	}

	credited := e.Quote(amount, rate)
	toBalance, _ := ledger.Balance(to)

	ledger.SetBalance(from, fromBalance.Sub(amount))
	ledger.SetBalance(to, toBalance.Add(credited))

	e.l.Info("swap executed",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("amount", amount.String()),
		zap.String("credited", credited.String()))

	return domain.TransactionPayload{
		FromToken:  from,
		ToToken:    to,
		FromAmount: amount.String(),
		ToAmount:   credited.String(),
	}, nil
}

// Deposit credits usdAmount worth of the token, converted at its current
// price, on top of any existing balance.
func (e *Engine) Deposit(ledger Ledger, symbol string, usdAmount decimal.Decimal, prices Prices) (domain.TransactionPayload, error) {
	symbol = strings.ToLower(symbol)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !usdAmount.IsPositive() {
		return domain.TransactionPayload{}, ErrInvalidAmount
	}

	price, ok := prices.Price(symbol)
	if !ok || !price.IsPositive() {
		return domain.TransactionPayload{}, ErrRateUnavailable
	}

	credited := usdAmount.Div(price)
	balance, _ := ledger.Balance(symbol)
	ledger.SetBalance(symbol, balance.Add(credited))

	e.l.Info("deposit executed",
		zap.String("symbol", symbol),
		zap.String("usd", usdAmount.String()),
		zap.String("credited", credited.String()))

	return domain.TransactionPayload{
		FromToken:  domain.TxDeposit,
		ToToken:    symbol,
		FromAmount: "0",
		ToAmount:   credited.String(),
	}, nil
}

// Burn removes the token from the ledger, recording its whole balance as
// debited.
func (e *Engine) Burn(ledger Ledger, symbol string) (domain.TransactionPayload, error) {
	symbol = strings.ToLower(symbol)

	e.mu.Lock()
	defer e.mu.Unlock()

	balance, ok := ledger.Balance(symbol)
	if !ok {
		return domain.TransactionPayload{}, ErrUnknownToken
	}

	ledger.Remove(symbol)

	e.l.Info("burn executed",
		zap.String("symbol", symbol),
		zap.String("amount", balance.String()))

	return domain.TransactionPayload{
		FromToken:  symbol,
		ToToken:    domain.TxBurn,
		FromAmount: balance.String(),
		ToAmount:   "0",
	}, nil
}
