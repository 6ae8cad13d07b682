package stablecoin

import (
	"strings"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/errors"
	"musicchain/core/events"
	"musicchain/core/state"
	"musicchain/core/types"
)

const namespace = "stablecoin"

const (
	EventTypeTransfer = "stablecoin.transfer"
	EventTypeApproval = "stablecoin.approval"
	EventTypeMint     = "stablecoin.mint"
)

var (
	ErrInsufficientBalance   = errors.NewCode(errors.KindBalance, "stablecoin: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.NewCode(errors.KindBalance, "stablecoin: transfer amount exceeds allowance")
	ErrZeroAddress           = errors.NewCode(errors.KindValidation, "stablecoin: zero address")
	ErrSupplyOverflow        = errors.NewCode(errors.KindValidation, "stablecoin: balance overflows 256 bits")
	ErrUnknownToken          = errors.NewCode(errors.KindExistence, "stablecoin: token not registered")
)

// Token is a fungible token whose balances and allowances live in the same
// state as the marketplace stores, so custody movements commit or roll back
// with the surrounding call.
type Token struct {
	state    *state.Manager
	address  ethcommon.Address
	symbol   string
	decimals uint8
	emitter  events.Emitter
}

// NewToken binds the token deployed at address to st.
func NewToken(st *state.Manager, address ethcommon.Address, symbol string, decimals uint8) *Token {
	return &Token{
		state:    st,
		address:  address,
		symbol:   strings.TrimSpace(symbol),
		decimals: decimals,
		emitter:  events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter used by the token.
func (t *Token) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

func (t *Token) Address() ethcommon.Address { return t.address }
func (t *Token) Symbol() string             { return t.symbol }
func (t *Token) Decimals() uint8            { return t.decimals }

func (t *Token) balanceKey(holder ethcommon.Address) []byte {
	return state.Key(namespace, t.address, "balance", holder)
}

func (t *Token) allowanceKey(owner, spender ethcommon.Address) []byte {
	return state.Key(namespace, t.address, "allowance", owner, spender)
}

func (t *Token) read(key []byte) (*uint256.Int, error) {
	raw, ok, err := t.state.Get(key)
	if err != nil {
		return nil, err
	}
	out := new(uint256.Int)
	if ok {
		out.SetBytes(raw)
	}
	return out, nil
}

func (t *Token) write(key []byte, amount *uint256.Int) error {
	if amount.IsZero() {
		return t.state.Delete(key)
	}
	return t.state.Put(key, amount.Bytes())
}

// BalanceOf returns the balance held by holder.
func (t *Token) BalanceOf(holder ethcommon.Address) (*uint256.Int, error) {
	return t.read(t.balanceKey(holder))
}

// Allowance returns how much spender may still move on behalf of owner.
func (t *Token) Allowance(owner, spender ethcommon.Address) (*uint256.Int, error) {
	return t.read(t.allowanceKey(owner, spender))
}

// Mint credits amount to holder. It is used by genesis only.
func (t *Token) Mint(holder ethcommon.Address, amount *uint256.Int) error {
	if holder == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	balance, err := t.BalanceOf(holder)
	if err != nil {
		return err
	}
	if _, overflow := balance.AddOverflow(balance, amountOrZero(amount)); overflow {
		return ErrSupplyOverflow
	}
	if err := t.write(t.balanceKey(holder), balance); err != nil {
		return err
	}
	t.emit(EventTypeMint, ethcommon.Address{}, holder, amount)
	return nil
}

// Approve sets the allowance of spender over owner's balance.
func (t *Token) Approve(owner, spender ethcommon.Address, amount *uint256.Int) error {
	if owner == (ethcommon.Address{}) || spender == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	if err := t.write(t.allowanceKey(owner, spender), amountOrZero(amount)); err != nil {
		return err
	}
	t.emit(EventTypeApproval, owner, spender, amount)
	return nil
}

// Transfer moves amount from from to to, failing when from holds less.
func (t *Token) Transfer(from, to ethcommon.Address, amount *uint256.Int) error {
	if to == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	amount = amountOrZero(amount)
	fromBalance, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return ErrInsufficientBalance
	}
	fromBalance.Sub(fromBalance, amount)
	if err := t.write(t.balanceKey(from), fromBalance); err != nil {
		return err
	}
	toBalance, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if _, overflow := toBalance.AddOverflow(toBalance, amount); overflow {
		return ErrSupplyOverflow
	}
	if err := t.write(t.balanceKey(to), toBalance); err != nil {
		return err
	}
	t.emit(EventTypeTransfer, from, to, amount)
	return nil
}

// TransferFrom moves amount from from to to using spender's allowance.
func (t *Token) TransferFrom(spender, from, to ethcommon.Address, amount *uint256.Int) error {
	amount = amountOrZero(amount)
	allowance, err := t.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Lt(amount) {
		return ErrInsufficientAllowance
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return t.write(t.allowanceKey(from, spender), allowance)
}

func (t *Token) emit(eventType string, from, to ethcommon.Address, amount *uint256.Int) {
	t.emitter.Emit(events.Wrap(&types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"token":  events.FormatAddress(t.address),
			"from":   events.FormatAddress(from),
			"to":     events.FormatAddress(to),
			"amount": events.FormatAmount(amount),
		},
	}))
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// Registry resolves token addresses to tokens.
type Registry struct {
	mu     sync.RWMutex
	tokens map[ethcommon.Address]*Token
}

// NewRegistry returns a registry holding tokens.
func NewRegistry(tokens ...*Token) *Registry {
	r := &Registry{tokens: make(map[ethcommon.Address]*Token, len(tokens))}
	for _, token := range tokens {
		r.Register(token)
	}
	return r
}

// Register makes token resolvable by its address.
func (r *Registry) Register(token *Token) {
	if token == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Address()] = token
}

// Resolve returns the token deployed at address.
func (r *Registry) Resolve(address ethcommon.Address) (*Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[address]
	if !ok {
		return nil, ErrUnknownToken
	}
	return token, nil
}
