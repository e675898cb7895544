package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"gogaussbridge/types"
)

// Ledger errors. Callers match on these values; the strings are the
// stable reason taxonomy surfaced over the API.
var (
	ErrZeroAddress           = errors.New("token: zero address")
	ErrPaused                = errors.New("token: token transfer while paused")
	ErrInsufficientBalance   = errors.New("token: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrBurnExceedsBalance    = errors.New("token: burn amount exceeds balance")
	ErrNotOwner              = errors.New("token: caller is not the owner")
	ErrNotMinter             = errors.New("token: caller is not a minter")
	ErrNegativeAmount        = errors.New("token: negative amount")
)

// Event topics, keccak of the canonical signatures so emitted events
// match what external scanners filter on.
var (
	TopicTransfer = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	TopicApproval = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
)

// Event is one entry of the ledger's append-only event log.
type Event struct {
	Topic  common.Hash
	From   common.Address
	To     common.Address
	Amount *big.Int
}

// Token is a fungible-token ledger: balances, allowances, privileged
// mint/burn, an owner gate and a pause flag. It is the capability the
// bridge coordinator locks, burns and mints against.
type Token struct {
	mu sync.Mutex

	name     string
	symbol   string
	decimals uint8

	owner   common.Address
	paused  bool
	minters map[common.Address]bool

	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int

	events []Event
}

func New(name, symbol string, decimals uint8, owner common.Address) *Token {
	return &Token{
		name:        name,
		symbol:      symbol,
		decimals:    decimals,
		owner:       owner,
		minters:     map[common.Address]bool{owner: true},
		totalSupply: new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (t *Token) Name() string    { return t.name }
func (t *Token) Symbol() string  { return t.symbol }
func (t *Token) Decimals() uint8 { return t.decimals }

func (t *Token) Owner() common.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

func (t *Token) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.totalSupply)
}

func (t *Token) BalanceOf(addr common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balance(addr))
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m := t.allowances[owner]; m != nil {
		if a := m[spender]; a != nil {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Events returns a copy of the event log.
func (t *Token) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

func (t *Token) Transfer(ctx types.CallContext, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transfer(ctx.Caller, to, amount)
}

func (t *Token) TransferFrom(ctx types.CallContext, from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := t.spendAllowance(from, ctx.Caller, amount); err != nil {
		return err
	}
	return t.transfer(from, to, amount)
}

func (t *Token) Approve(ctx types.CallContext, spender common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	m := t.allowances[ctx.Caller]
	if m == nil {
		m = make(map[common.Address]*big.Int)
		t.allowances[ctx.Caller] = m
	}
	m[spender] = new(big.Int).Set(amount)
	t.emit(TopicApproval, ctx.Caller, spender, amount)
	return nil
}

// Mint creates amount units for to. Minter-gated.
func (t *Token) Mint(ctx types.CallContext, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.minters[ctx.Caller] {
		return ErrNotMinter
	}
	return t.mint(to, amount)
}

// Burn destroys amount units of the caller's own balance.
func (t *Token) Burn(ctx types.CallContext, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.burn(ctx.Caller, amount)
}

// BurnFrom destroys amount units of from's balance. Minters burn
// without an allowance; anyone else spends one.
func (t *Token) BurnFrom(ctx types.CallContext, from common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := checkAmount(amount); err != nil {
		return err
	}
	if !t.minters[ctx.Caller] {
		if err := t.spendAllowance(from, ctx.Caller, amount); err != nil {
			return err
		}
	}
	return t.burn(from, amount)
}

// AddMinter grants privileged mint/burn rights. Owner-gated.
func (t *Token) AddMinter(ctx types.CallContext, addr common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Caller != t.owner {
		return ErrNotOwner
	}
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	t.minters[addr] = true
	return nil
}

// Pause gates all transfer-affecting entry points. Owner and minter
// callers may pause, so the bridge contract can force a pause during
// emergency recovery.
func (t *Token) Pause(ctx types.CallContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Caller != t.owner && !t.minters[ctx.Caller] {
		return ErrNotOwner
	}
	t.paused = true
	return nil
}

func (t *Token) Unpause(ctx types.CallContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Caller != t.owner && !t.minters[ctx.Caller] {
		return ErrNotOwner
	}
	t.paused = false
	return nil
}

// internal operations, caller holds t.mu

func (t *Token) balance(addr common.Address) *big.Int {
	if b := t.balances[addr]; b != nil {
		return b
	}
	return new(big.Int)
}

// beforeTransfer is the composed pre-transfer check, run in a fixed
// order before any balance mutation (mint and burn included).
func (t *Token) beforeTransfer(from, to common.Address) error {
	if t.paused {
		return ErrPaused
	}
	return nil
}

func (t *Token) transfer(from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := t.beforeTransfer(from, to); err != nil {
		return err
	}
	bal := t.balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[from] = new(big.Int).Sub(bal, amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	t.emit(TopicTransfer, from, to, amount)
	return nil
}

func (t *Token) mint(to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := t.beforeTransfer(common.Address{}, to); err != nil {
		return err
	}
	t.totalSupply = new(big.Int).Add(t.totalSupply, amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	t.emit(TopicTransfer, common.Address{}, to, amount)
	return nil
}

func (t *Token) burn(from common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := t.beforeTransfer(from, common.Address{}); err != nil {
		return err
	}
	bal := t.balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrBurnExceedsBalance
	}
	t.balances[from] = new(big.Int).Sub(bal, amount)
	t.totalSupply = new(big.Int).Sub(t.totalSupply, amount)
	t.emit(TopicTransfer, from, common.Address{}, amount)
	return nil
}

func (t *Token) spendAllowance(owner, spender common.Address, amount *big.Int) error {
	m := t.allowances[owner]
	if m == nil || m[spender] == nil || m[spender].Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	m[spender] = new(big.Int).Sub(m[spender], amount)
	return nil
}

func (t *Token) emit(topic common.Hash, from, to common.Address, amount *big.Int) {
	t.events = append(t.events, Event{
		Topic:  topic,
		From:   from,
		To:     to,
		Amount: new(big.Int).Set(amount),
	})
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return nil
}
