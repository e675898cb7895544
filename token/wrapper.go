package token

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"gogaussbridge/types"
)

var ErrNotBridgeCaller = errors.New("token: caller is not the bridge")

// Wrapper is a wrapped-token ledger backed 1:1 by an underlying asset
// held in the wrapper contract's custody. Depositing pulls underlying
// and mints wrapped; withdrawing burns wrapped and releases
// underlying. The wrapped side is the Wrapper's own Token ledger.
//
// Invariant: totalSupply <= underlying.BalanceOf(addr). Underlying
// sent to the contract outside DepositFor accumulates as excess and is
// recoverable through ReconcileExcess.
type Wrapper struct {
	*Token

	addr       common.Address // contract address, custody account for underlying
	underlying *Token

	// On the home-role ledger only the bridge coordinator may drive
	// deposit/withdraw; end users go through the bridge path.
	restricted bool
	bridge     common.Address
}

func NewWrapper(name, symbol string, decimals uint8, owner, addr common.Address, underlying *Token) *Wrapper {
	return &Wrapper{
		Token:      New(name, symbol, decimals, owner),
		addr:       addr,
		underlying: underlying,
	}
}

func (w *Wrapper) Address() common.Address { return w.addr }
func (w *Wrapper) Underlying() *Token      { return w.underlying }

// RestrictToBridge limits DepositFor/WithdrawTo to the given caller.
// Owner-gated; used on the home-role deployment.
func (w *Wrapper) RestrictToBridge(ctx types.CallContext, bridge common.Address) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ctx.Caller != w.owner {
		return ErrNotOwner
	}
	if bridge == (common.Address{}) {
		return ErrZeroAddress
	}
	w.restricted = true
	w.bridge = bridge
	return nil
}

// DepositFor pulls amount of underlying from the caller into custody,
// then mints amount wrapped to account. Pull-then-mint: the mint never
// happens without backing.
func (w *Wrapper) DepositFor(ctx types.CallContext, account common.Address, amount *big.Int) error {
	if err := w.authorize(ctx); err != nil {
		return err
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}

	// The wrapper contract is the approved spender of the caller's
	// underlying.
	pull := types.CallContext{Caller: w.addr, ChainID: ctx.ChainID}
	if err := w.underlying.TransferFrom(pull, ctx.Caller, w.addr, amount); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mint(account, amount); err != nil {
		// roll the pull back so a gated mint leaves no custody drift
		release := types.CallContext{Caller: w.addr, ChainID: ctx.ChainID}
		w.underlying.Transfer(release, ctx.Caller, amount)
		return err
	}
	return nil
}

// WithdrawTo burns amount wrapped from the caller, then releases
// amount underlying from custody to account.
func (w *Wrapper) WithdrawTo(ctx types.CallContext, account common.Address, amount *big.Int) error {
	if err := w.authorize(ctx); err != nil {
		return err
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}

	w.mu.Lock()
	if err := w.burn(ctx.Caller, amount); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	release := types.CallContext{Caller: w.addr, ChainID: ctx.ChainID}
	if err := w.underlying.Transfer(release, account, amount); err != nil {
		// restore the burned balance, the whole call fails atomically
		w.mu.Lock()
		w.mint(ctx.Caller, amount)
		w.mu.Unlock()
		return err
	}
	return nil
}

// Excess reports underlying custody in excess of the wrapped supply.
func (w *Wrapper) Excess() *big.Int {
	held := w.underlying.BalanceOf(w.addr)
	return held.Sub(held, w.TotalSupply())
}

// ReconcileExcess mints exactly the custody excess to account,
// restoring the 1:1 backing. Calling it again with no intervening
// direct transfer mints zero. Owner-gated.
func (w *Wrapper) ReconcileExcess(ctx types.CallContext, account common.Address) (*big.Int, error) {
	if ctx.Caller != w.Owner() {
		return nil, ErrNotOwner
	}
	if account == (common.Address{}) {
		return nil, ErrZeroAddress
	}

	excess := w.Excess()
	if excess.Sign() <= 0 {
		return new(big.Int), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mint(account, excess); err != nil {
		return nil, err
	}
	return excess, nil
}

func (w *Wrapper) authorize(ctx types.CallContext) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.restricted && ctx.Caller != w.bridge {
		return ErrNotBridgeCaller
	}
	return nil
}
