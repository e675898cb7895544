package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"gogaussbridge/relay"
	"gogaussbridge/types"
)

// Owner-gated configuration surface. Pause gates the transfer paths,
// never these calls. Every mutator requires an initialized bridge so
// no role-dependent setting can be touched before the role exists.

// UpdateBridge rotates the trusted relay identity. The standing
// fee-token approval moves with it: revoke the old relay first, then
// grant the new one, so the old identity is never left approved.
func (b *Bridge) UpdateBridge(ctx types.CallContext, newRelay common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.adminCheck(ctx); err != nil {
		return err
	}
	if newRelay == (common.Address{}) {
		return ErrZeroAddress
	}

	if b.feeLedger != nil {
		if err := b.feeLedger.Approve(b.selfCtx(), b.relayAddr, new(big.Int)); err != nil {
			return err
		}
		if err := b.feeLedger.Approve(b.selfCtx(), newRelay, maxApproval()); err != nil {
			return err
		}
	}
	b.relayAddr = newRelay
	return nil
}

// UpdateGateway swaps the gateway transport without touching the
// trusted relay identity.
func (b *Bridge) UpdateGateway(ctx types.CallContext, gw relay.Gateway) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.adminCheck(ctx); err != nil {
		return err
	}
	if gw == nil {
		return ErrInvalidConfiguration
	}
	b.gateway = gw
	return nil
}

// UpdateFeeToken replaces the fee asset; approvals on the old fee
// ledger are revoked and re-granted on the new one.
func (b *Bridge) UpdateFeeToken(ctx types.CallContext, feeToken common.Address, feeLedger Ledger) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.adminCheck(ctx); err != nil {
		return err
	}
	if feeToken == (common.Address{}) {
		return ErrZeroAddress
	}

	if b.feeLedger != nil {
		if err := b.feeLedger.Approve(b.selfCtx(), b.relayAddr, new(big.Int)); err != nil {
			return err
		}
	}
	if feeLedger != nil {
		if err := feeLedger.Approve(b.selfCtx(), b.relayAddr, maxApproval()); err != nil {
			return err
		}
	}
	b.feeToken = feeToken
	b.feeLedger = feeLedger
	return nil
}

func (b *Bridge) UpdateFeeAmount(ctx types.CallContext, feeAmount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.adminCheck(ctx); err != nil {
		return err
	}
	if feeAmount == nil || feeAmount.Sign() < 0 {
		return ErrAmountTooLow
	}
	b.feeAmount = new(big.Int).Set(feeAmount)
	return nil
}

func (b *Bridge) UpdateConfirmations(ctx types.CallContext, confirmations int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.adminCheck(ctx); err != nil {
		return err
	}
	if confirmations < 0 {
		return ErrInvalidConfiguration
	}
	b.confirmations = confirmations
	return nil
}

// Pause stops the transfer-affecting entry points of the bridge and,
// when the local ledger supports it, of the ledger too.
func (b *Bridge) Pause(ctx types.CallContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pause(ctx)
}

func (b *Bridge) Unpause(ctx types.CallContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.adminCheck(ctx); err != nil {
		return err
	}
	b.paused = false
	if p, ok := b.localAsset.(Pausable); ok {
		// best effort: on the away chain the ledger is not ours to gate
		p.Unpause(b.selfCtx())
	}
	return nil
}

// WithdrawERC20 recovers stray tokens from the contract's custody.
// Owner-only; the destination is deliberately unrestricted. A nil
// amount sweeps the full balance.
func (b *Bridge) WithdrawERC20(ctx types.CallContext, tok Ledger, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ctx.Caller != b.owner {
		return ErrNotOwner
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil {
		amount = tok.BalanceOf(b.addr)
	}
	return tok.Transfer(b.selfCtx(), to, amount)
}

// RecoverUnderlying is the emergency path: force a pause, then sweep
// the entire local-asset custody to the owner-chosen destination.
func (b *Bridge) RecoverUnderlying(ctx types.CallContext, to common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.adminCheck(ctx); err != nil {
		return nil, err
	}
	if to == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if err := b.pause(ctx); err != nil {
		return nil, err
	}

	balance := b.localAsset.BalanceOf(b.addr)
	if balance.Sign() == 0 {
		return balance, nil
	}
	// the ledger pause must not block the recovery transfer itself
	if p, ok := b.localAsset.(Pausable); ok {
		p.Unpause(b.selfCtx())
		defer p.Pause(b.selfCtx())
	}
	if err := b.localAsset.Transfer(b.selfCtx(), to, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// NativeRecover sweeps native currency sent to the contract address.
// The ledger model carries no native balance of its own, so this only
// reports and clears the tracked credit.
func (b *Bridge) NativeRecover(ctx types.CallContext, to common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ctx.Caller != b.owner {
		return nil, ErrNotOwner
	}
	if to == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	recovered := b.nativeBalance
	b.nativeBalance = nil
	if recovered == nil {
		recovered = new(big.Int)
	}
	return recovered, nil
}

// ReceiveNative records native currency pushed to the contract
// address out-of-band, making it visible to NativeRecover.
func (b *Bridge) ReceiveNative(amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	if b.nativeBalance == nil {
		b.nativeBalance = new(big.Int)
	}
	b.nativeBalance = new(big.Int).Add(b.nativeBalance, amount)
}

func (b *Bridge) pause(ctx types.CallContext) error {
	if err := b.adminCheck(ctx); err != nil {
		return err
	}
	b.paused = true
	if p, ok := b.localAsset.(Pausable); ok {
		// best effort: on the away chain the ledger is not ours to gate
		p.Pause(b.selfCtx())
	}
	return nil
}

func (b *Bridge) adminCheck(ctx types.CallContext) error {
	if ctx.Caller != b.owner {
		return ErrNotOwner
	}
	if !b.initialized {
		return ErrNotInitialized
	}
	return nil
}
