package bridge

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"gogaussbridge/relay"
	"gogaussbridge/types"
)

// Bridge errors. The strings are the stable, machine-checkable reason
// taxonomy callers pattern-match on.
var (
	ErrAlreadyInitialized   = errors.New("bridge: already initialized")
	ErrNotInitialized       = errors.New("bridge: not initialized")
	ErrNotOwner             = errors.New("bridge: caller is not the owner")
	ErrNotRelay             = errors.New("bridge: caller is not the relay")
	ErrUnknownSender        = errors.New("bridge: message sender is not the twin contract")
	ErrZeroRecipient        = errors.New("bridge: zero recipient")
	ErrZeroAddress          = errors.New("bridge: zero address")
	ErrAmountTooLow         = errors.New("bridge: amount too low")
	ErrBridgePaused         = errors.New("bridge: paused")
	ErrInvalidConfiguration = errors.New("bridge: invalid configuration")
	ErrReentrancy           = errors.New("bridge: reentrant call")
)

// Ledger is the fungible-token capability the coordinator locks, burns
// and mints against. token.Token satisfies it.
type Ledger interface {
	TotalSupply() *big.Int
	BalanceOf(addr common.Address) *big.Int
	Transfer(ctx types.CallContext, to common.Address, amount *big.Int) error
	TransferFrom(ctx types.CallContext, from, to common.Address, amount *big.Int) error
	Approve(ctx types.CallContext, spender common.Address, amount *big.Int) error
	Mint(ctx types.CallContext, to common.Address, amount *big.Int) error
	Burn(ctx types.CallContext, amount *big.Int) error
	BurnFrom(ctx types.CallContext, from common.Address, amount *big.Int) error
}

// Pausable is implemented by ledgers whose transfer entry points the
// bridge can gate during a pause.
type Pausable interface {
	Pause(ctx types.CallContext) error
	Unpause(ctx types.CallContext) error
}

// Config is the init-time parameter block. The same generic coordinator
// serves every asset pair; the constants that used to vary per variant
// all live here.
type Config struct {
	RelayAddress  common.Address // only this identity may deliver inbound messages
	Gateway       relay.Gateway
	LocalAsset    Ledger
	PairedChainID int            // chain id of the twin deployment
	PairedAsset   common.Address // asset the twin mints/unlocks, informational
	FeeToken      common.Address
	FeeLedger     Ledger   // ledger of FeeToken, used for relay approvals
	FeeAmount     *big.Int // fee floor, originating-side
	Confirmations int
}

// Bridge is the cross-chain coordinator: one deployment of the
// lock-or-burn / unlock-or-mint state machine. A pair of these at the
// same address on two chains, joined by a relay, forms the protocol.
type Bridge struct {
	mu      sync.Mutex
	entered bool // non-reentrant flag, recursive re-entry only

	addr        common.Address // identical on both chains by deployment
	owner       common.Address
	homeChainID int

	initialized bool
	role        types.ChainRole
	chainID     int // observed once at init
	paused      bool

	relayAddr     common.Address
	gateway       relay.Gateway
	localAsset    Ledger
	pairedChainID int
	pairedAsset   common.Address
	feeToken      common.Address
	feeLedger     Ledger
	feeAmount     *big.Int
	confirmations int

	// native currency pushed to the contract address out-of-band,
	// recoverable by the owner only
	nativeBalance *big.Int
}

func New(addr, owner common.Address, homeChainID int) *Bridge {
	return &Bridge{
		addr:        addr,
		owner:       owner,
		homeChainID: homeChainID,
		feeAmount:   new(big.Int),
	}
}

// Init populates the configuration exactly once and resolves the chain
// role from the observed chain id. Re-initialization is forbidden; the
// role never changes afterward.
func (b *Bridge) Init(ctx types.CallContext, cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return ErrAlreadyInitialized
	}
	if ctx.Caller != b.owner {
		return ErrNotOwner
	}
	if cfg.RelayAddress == (common.Address{}) {
		return ErrZeroAddress
	}
	if cfg.Gateway == nil || cfg.LocalAsset == nil {
		return ErrInvalidConfiguration
	}

	b.relayAddr = cfg.RelayAddress
	b.gateway = cfg.Gateway
	b.localAsset = cfg.LocalAsset
	b.pairedChainID = cfg.PairedChainID
	b.pairedAsset = cfg.PairedAsset
	b.feeToken = cfg.FeeToken
	b.feeLedger = cfg.FeeLedger
	b.feeAmount = types.BigCopy(cfg.FeeAmount)
	b.confirmations = cfg.Confirmations

	b.role = Resolve(b.homeChainID, ctx.ChainID)
	b.chainID = ctx.ChainID
	b.initialized = true

	// standing approval lets the relay pull fees
	if b.feeLedger != nil {
		if err := b.feeLedger.Approve(b.selfCtx(), b.relayAddr, maxApproval()); err != nil {
			b.initialized = false
			return err
		}
	}
	return nil
}

func (b *Bridge) Address() common.Address { return b.addr }
func (b *Bridge) Owner() common.Address   { return b.owner }

func (b *Bridge) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

func (b *Bridge) Role() types.ChainRole {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.role
}

func (b *Bridge) IsHomeChain() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.role == types.RoleHome
}

func (b *Bridge) FeeAmount() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.feeAmount)
}

func (b *Bridge) Confirmations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.confirmations
}

func (b *Bridge) RelayAddress() common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.relayAddr
}

func (b *Bridge) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// InitiateTransfer is the outbound entry point. It moves the caller's
// tokens first (lock on away, burn on home), then hands the encoded
// package to the relay; a relay failure rolls the token movement back
// so the whole call fails atomically.
func (b *Bridge) InitiateTransfer(ctx types.CallContext, recipient common.Address, amount *big.Int, source common.Address, express bool) (string, error) {
	if err := b.enter(); err != nil {
		return "", err
	}
	defer b.exit()

	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return "", ErrNotInitialized
	}
	if b.paused {
		b.mu.Unlock()
		return "", ErrBridgePaused
	}
	role := b.role
	fee := new(big.Int).Set(b.feeAmount)
	gateway := b.gateway
	asset := b.localAsset
	pairedChain := b.pairedChainID
	confirmations := b.confirmations
	b.mu.Unlock()

	if recipient == (common.Address{}) {
		return "", ErrZeroRecipient
	}
	if amount == nil || amount.Cmp(fee) <= 0 {
		return "", ErrAmountTooLow
	}

	// One fee rule for every variant: the originating chain deducts,
	// the receiving chain applies net verbatim.
	net := new(big.Int).Sub(amount, fee)
	if net.Sign() <= 0 {
		return "", ErrAmountTooLow
	}

	var undo func()
	switch role {
	case types.RoleAway:
		// lock: full amount into contract custody, fee included
		if err := asset.TransferFrom(b.selfCtx(), ctx.Caller, b.addr, amount); err != nil {
			return "", err
		}
		caller := ctx.Caller
		undo = func() { asset.Transfer(b.selfCtx(), caller, amount) }
	case types.RoleHome:
		// burn: the fee stays behind as locked surplus on the away side
		if err := asset.BurnFrom(b.selfCtx(), ctx.Caller, amount); err != nil {
			return "", err
		}
		caller := ctx.Caller
		undo = func() { asset.Mint(b.selfCtx(), caller, amount) }
	default:
		// unreachable given two-valued resolution, kept as an assertion
		return "", ErrInvalidConfiguration
	}

	data, err := EncodePackage(TransferPackage{Recipient: recipient, Amount: net, Source: source})
	if err != nil {
		undo()
		return "", err
	}

	send := gateway.SendRequest
	if express {
		send = gateway.SendRequestExpress
	}
	txID, err := send(b.addr, pairedChain, fee, source, data, confirmations)
	if err != nil {
		undo()
		return "", err
	}
	return txID, nil
}

// MessageProcess is the inbound entry point invoked by the relay on
// the destination chain. The recipient and amount placeholders of the
// relay envelope are ignored; the decoded package carries the real
// values one layer deeper.
func (b *Bridge) MessageProcess(ctx types.CallContext, txID string, sourceChainID int, sender common.Address, recipient common.Address, amount *big.Int, data []byte) error {
	if err := b.enter(); err != nil {
		return err
	}
	defer b.exit()

	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return ErrNotInitialized
	}
	relayAddr := b.relayAddr
	role := b.role
	asset := b.localAsset
	b.mu.Unlock()

	if ctx.Caller != relayAddr {
		return ErrNotRelay
	}
	// twin deployments share one address; anything else is a misroute
	if sender != b.addr {
		return ErrUnknownSender
	}

	pkg, err := DecodePackage(data)
	if err != nil {
		return err
	}
	if pkg.Recipient == (common.Address{}) {
		return ErrZeroRecipient
	}

	// no fee on the receive leg: pkg.Amount is already net
	switch role {
	case types.RoleHome:
		return asset.Mint(b.selfCtx(), pkg.Recipient, pkg.Amount)
	case types.RoleAway:
		return asset.Transfer(b.selfCtx(), pkg.Recipient, pkg.Amount)
	default:
		return ErrInvalidConfiguration
	}
}

// selfCtx is the context the bridge contract uses when it is itself
// the caller of ledger operations.
func (b *Bridge) selfCtx() types.CallContext {
	return types.CallContext{Caller: b.addr, ChainID: b.chainID}
}

func (b *Bridge) enter() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.entered {
		return ErrReentrancy
	}
	b.entered = true
	return nil
}

func (b *Bridge) exit() {
	b.mu.Lock()
	b.entered = false
	b.mu.Unlock()
}

// maxApproval is the standing allowance granted to the relay identity.
func maxApproval() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}
