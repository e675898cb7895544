package bridge

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"gogaussbridge/relay"
	"gogaussbridge/token"
	"gogaussbridge/types"
)

const (
	homeChainID = 1777
	awayChainID = 1
)

var (
	contractAddr  = common.HexToAddress("0x4bD1280D2e67ef9a1d15A822CD96a8a1A282afea")
	ownerAddr     = common.HexToAddress("0x0000000000000000000000000000000000000aa1")
	relayAddr     = common.HexToAddress("0x0000000000000000000000000000000000000bb1")
	issuerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000cc1")
	userAddr      = common.HexToAddress("0x0000000000000000000000000000000000000dd1")
	recipientAddr = common.HexToAddress("0x0000000000000000000000000000000000000ee1")
)

func callAs(caller common.Address, chainID int) types.CallContext {
	return types.CallContext{Caller: caller, ChainID: chainID}
}

// pair is a full two-chain deployment joined by an in-process relay:
// the away side locks an underlying asset, the home side mints a
// wrapped twin.
type pair struct {
	net        *relay.Network
	home, away *Bridge
	wrapped    *token.Token
	underlying *token.Token
}

func newPair(t *testing.T, fee int64, confirmations int) *pair {
	t.Helper()

	net := relay.NewNetwork(relayAddr)

	underlying := token.New("USD Coin", "USDC", 6, issuerAddr)
	if err := underlying.Mint(callAs(issuerAddr, awayChainID), userAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("fund user: %v", err)
	}
	if err := underlying.Approve(callAs(userAddr, awayChainID), contractAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("approve bridge: %v", err)
	}

	away := New(contractAddr, ownerAddr, homeChainID)
	err := away.Init(callAs(ownerAddr, awayChainID), Config{
		RelayAddress:  relayAddr,
		Gateway:       net.Bind(awayChainID, contractAddr),
		LocalAsset:    underlying,
		PairedChainID: homeChainID,
		PairedAsset:   contractAddr,
		FeeToken:      contractAddr,
		FeeLedger:     underlying,
		FeeAmount:     big.NewInt(fee),
		Confirmations: confirmations,
	})
	if err != nil {
		t.Fatalf("init away: %v", err)
	}

	wrapped := token.New("Gauss USD Coin", "gUSDC", 6, contractAddr)
	home := New(contractAddr, ownerAddr, homeChainID)
	err = home.Init(callAs(ownerAddr, homeChainID), Config{
		RelayAddress:  relayAddr,
		Gateway:       net.Bind(homeChainID, contractAddr),
		LocalAsset:    wrapped,
		PairedChainID: awayChainID,
		PairedAsset:   contractAddr,
		FeeToken:      contractAddr,
		FeeLedger:     wrapped,
		FeeAmount:     big.NewInt(fee),
		Confirmations: confirmations,
	})
	if err != nil {
		t.Fatalf("init home: %v", err)
	}

	net.Register(awayChainID, away)
	net.Register(homeChainID, home)

	return &pair{net: net, home: home, away: away, wrapped: wrapped, underlying: underlying}
}

// deliver pumps the relay until the queue drains.
func (p *pair) deliver(t *testing.T) {
	t.Helper()
	for i := 0; i < 64 && len(p.net.Pending()) > 0; i++ {
		p.net.Confirm(1)
		_, failed := p.net.DeliverReady()
		for _, m := range failed {
			t.Fatalf("delivery of %s reverted: %s", m.TxID, m.Failed)
		}
	}
	if n := len(p.net.Pending()); n != 0 {
		t.Fatalf("%d messages still pending", n)
	}
}

func TestInitOnce(t *testing.T) {
	p := newPair(t, 1, 1)

	err := p.away.Init(callAs(ownerAddr, homeChainID), Config{
		RelayAddress: relayAddr,
		Gateway:      p.net.Bind(awayChainID, contractAddr),
		LocalAsset:   p.underlying,
	})
	if err != ErrAlreadyInitialized {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
	// re-init on the home chain id must not flip the cached role
	if p.away.Role() != types.RoleAway {
		t.Errorf("role changed after rejected re-init: %v", p.away.Role())
	}
}

func TestInitOwnerOnly(t *testing.T) {
	b := New(contractAddr, ownerAddr, homeChainID)
	err := b.Init(callAs(userAddr, awayChainID), Config{
		RelayAddress: relayAddr,
		Gateway:      relay.NewNetwork(relayAddr).Bind(awayChainID, contractAddr),
		LocalAsset:   token.New("x", "X", 6, issuerAddr),
	})
	if err != ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if b.Initialized() {
		t.Error("bridge initialized by non-owner")
	}
}

func TestRoleResolution(t *testing.T) {
	p := newPair(t, 1, 1)

	if p.home.Role() != types.RoleHome || !p.home.IsHomeChain() {
		t.Errorf("home bridge role: %v", p.home.Role())
	}
	if p.away.Role() != types.RoleAway || p.away.IsHomeChain() {
		t.Errorf("away bridge role: %v", p.away.Role())
	}
}

func TestTransferBeforeInit(t *testing.T) {
	b := New(contractAddr, ownerAddr, homeChainID)
	_, err := b.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(10), userAddr, false)
	if err != ErrNotInitialized {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestFeeFloor(t *testing.T) {
	p := newPair(t, 5, 1)

	// amount <= fee always fails
	for _, amount := range []int64{0, 4, 5} {
		_, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(amount), userAddr, false)
		if err != ErrAmountTooLow {
			t.Errorf("amount %d: expected ErrAmountTooLow, got %v", amount, err)
		}
	}

	// amount == fee+1 forwards exactly net 1
	if _, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(6), userAddr, false); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	pending := p.net.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(pending))
	}
	pkg, err := DecodePackage(pending[0].Data)
	if err != nil {
		t.Fatalf("decode queued package: %v", err)
	}
	if pkg.Amount.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("net amount: got %s, want 1", pkg.Amount)
	}
}

func TestZeroRecipient(t *testing.T) {
	p := newPair(t, 1, 1)

	_, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), common.Address{}, big.NewInt(10), userAddr, false)
	if err != ErrZeroRecipient {
		t.Errorf("expected ErrZeroRecipient, got %v", err)
	}
}

func TestAwayTransferLocksCustody(t *testing.T) {
	p := newPair(t, 2, 1)

	if _, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(100), userAddr, false); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	// full amount locked, fee included
	if got := p.underlying.BalanceOf(userAddr); got.Cmp(big.NewInt(900)) != 0 {
		t.Errorf("user balance: got %s, want 900", got)
	}
	if got := p.underlying.BalanceOf(contractAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("custody: got %s, want 100", got)
	}
}

func TestHomeTransferBurns(t *testing.T) {
	p := newPair(t, 2, 1)

	// give the user wrapped balance the way it arrives: over the bridge
	if _, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), userAddr, big.NewInt(100), userAddr, false); err != nil {
		t.Fatalf("inbound leg: %v", err)
	}
	p.deliver(t)
	if got := p.wrapped.BalanceOf(userAddr); got.Cmp(big.NewInt(98)) != 0 {
		t.Fatalf("wrapped balance: got %s, want 98", got)
	}

	supplyBefore := p.wrapped.TotalSupply()
	if _, err := p.home.InitiateTransfer(callAs(userAddr, homeChainID), recipientAddr, big.NewInt(50), userAddr, false); err != nil {
		t.Fatalf("outbound burn leg: %v", err)
	}

	if got := p.wrapped.BalanceOf(userAddr); got.Cmp(big.NewInt(48)) != 0 {
		t.Errorf("wrapped balance after burn: got %s, want 48", got)
	}
	wantSupply := new(big.Int).Sub(supplyBefore, big.NewInt(50))
	if got := p.wrapped.TotalSupply(); got.Cmp(wantSupply) != 0 {
		t.Errorf("supply after burn: got %s, want %s", got, wantSupply)
	}
}

func TestRelayDeliveryMints(t *testing.T) {
	p := newPair(t, 1, 3)

	if _, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(100), userAddr, false); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	// not before the confirmation count
	p.net.Confirm(2)
	p.net.DeliverReady()
	if got := p.wrapped.BalanceOf(recipientAddr); got.Sign() != 0 {
		t.Fatalf("minted before confirmations: %s", got)
	}

	p.net.Confirm(1)
	delivered, failed := p.net.DeliverReady()
	if len(delivered) != 1 || len(failed) != 0 {
		t.Fatalf("delivered %d, failed %d", len(delivered), len(failed))
	}

	// exactly the net amount, no fee re-deduction on the receive leg
	if got := p.wrapped.BalanceOf(recipientAddr); got.Cmp(big.NewInt(99)) != 0 {
		t.Errorf("recipient wrapped balance: got %s, want 99", got)
	}
}

func TestRoundTrip(t *testing.T) {
	p := newPair(t, 1, 1)

	if _, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(100), userAddr, false); err != nil {
		t.Fatalf("outbound: %v", err)
	}
	p.deliver(t)

	if got := p.wrapped.BalanceOf(recipientAddr); got.Cmp(big.NewInt(99)) != 0 {
		t.Fatalf("wrapped after first leg: got %s, want 99", got)
	}

	if _, err := p.home.InitiateTransfer(callAs(recipientAddr, homeChainID), userAddr, big.NewInt(99), recipientAddr, false); err != nil {
		t.Fatalf("return leg: %v", err)
	}
	p.deliver(t)

	// 1000 - 100 locked + 98 returned
	if got := p.underlying.BalanceOf(userAddr); got.Cmp(big.NewInt(998)) != 0 {
		t.Errorf("user underlying after round trip: got %s, want 998", got)
	}
	// custody retains the two fees
	if got := p.underlying.BalanceOf(contractAddr); got.Cmp(big.NewInt(2)) != 0 {
		t.Errorf("custody after round trip: got %s, want 2", got)
	}
	if got := p.wrapped.TotalSupply(); got.Sign() != 0 {
		t.Errorf("wrapped supply after round trip: got %s, want 0", got)
	}
}

func TestExpressDelivery(t *testing.T) {
	p := newPair(t, 1, 10)

	if _, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(100), userAddr, true); err != nil {
		t.Fatalf("express transfer: %v", err)
	}

	// no confirmations at all
	delivered, failed := p.net.DeliverReady()
	if len(delivered) != 1 || len(failed) != 0 {
		t.Fatalf("delivered %d, failed %d", len(delivered), len(failed))
	}
	if got := p.wrapped.BalanceOf(recipientAddr); got.Cmp(big.NewInt(99)) != 0 {
		t.Errorf("recipient wrapped balance: got %s, want 99", got)
	}
}

func TestMessageProcessAuthorization(t *testing.T) {
	p := newPair(t, 1, 1)

	data, err := EncodePackage(TransferPackage{Recipient: recipientAddr, Amount: big.NewInt(10), Source: userAddr})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// a non-relay caller is rejected regardless of payload validity
	err = p.home.MessageProcess(callAs(userAddr, homeChainID), "tx-1", awayChainID, contractAddr, contractAddr, new(big.Int), data)
	if err != ErrNotRelay {
		t.Errorf("expected ErrNotRelay, got %v", err)
	}
	if got := p.wrapped.BalanceOf(recipientAddr); got.Sign() != 0 {
		t.Errorf("unauthorized call minted: %s", got)
	}
}

func TestMessageProcessWrongSender(t *testing.T) {
	p := newPair(t, 1, 1)

	data, _ := EncodePackage(TransferPackage{Recipient: recipientAddr, Amount: big.NewInt(10), Source: userAddr})

	err := p.home.MessageProcess(callAs(relayAddr, homeChainID), "tx-1", awayChainID, userAddr, contractAddr, new(big.Int), data)
	if err != ErrUnknownSender {
		t.Errorf("expected ErrUnknownSender, got %v", err)
	}
}

func TestMessageProcessBadPayload(t *testing.T) {
	p := newPair(t, 1, 1)

	err := p.home.MessageProcess(callAs(relayAddr, homeChainID), "tx-1", awayChainID, contractAddr, contractAddr, new(big.Int), []byte("garbage"))
	if err != ErrBadPackage {
		t.Errorf("expected ErrBadPackage, got %v", err)
	}
}

func TestMessageProcessExceedsCustody(t *testing.T) {
	p := newPair(t, 1, 1)

	// nothing locked yet; an unlock for 10 must revert whole
	data, _ := EncodePackage(TransferPackage{Recipient: recipientAddr, Amount: big.NewInt(10), Source: userAddr})
	err := p.away.MessageProcess(callAs(relayAddr, awayChainID), "tx-1", homeChainID, contractAddr, contractAddr, new(big.Int), data)
	if err != token.ErrInsufficientBalance {
		t.Errorf("expected token.ErrInsufficientBalance, got %v", err)
	}
	if got := p.underlying.BalanceOf(recipientAddr); got.Sign() != 0 {
		t.Errorf("partial credit: %s", got)
	}
}

func TestPauseGatesOutbound(t *testing.T) {
	p := newPair(t, 1, 1)

	if err := p.home.Pause(callAs(userAddr, homeChainID)); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := p.home.Pause(callAs(ownerAddr, homeChainID)); err != nil {
		t.Fatalf("pause: %v", err)
	}

	_, err := p.home.InitiateTransfer(callAs(userAddr, homeChainID), recipientAddr, big.NewInt(10), userAddr, false)
	if err != ErrBridgePaused {
		t.Errorf("expected ErrBridgePaused, got %v", err)
	}
	// the bridge-owned ledger is gated too
	if err := p.wrapped.Transfer(callAs(userAddr, homeChainID), recipientAddr, big.NewInt(0)); err != token.ErrPaused {
		t.Errorf("expected token.ErrPaused, got %v", err)
	}

	if err := p.home.Unpause(callAs(ownerAddr, homeChainID)); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if p.home.Paused() {
		t.Error("still paused after unpause")
	}
}

type failingGateway struct{}

func (failingGateway) SendRequest(common.Address, int, *big.Int, common.Address, []byte, int) (string, error) {
	return "", errors.New("relay unavailable")
}

func (failingGateway) SendRequestExpress(common.Address, int, *big.Int, common.Address, []byte, int) (string, error) {
	return "", errors.New("relay unavailable")
}

func TestRelayFailureRollsBackLock(t *testing.T) {
	p := newPair(t, 1, 1)

	if err := p.away.UpdateGateway(callAs(ownerAddr, awayChainID), failingGateway{}); err != nil {
		t.Fatalf("update gateway: %v", err)
	}

	_, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), recipientAddr, big.NewInt(100), userAddr, false)
	if err == nil {
		t.Fatal("expected relay error")
	}

	// the lock was rolled back, the whole call failed atomically
	if got := p.underlying.BalanceOf(userAddr); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("user balance after rollback: got %s, want 1000", got)
	}
	if got := p.underlying.BalanceOf(contractAddr); got.Sign() != 0 {
		t.Errorf("custody after rollback: got %s, want 0", got)
	}
}

func TestRelayFailureRollsBackBurn(t *testing.T) {
	p := newPair(t, 1, 1)

	// arrive some wrapped balance first
	if _, err := p.away.InitiateTransfer(callAs(userAddr, awayChainID), userAddr, big.NewInt(100), userAddr, false); err != nil {
		t.Fatalf("fund leg: %v", err)
	}
	p.deliver(t)

	if err := p.home.UpdateGateway(callAs(ownerAddr, homeChainID), failingGateway{}); err != nil {
		t.Fatalf("update gateway: %v", err)
	}

	before := p.wrapped.BalanceOf(userAddr)
	_, err := p.home.InitiateTransfer(callAs(userAddr, homeChainID), recipientAddr, big.NewInt(50), userAddr, false)
	if err == nil {
		t.Fatal("expected relay error")
	}
	if got := p.wrapped.BalanceOf(userAddr); got.Cmp(before) != 0 {
		t.Errorf("wrapped balance after rollback: got %s, want %s", got, before)
	}
}

// reentrantLedger calls back into the bridge from inside Mint, the way
// a malicious token would.
type reentrantLedger struct {
	*token.Token
	b     *Bridge
	inner error
}

func (r *reentrantLedger) Mint(ctx types.CallContext, to common.Address, amount *big.Int) error {
	_, r.inner = r.b.InitiateTransfer(types.CallContext{Caller: to, ChainID: homeChainID}, to, big.NewInt(10), to, false)
	return r.inner
}

func TestReentrancyGuard(t *testing.T) {
	net := relay.NewNetwork(relayAddr)
	ledger := &reentrantLedger{Token: token.New("evil", "EVL", 6, contractAddr)}

	b := New(contractAddr, ownerAddr, homeChainID)
	ledger.b = b
	err := b.Init(callAs(ownerAddr, homeChainID), Config{
		RelayAddress:  relayAddr,
		Gateway:       net.Bind(homeChainID, contractAddr),
		LocalAsset:    ledger,
		PairedChainID: awayChainID,
		FeeAmount:     big.NewInt(1),
		Confirmations: 1,
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	data, _ := EncodePackage(TransferPackage{Recipient: recipientAddr, Amount: big.NewInt(10), Source: userAddr})
	err = b.MessageProcess(callAs(relayAddr, homeChainID), "tx-1", awayChainID, contractAddr, contractAddr, new(big.Int), data)
	if err != ErrReentrancy {
		t.Errorf("expected ErrReentrancy, got %v", err)
	}
	if ledger.inner != ErrReentrancy {
		t.Errorf("nested call error: got %v, want ErrReentrancy", ledger.inner)
	}
}
