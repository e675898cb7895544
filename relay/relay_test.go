package relay

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"gogaussbridge/types"
)

var (
	relayIdent = common.HexToAddress("0x0000000000000000000000000000000000000bb1")
	senderAddr = common.HexToAddress("0x4bD1280D2e67ef9a1d15A822CD96a8a1A282afea")
	userAddr   = common.HexToAddress("0x0000000000000000000000000000000000000dd1")
)

// recordingEndpoint captures deliveries and optionally reverts them.
type recordingEndpoint struct {
	calls []string
	fail  error
}

func (e *recordingEndpoint) MessageProcess(ctx types.CallContext, txID string, sourceChainID int, sender common.Address, recipient common.Address, amount *big.Int, data []byte) error {
	e.calls = append(e.calls, txID)
	return e.fail
}

func newTestNetwork(dest *recordingEndpoint) (*Network, Gateway) {
	net := NewNetwork(relayIdent)
	net.Register(2, dest)
	return net, net.Bind(1, senderAddr)
}

func send(t *testing.T, gw Gateway, confirmations int) string {
	t.Helper()
	txID, err := gw.SendRequest(senderAddr, 2, big.NewInt(1), userAddr, []byte("payload"), confirmations)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return txID
}

func TestConfirmationGate(t *testing.T) {
	ep := &recordingEndpoint{}
	net, gw := newTestNetwork(ep)

	txID := send(t, gw, 3)

	net.Confirm(2)
	delivered, _ := net.DeliverReady()
	if len(delivered) != 0 || len(ep.calls) != 0 {
		t.Fatalf("delivered below the confirmation count")
	}
	if len(net.Pending()) != 1 {
		t.Fatalf("message dropped from queue")
	}

	net.Confirm(1)
	delivered, failed := net.DeliverReady()
	if len(delivered) != 1 || len(failed) != 0 {
		t.Fatalf("delivered %d, failed %d", len(delivered), len(failed))
	}
	if len(ep.calls) != 1 || ep.calls[0] != txID {
		t.Errorf("endpoint calls: %v", ep.calls)
	}
}

func TestDeliverAtMostOnce(t *testing.T) {
	ep := &recordingEndpoint{}
	net, gw := newTestNetwork(ep)

	send(t, gw, 1)
	net.Confirm(1)
	net.DeliverReady()
	net.DeliverReady()
	net.Confirm(5)
	net.DeliverReady()

	if len(ep.calls) != 1 {
		t.Errorf("endpoint invoked %d times, want 1", len(ep.calls))
	}
	if len(net.Pending()) != 0 {
		t.Errorf("delivered message still pending")
	}
}

func TestExpressBypassesConfirmations(t *testing.T) {
	ep := &recordingEndpoint{}
	net, gw := newTestNetwork(ep)

	_, err := gw.SendRequestExpress(senderAddr, 2, big.NewInt(1), userAddr, []byte("payload"), 100)
	if err != nil {
		t.Fatalf("express send: %v", err)
	}

	delivered, _ := net.DeliverReady()
	if len(delivered) != 1 || len(ep.calls) != 1 {
		t.Errorf("express message not delivered immediately")
	}
}

func TestFailedDeliveryParksAndRetries(t *testing.T) {
	ep := &recordingEndpoint{fail: errors.New("endpoint reverted")}
	net, gw := newTestNetwork(ep)

	txID := send(t, gw, 1)
	net.Confirm(1)
	delivered, failed := net.DeliverReady()
	if len(delivered) != 0 || len(failed) != 1 {
		t.Fatalf("delivered %d, failed %d", len(delivered), len(failed))
	}
	if failed[0].Failed == "" {
		t.Error("failed message carries no reason")
	}
	if got := net.FailedMessages(); len(got) != 1 || got[0].TxID != txID {
		t.Fatalf("failed set: %v", got)
	}

	// the endpoint recovers; retry re-queues and the message goes through
	ep.fail = nil
	if err := net.Retry(txID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(net.FailedMessages()) != 0 {
		t.Error("retried message still parked")
	}
	net.Confirm(1)
	delivered, failed = net.DeliverReady()
	if len(delivered) != 1 || len(failed) != 0 {
		t.Fatalf("after retry: delivered %d, failed %d", len(delivered), len(failed))
	}
	if len(ep.calls) != 2 {
		t.Errorf("endpoint invoked %d times, want 2", len(ep.calls))
	}
}

func TestRetryUnknownTx(t *testing.T) {
	net := NewNetwork(relayIdent)
	if err := net.Retry("no-such-tx"); err != ErrUnknownTx {
		t.Errorf("expected ErrUnknownTx, got %v", err)
	}
}

func TestSendToUnregisteredChain(t *testing.T) {
	net := NewNetwork(relayIdent)
	gw := net.Bind(1, senderAddr)

	_, err := gw.SendRequest(senderAddr, 9, big.NewInt(1), userAddr, nil, 1)
	if err != ErrNoEndpoint {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
	if len(net.Pending()) != 0 {
		t.Errorf("rejected message was queued")
	}
}

func TestDeliveryCallerIdentity(t *testing.T) {
	var seen types.CallContext
	var seenSender common.Address
	net := NewNetwork(relayIdent)
	net.Register(2, endpointFunc(func(ctx types.CallContext, txID string, sourceChainID int, sender common.Address, recipient common.Address, amount *big.Int, data []byte) error {
		seen = ctx
		seenSender = sender
		return nil
	}))

	gw := net.Bind(1, senderAddr)
	if _, err := gw.SendRequest(senderAddr, 2, big.NewInt(1), userAddr, []byte("x"), 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	net.DeliverReady()

	if seen.Caller != relayIdent {
		t.Errorf("delivery caller: got %s, want the relay identity", seen.Caller.Hex())
	}
	if seen.ChainID != 2 {
		t.Errorf("delivery chain id: got %d, want 2", seen.ChainID)
	}
	if seenSender != senderAddr {
		t.Errorf("stamped sender: got %s", seenSender.Hex())
	}
}

type endpointFunc func(ctx types.CallContext, txID string, sourceChainID int, sender common.Address, recipient common.Address, amount *big.Int, data []byte) error

func (f endpointFunc) MessageProcess(ctx types.CallContext, txID string, sourceChainID int, sender common.Address, recipient common.Address, amount *big.Int, data []byte) error {
	return f(ctx, txID, sourceChainID, sender, recipient, amount, data)
}
