package relay

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"gogaussbridge/types"
)

var (
	ErrNoEndpoint = errors.New("relay: no endpoint registered for chain")
	ErrUnknownTx  = errors.New("relay: unknown transaction id")
)

// Gateway is the capability the bridge coordinator consumes to send a
// message to its twin on the other chain. The relay's validator
// consensus, confirmation policy and replay protection live behind
// this interface.
type Gateway interface {
	SendRequest(recipient common.Address, destChainID int, feeAmount *big.Int, source common.Address, data []byte, confirmations int) (string, error)
	SendRequestExpress(recipient common.Address, destChainID int, feeAmount *big.Int, source common.Address, data []byte, confirmations int) (string, error)
}

// Endpoint is the inbound callback a bridge deployment exposes to the
// relay on its chain.
type Endpoint interface {
	MessageProcess(ctx types.CallContext, txID string, sourceChainID int, sender common.Address, recipient common.Address, amount *big.Int, data []byte) error
}

// Message is one queued cross-chain send.
type Message struct {
	TxID        string
	SourceChain int
	DestChain   int
	Sender      common.Address // contract that called SendRequest
	Recipient   common.Address // nominal recipient: the twin contract
	FeeAmount   *big.Int
	Source      common.Address
	Data        []byte
	Required    int // confirmations needed before delivery
	Confirmed   int
	Express     bool
	Failed      string // delivery error, empty while queued
}

// Network is an in-process relay joining the bridge deployments of a
// two-chain protocol. It queues sends, gates them on a confirmation
// count, and delivers each message to the destination endpoint at most
// once. A failed delivery is parked until Retry re-queues it.
type Network struct {
	mu        sync.Mutex
	identity  common.Address // caller identity endpoints see on delivery
	endpoints map[int]Endpoint
	queue     []*Message
	failed    []*Message
}

func NewNetwork(identity common.Address) *Network {
	return &Network{
		identity:  identity,
		endpoints: make(map[int]Endpoint),
	}
}

func (n *Network) Identity() common.Address { return n.identity }

func (n *Network) Register(chainID int, ep Endpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.endpoints[chainID] = ep
}

// Bind returns the Gateway handle for a contract on sourceChain. The
// handle stamps outgoing messages with the contract's address so the
// destination can verify the sender.
func (n *Network) Bind(sourceChain int, sender common.Address) Gateway {
	return &boundGateway{net: n, chain: sourceChain, sender: sender}
}

type boundGateway struct {
	net    *Network
	chain  int
	sender common.Address
}

func (g *boundGateway) SendRequest(recipient common.Address, destChainID int, feeAmount *big.Int, source common.Address, data []byte, confirmations int) (string, error) {
	return g.net.enqueue(g.chain, g.sender, recipient, destChainID, feeAmount, source, data, confirmations, false)
}

func (g *boundGateway) SendRequestExpress(recipient common.Address, destChainID int, feeAmount *big.Int, source common.Address, data []byte, confirmations int) (string, error) {
	return g.net.enqueue(g.chain, g.sender, recipient, destChainID, feeAmount, source, data, confirmations, true)
}

func (n *Network) enqueue(sourceChain int, sender, recipient common.Address, destChain int, feeAmount *big.Int, source common.Address, data []byte, confirmations int, express bool) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.endpoints[destChain]; !ok {
		return "", ErrNoEndpoint
	}

	msg := &Message{
		TxID:        uuid.New().String(),
		SourceChain: sourceChain,
		DestChain:   destChain,
		Sender:      sender,
		Recipient:   recipient,
		FeeAmount:   types.BigCopy(feeAmount),
		Source:      source,
		Data:        append([]byte(nil), data...),
		Required:    confirmations,
		Express:     express,
	}
	n.queue = append(n.queue, msg)
	return msg.TxID, nil
}

// Confirm advances every queued message by blocks confirmations.
func (n *Network) Confirm(blocks int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.queue {
		m.Confirmed += blocks
	}
}

// DeliverReady invokes the destination endpoint for every message that
// reached its confirmation count (express messages are delivered
// immediately). Each message is removed from the queue before its
// endpoint runs, so a delivery is attempted at most once; a reverted
// delivery parks the message in the failed set.
func (n *Network) DeliverReady() (delivered []*Message, failed []*Message) {
	n.mu.Lock()
	var ready, rest []*Message
	for _, m := range n.queue {
		if m.Express || m.Confirmed >= m.Required {
			ready = append(ready, m)
		} else {
			rest = append(rest, m)
		}
	}
	n.queue = rest
	n.mu.Unlock()

	for _, m := range ready {
		ep := n.endpoint(m.DestChain)
		if ep == nil {
			m.Failed = ErrNoEndpoint.Error()
		} else {
			ctx := types.CallContext{Caller: n.identity, ChainID: m.DestChain}
			if err := ep.MessageProcess(ctx, m.TxID, m.SourceChain, m.Sender, m.Recipient, new(big.Int), m.Data); err != nil {
				m.Failed = err.Error()
			}
		}
		if m.Failed != "" {
			failed = append(failed, m)
		} else {
			delivered = append(delivered, m)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		n.failed = append(n.failed, failed...)
		n.mu.Unlock()
	}
	return delivered, failed
}

// Retry moves a parked message back into the delivery queue. This is
// the relay-side delivery-retry policy for reverted deliveries.
func (n *Network) Retry(txID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, m := range n.failed {
		if m.TxID == txID {
			m.Failed = ""
			n.failed = append(n.failed[:i], n.failed[i+1:]...)
			n.queue = append(n.queue, m)
			return nil
		}
	}
	return ErrUnknownTx
}

// Pending reports queued, undelivered messages.
func (n *Network) Pending() []*Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Message, len(n.queue))
	copy(out, n.queue)
	return out
}

// FailedMessages reports parked, reverted deliveries.
func (n *Network) FailedMessages() []*Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Message, len(n.failed))
	copy(out, n.failed)
	return out
}

func (n *Network) endpoint(chainID int) Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.endpoints[chainID]
}
