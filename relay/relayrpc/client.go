// Package relayrpc implements the relay gateway against an external
// relay node's JSON-RPC surface, for deployments where the two chain
// instances do not share a process.
package relayrpc

import (
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ybbus/jsonrpc"
)

var ErrAllEndpointsFailed = errors.New("relayrpc: all relay endpoints failed")

// WithClient runs f against each configured relay endpoint in order
// until one succeeds.
func WithClient[T any](endpoints []string, f func(client jsonrpc.RPCClient) (T, error)) (res T, err error) {
	for _, url := range endpoints {
		client := jsonrpc.NewClient(url)
		res, err = f(client)
		if err == nil {
			return
		}
		log.Printf("relayrpc: endpoint %s failed: %s", url, err.Error())
	}
	if err == nil {
		err = ErrAllEndpointsFailed
	}
	return
}

// Client is a relay.Gateway backed by a relay node's JSON-RPC API.
type Client struct {
	endpoints []string
}

func New(endpoints []string) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("relayrpc: no relay endpoints configured")
	}
	return &Client{endpoints: endpoints}, nil
}

func (c *Client) SendRequest(recipient common.Address, destChainID int, feeAmount *big.Int, source common.Address, data []byte, confirmations int) (string, error) {
	return c.send("relay_sendRequest", recipient, destChainID, feeAmount, source, data, confirmations)
}

func (c *Client) SendRequestExpress(recipient common.Address, destChainID int, feeAmount *big.Int, source common.Address, data []byte, confirmations int) (string, error) {
	return c.send("relay_sendRequestExpress", recipient, destChainID, feeAmount, source, data, confirmations)
}

func (c *Client) send(method string, recipient common.Address, destChainID int, feeAmount *big.Int, source common.Address, data []byte, confirmations int) (string, error) {
	fee := "0"
	if feeAmount != nil {
		fee = feeAmount.String()
	}

	txID, err := WithClient(c.endpoints, func(client jsonrpc.RPCClient) (string, error) {
		var id string
		err := client.CallFor(&id, method,
			recipient.Hex(),
			destChainID,
			fee,
			source.Hex(),
			common.Bytes2Hex(data),
			confirmations,
		)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", errors.New("relay node returned empty transaction id")
		}
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("relayrpc: %s: %w", method, err)
	}
	return txID, nil
}
