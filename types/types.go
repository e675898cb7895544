package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Chain roles. Gauss is the single distinguished home chain (the
// minting authority for wrapped assets); every other chain id resolves
// to the away role, where value is locked instead of minted.
type ChainRole int

const (
	RoleNone ChainRole = 0
	RoleHome ChainRole = 1
	RoleAway ChainRole = 2
)

func (r ChainRole) String() string {
	switch r {
	case RoleHome:
		return "home"
	case RoleAway:
		return "away"
	default:
		return "none"
	}
}

// CallContext carries the caller identity and the observed chain id
// into every contract operation. Threading it explicitly keeps the
// core testable without a simulated execution environment.
type CallContext struct {
	Caller  common.Address
	ChainID int
}

// TransferRecord is a single bridge transfer (outbound send and its
// eventual delivery on the twin chain) tracked through a status.
type TransferRecord struct {
	ID          string
	Status      string
	SourceChain int
	DestChain   int
	TsFound     int64
	Amount      string // net amount, base units of the asset
	Recipient   string
	Source      string
	RelayTxID   string // id returned by the relay gateway for the send
	Message     string // messsages that help to track processing/errors
}

// BigCopy returns a defensive copy so stored records and contract
// state never alias the same big.Int.
func BigCopy(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
