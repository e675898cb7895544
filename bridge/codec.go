package bridge

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrBadPackage = errors.New("bridge: cannot decode transfer package")

// TransferPackage is the wire payload carried opaquely by the relay
// and interpreted only by the two bridge endpoints. Amount is the net
// amount, already adjusted for fees on the sending side; the receiving
// side applies it verbatim.
type TransferPackage struct {
	Recipient common.Address
	Amount    *big.Int
	Source    common.Address
}

// Canonical fixed-width ABI layout (address, uint256, address). Both
// deployments must decode the same 96 bytes identically; any change to
// field order or width breaks cross-chain compatibility.
var packageArgs = func() abi.Arguments {
	addressT, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "recipient", Type: addressT},
		{Name: "amount", Type: uint256T},
		{Name: "source", Type: addressT},
	}
}()

func EncodePackage(p TransferPackage) ([]byte, error) {
	amount := p.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	return packageArgs.Pack(p.Recipient, amount, p.Source)
}

func DecodePackage(data []byte) (TransferPackage, error) {
	vals, err := packageArgs.Unpack(data)
	if err != nil {
		return TransferPackage{}, ErrBadPackage
	}
	recipient, ok1 := vals[0].(common.Address)
	amount, ok2 := vals[1].(*big.Int)
	source, ok3 := vals[2].(common.Address)
	if !ok1 || !ok2 || !ok3 {
		return TransferPackage{}, ErrBadPackage
	}
	return TransferPackage{Recipient: recipient, Amount: amount, Source: source}, nil
}
