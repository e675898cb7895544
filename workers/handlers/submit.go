package handlers

import (
	"encoding/json"
	"io"
	"log"
	"math/big"
	"net/http"
	"time"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"gogaussbridge/redis"
	"gogaussbridge/types"
)

type TransferRequest struct {
	// originating side, "home" or "away"
	Chain     string `json:"chain"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"` // base units, decimal string
	Express   bool   `json:"express"`
}

// SubmitTransfer initiates an outbound bridge transfer on behalf of a
// sender that already approved the bridge contract.
func SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading request body: %s", err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	var req TransferRequest
	err = json.Unmarshal(body, &req)
	if err != nil {
		log.Printf("Error unmarshalling request body: %s\n", err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return
	}

	var inst *ChainInstance
	switch req.Chain {
	case "home":
		inst = &env.Home
	case "away":
		inst = &env.Away
	default:
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "chain",
			Message: "Chain must be 'home' or 'away'",
		}, http.StatusBadRequest)
		return
	}

	if err := ethav.Validate(common.HexToAddress(req.Sender).Hex()); err != nil {
		log.Printf("Error validating sender address '%s': %s\n", req.Sender, err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "sender",
			Message: "No sender address or invalid address provided",
		}, http.StatusBadRequest)
		return
	}

	if err := ethav.Validate(common.HexToAddress(req.Recipient).Hex()); err != nil {
		log.Printf("Error validating recipient address '%s': %s\n", req.Recipient, err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "recipient",
			Message: "No recipient address or invalid address provided",
		}, http.StatusBadRequest)
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "amount",
			Message: "Amount must be a positive base-unit integer",
		}, http.StatusBadRequest)
		return
	}

	sender := common.HexToAddress(req.Sender)
	recipient := common.HexToAddress(req.Recipient)
	ctx := types.CallContext{Caller: sender, ChainID: inst.ChainID}

	txID, err := inst.Bridge.InitiateTransfer(ctx, recipient, amount, sender, req.Express)
	if err != nil {
		log.Printf("Error initiating transfer on %s: %s", inst.Name, err.Error())
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: err.Error(),
		}, http.StatusBadRequest)
		return
	}

	net := new(big.Int).Sub(amount, inst.Bridge.FeeAmount())

	var dest *ChainInstance
	if inst == &env.Home {
		dest = &env.Away
	} else {
		dest = &env.Home
	}

	// never lose track of an accepted send, the pump follows this record
	err = redis.UpsertTransferRecord(&types.TransferRecord{
		ID:          uuid.New().String(),
		Status:      "pending",
		SourceChain: inst.ChainID,
		DestChain:   dest.ChainID,
		TsFound:     time.Now().Unix(),
		Amount:      net.String(),
		Recipient:   recipient.Hex(),
		Source:      sender.Hex(),
		RelayTxID:   txID,
	})
	if err != nil {
		log.Printf("Cannot create pending transfer record, Redis error: %s", err.Error())
	}

	responseJSON(w, &APISubmitResponse{
		Status:    "ok",
		TxID:      txID,
		NetAmount: net.String(),
	}, http.StatusOK)
}
