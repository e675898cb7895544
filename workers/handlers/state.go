package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

func State(w http.ResponseWriter, r *http.Request) {
	resp := &APIStateResponse{
		Status:        "ok",
		HomeChain:     env.Home.Name,
		AwayChain:     env.Away.Name,
		HomePaused:    env.Home.Bridge.Paused(),
		AwayPaused:    env.Away.Bridge.Paused(),
		FeeAmount:     hexutil.EncodeBig(env.Away.Bridge.FeeAmount()),
		Confirmations: env.Away.Bridge.Confirmations(),
		RelayPending:  len(env.Net.Pending()),
		RelayFailed:   len(env.Net.FailedMessages()),
	}
	responseJSON(w, resp, http.StatusOK)
}
