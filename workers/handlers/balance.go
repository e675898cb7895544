package handlers

import (
	"net/http"
)

// Custody balances of the two bridge deployments and the wrapped
// supply on the home chain, plain text like the token amounts they
// are (base units, no decimals applied).

func BalanceHome(w http.ResponseWriter, r *http.Request) {
	balance(w, &env.Home)
}

func BalanceAway(w http.ResponseWriter, r *http.Request) {
	balance(w, &env.Away)
}

func balance(w http.ResponseWriter, inst *ChainInstance) {
	bal := inst.Asset.BalanceOf(inst.Bridge.Address())
	responsePlain(w, []byte(bal.String()), http.StatusOK)
}

func SupplyHome(w http.ResponseWriter, r *http.Request) {
	responsePlain(w, []byte(env.Home.Asset.TotalSupply().String()), http.StatusOK)
}
