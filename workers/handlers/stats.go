package handlers

import (
	"net/http"

	"gogaussbridge/redis"
)

func GetFailedTransfers(w http.ResponseWriter, r *http.Request) {

	failed, err := redis.ListStatus("failed")

	if err != nil {
		responseJSON(w, nil, 500)
		return
	}

	responseJSON(w, failed, 200)
}

func GetPendingTransfers(w http.ResponseWriter, r *http.Request) {

	pending, err := redis.ListStatus("pending")

	if err != nil {
		responseJSON(w, nil, 500)
		return
	}

	responseJSON(w, pending, 200)
}
