package handlers

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type APISubmitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	TxID    string `json:"txId,omitempty"`
	// net amount forwarded to the destination after the fee deduction
	NetAmount string `json:"netAmount,omitempty"`
}

type APIStateResponse struct {
	Status        string `json:"status"`
	HomeChain     string `json:"homeChain"`
	AwayChain     string `json:"awayChain"`
	HomePaused    bool   `json:"homePaused"`
	AwayPaused    bool   `json:"awayPaused"`
	FeeAmount     string `json:"feeAmount"`
	Confirmations int    `json:"confirmations"`
	RelayPending  int    `json:"relayPending"`
	RelayFailed   int    `json:"relayFailed"`
}
