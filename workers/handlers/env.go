package handlers

import (
	"gogaussbridge/bridge"
	"gogaussbridge/relay"
)

// ChainInstance is one deployed endpoint served by this process.
type ChainInstance struct {
	ChainID int
	Name    string
	Bridge  *bridge.Bridge
	Asset   bridge.Ledger // the bridge's local asset
}

// Environment holds everything the handlers read. Populated once at
// startup, before the HTTP worker starts.
type Environment struct {
	Net  *relay.Network
	Home ChainInstance
	Away ChainInstance
}

var env *Environment

func Setup(e *Environment) {
	env = e
}
