package bridge

import "gogaussbridge/types"

// Resolve maps an observed chain id to the deployment's role. Gauss is
// the single distinguished home chain; any other id, known or not,
// resolves to away. Called exactly once, from Init; the result is
// cached for the contract's lifetime.
func Resolve(homeChainID, observedChainID int) types.ChainRole {
	if observedChainID == homeChainID {
		return types.RoleHome
	}
	return types.RoleAway
}
