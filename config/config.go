package config

type Configuration struct {
	// Server config
	Server struct {
		UseSSL    bool   `yaml:"ssl"`
		RedisPort int    `yaml:"redis_port"`
		RedisHost string `yaml:"redis_host"`
	} `yaml:"server"`
	// Bridge deployment config
	Bridge struct {
		// chain id this instance observes at init
		ChainID int `yaml:"chain_id"`
		// chain id of the twin deployment
		PairedChainID int `yaml:"paired_chain_id"`
		// deployment address, byte-identical on both chains
		ContractAddress string `yaml:"contract_address"`
		OwnerAddress    string `yaml:"owner_address"`
		// trusted relay identity
		RelayAddress string `yaml:"relay_address"`
		// flat fee floor in base units of the fee asset
		FeeAmount     string `yaml:"fee_amount"`
		Confirmations int    `yaml:"confirmations"`
	} `yaml:"bridge"`
	// external relay node endpoints (split deployments only)
	Relay struct {
		RPCList []string `yaml:"rpc_list"`
	} `yaml:"relay"`
}

var Config Configuration

// HomeChainID is the Gauss mainnet chain id, the single distinguished
// home chain. Any other observed id resolves to the away role.
const HomeChainID = 1777

// Per-chain constants of the known deployments.
type ChainConfig struct {
	Name            string
	ChainID         int
	ContractAddress string // bridge/wrapped-token deployment address
	AssetSymbol     string
	Confirmations   int
}

var Chains = map[int]ChainConfig{
	1777: {
		Name:            "Gauss",
		ChainID:         1777,
		ContractAddress: "0x4bD1280D2e67ef9a1d15A822CD96a8a1A282afea",
		AssetSymbol:     "gUSDC",
		Confirmations:   3,
	},
	1: {
		Name:            "Ethereum",
		ChainID:         1,
		ContractAddress: "0x4bD1280D2e67ef9a1d15A822CD96a8a1A282afea",
		AssetSymbol:     "USDC",
		Confirmations:   3,
	},
	137: {
		Name:            "Polygon",
		ChainID:         137,
		ContractAddress: "0x4bD1280D2e67ef9a1d15A822CD96a8a1A282afea",
		AssetSymbol:     "USDC.pol",
		Confirmations:   12,
	},
}

var RedisStatusSets = map[string]string{
	"pending":   "bridgeops:pending",   // outbound send accepted by the relay
	"executing": "bridgeops:executing", // relay reached confirmation count, delivering
	"success":   "bridgeops:success",   // delivered on the destination chain
	"failed":    "bridgeops:failed",    // delivery reverted, parked on the relay
}
