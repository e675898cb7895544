package main

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"gogaussbridge/bridge"
	"gogaussbridge/config"
	"gogaussbridge/redis"
	"gogaussbridge/relay"
	"gogaussbridge/relay/relayrpc"
	"gogaussbridge/token"
	"gogaussbridge/types"
	"gogaussbridge/workers"
	"gogaussbridge/workers/handlers"
)

func main() {
	log.Print("Starting Gauss token bridge")

	f, err := os.OpenFile(fmt.Sprintf("logs/log_%s.txt", time.Now().Format("2006-01-02")), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file for writing: %v", err)
	}
	defer f.Close()

	log.SetOutput(f)

	config.Init()

	// connect to Redis, without persistence do not continue
	redis.Init()

	owner := common.HexToAddress(config.Config.Bridge.OwnerAddress)
	contractAddr := common.HexToAddress(config.Config.Bridge.ContractAddress)
	relayAddr := common.HexToAddress(config.Config.Bridge.RelayAddress)

	feeAmount, ok := new(big.Int).SetString(config.Config.Bridge.FeeAmount, 10)
	if !ok {
		log.Fatalf("invalid fee amount in config: %q", config.Config.Bridge.FeeAmount)
	}

	homeCfg, ok := config.Chains[config.HomeChainID]
	if !ok {
		log.Fatal("missing home chain config")
	}
	awayID := config.Config.Bridge.PairedChainID
	awayCfg, ok := config.Chains[awayID]
	if !ok {
		log.Fatalf("missing chain config for paired chain %d", awayID)
	}

	net := relay.NewNetwork(relayAddr)

	// away side: the underlying asset gets locked into bridge custody
	underlying := token.New("USD Coin", awayCfg.AssetSymbol, 6, owner)
	awayBridge := bridge.New(contractAddr, owner, config.HomeChainID)
	err = awayBridge.Init(types.CallContext{Caller: owner, ChainID: awayID}, bridge.Config{
		RelayAddress:  relayAddr,
		Gateway:       net.Bind(awayID, contractAddr),
		LocalAsset:    underlying,
		PairedChainID: config.HomeChainID,
		PairedAsset:   common.HexToAddress(homeCfg.ContractAddress),
		FeeToken:      common.HexToAddress(awayCfg.ContractAddress),
		FeeLedger:     underlying,
		FeeAmount:     feeAmount,
		Confirmations: awayCfg.Confirmations,
	})
	if err != nil {
		log.Fatalf("error initializing away bridge: %v", err)
	}

	// home side: the wrapped ledger, minted and burned by the bridge
	reserve := token.New("Gauss Reserve USD", "rUSD", 6, owner)
	wrapped := token.NewWrapper("Gauss USD Coin", homeCfg.AssetSymbol, 6, contractAddr, contractAddr, reserve)
	bridgeCtx := types.CallContext{Caller: contractAddr, ChainID: config.HomeChainID}
	if err := wrapped.RestrictToBridge(bridgeCtx, contractAddr); err != nil {
		log.Fatalf("error restricting wrapper to bridge: %v", err)
	}

	homeBridge := bridge.New(contractAddr, owner, config.HomeChainID)
	err = homeBridge.Init(types.CallContext{Caller: owner, ChainID: config.HomeChainID}, bridge.Config{
		RelayAddress:  relayAddr,
		Gateway:       net.Bind(config.HomeChainID, contractAddr),
		LocalAsset:    wrapped,
		PairedChainID: awayID,
		PairedAsset:   common.HexToAddress(awayCfg.ContractAddress),
		FeeToken:      common.HexToAddress(homeCfg.ContractAddress),
		FeeLedger:     wrapped,
		FeeAmount:     feeAmount,
		Confirmations: homeCfg.Confirmations,
	})
	if err != nil {
		log.Fatalf("error initializing home bridge: %v", err)
	}

	net.Register(awayID, awayBridge)
	net.Register(config.HomeChainID, homeBridge)

	// split deployment: outbound sends go to an external relay node
	// instead of the in-process network
	if len(config.Config.Relay.RPCList) > 0 {
		rpcGateway, err := relayrpc.New(config.Config.Relay.RPCList)
		if err != nil {
			log.Fatalf("error configuring relay RPC gateway: %v", err)
		}
		ownerCtx := types.CallContext{Caller: owner, ChainID: config.HomeChainID}
		if err := homeBridge.UpdateGateway(ownerCtx, rpcGateway); err != nil {
			log.Fatalf("error installing relay RPC gateway: %v", err)
		}
		ownerCtx.ChainID = awayID
		if err := awayBridge.UpdateGateway(ownerCtx, rpcGateway); err != nil {
			log.Fatalf("error installing relay RPC gateway: %v", err)
		}
	}

	handlers.Setup(&handlers.Environment{
		Net: net,
		Home: handlers.ChainInstance{
			ChainID: config.HomeChainID,
			Name:    homeCfg.Name,
			Bridge:  homeBridge,
			Asset:   wrapped,
		},
		Away: handlers.ChainInstance{
			ChainID: awayID,
			Name:    awayCfg.Name,
			Bridge:  awayBridge,
			Asset:   underlying,
		},
	})

	// there are 2 worker threads:
	// * relay pump delivering confirmed cross-chain messages
	// * static app service and API serving HTTPS server (serves as main worker thread)
	go workers.Worker_relayPump(net)

	workers.Worker_HTTP()
}
