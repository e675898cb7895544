package workers

import (
	"log"
	"time"

	"gogaussbridge/config"
	"gogaussbridge/redis"
	"gogaussbridge/relay"
)

// Worker_relayPump drives the in-process relay: every tick it advances
// one confirmation, marks records that reached their confirmation
// count, delivers them to the destination endpoint and persists the
// status transitions. The relay itself guarantees at-most-once
// delivery; the pump only records what happened.
func Worker_relayPump(net *relay.Network) {
	height, err := redis.GetRelayCursor(config.HomeChainID)
	if err != nil {
		log.Printf("Error reading relay cursor: %v, starting from scratch", err)
	}
	if height > 0 {
		log.Printf("Resuming relay pump at confirmation height %d", height)
	}

	for !WorkerShutdown {
		time.Sleep(3 * time.Second)

		net.Confirm(1)
		height++
		if err := redis.SetRelayCursor(config.HomeChainID, height); err != nil {
			log.Printf("Error saving relay cursor: %v", err)
		}

		// mark ready messages before delivering, so a crash between
		// deliver and persist cannot look like an unsent transfer
		for _, msg := range net.Pending() {
			if !msg.Express && msg.Confirmed < msg.Required {
				continue
			}
			if err := markStatus(msg.TxID, "pending", "executing"); err != nil {
				log.Printf("Error saving transfer record: %v, emergency exit to avoid looping", err)
				WorkerShutdown = true
				return
			}
		}

		delivered, failed := net.DeliverReady()

		for _, msg := range delivered {
			log.Printf("Relay delivered tx %s to chain %d", msg.TxID, msg.DestChain)
			if err := markStatus(msg.TxID, "executing", "success"); err != nil {
				log.Printf("Error saving transfer record: %v, emergency exit to avoid looping", err)
				WorkerShutdown = true
				return
			}
		}

		for _, msg := range failed {
			log.Printf("Relay delivery of tx %s to chain %d reverted: %s", msg.TxID, msg.DestChain, msg.Failed)
			if err := markStatus(msg.TxID, "executing", "failed"); err != nil {
				log.Printf("Error saving transfer record: %v, emergency exit to avoid looping", err)
				WorkerShutdown = true
				return
			}
		}
	}
}

// markStatus moves the record that tracks a relay tx between status
// sets. A missing record is not an error: transfers submitted directly
// against the contracts have no API-side record.
func markStatus(txID, prev, next string) error {
	rec, err := redis.FindTransferByRelayTxID(txID)
	if err != nil {
		return err
	}
	if rec == nil || rec.Status != prev {
		return nil
	}
	rec.Status = next
	return redis.ChangeTransferStatus(rec, prev)
}
