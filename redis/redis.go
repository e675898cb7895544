package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gogaussbridge/config"
	"gogaussbridge/types"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
)

var pool *redis.Pool

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func Init() {
	redisAddr := fmt.Sprintf("%s:%d", config.Config.Server.RedisHost, config.Config.Server.RedisPort)
	pool = &redis.Pool{
		MaxIdle: 5,
		Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
	}
}

// GetRelayCursor returns the last relay confirmation height processed
// for a chain, -1 when none was stored yet.
func GetRelayCursor(chainID int) (int, error) {
	conn := pool.Get()
	defer conn.Close()

	cursor, err := redis.Int(conn.Do("GET", fmt.Sprintf("relayCursor:%d", chainID)))
	if err == nil {
		return cursor, nil
	}

	if errors.Is(err, redis.ErrNil) {
		return -1, nil
	}

	log.Printf("error Redis get: %s", err.Error())
	return -1, err
}

func SetRelayCursor(chainID int, cursor int) error {
	conn := pool.Get()
	defer conn.Close()

	_, err := conn.Do("SET", fmt.Sprintf("relayCursor:%d", chainID), cursor)
	if err != nil {
		log.Printf("error Redis set: %s", err.Error())
		return err
	}

	return nil
}

// note that multiple sets should not contain one record
func UpsertTransferRecord(rec *types.TransferRecord) error {
	conn := pool.Get()
	defer conn.Close()

	if rec == nil {
		return errors.New("null object to store")
	}

	if rec.Status == "" {
		return errors.New("transfer record cannot have empty status")
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	recordKey := fmt.Sprintf("bridgeop:%s:%s", rec.Status, rec.ID)

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal transfer record to JSON: %s", err.Error())
	}

	_, err = conn.Do("SET", recordKey, recJSON)
	if err != nil {
		log.Printf("error Redis SET: %s", err.Error())
		return err
	}

	// also add the key to the corresponding SET
	_, err = conn.Do("SADD", config.RedisStatusSets[rec.Status], recordKey)
	if err != nil {
		log.Printf("error Redis SADD: %s", err.Error())
		return err
	}

	return nil
}

func ChangeTransferStatus(rec *types.TransferRecord, prevStatus string) error {
	conn := pool.Get()
	defer conn.Close()

	if rec == nil {
		return errors.New("null object to store")
	}

	if rec.Status == "" {
		return errors.New("transfer record cannot have empty status")
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	prevRecordKey := fmt.Sprintf("bridgeop:%s:%s", prevStatus, rec.ID)
	recordKey := fmt.Sprintf("bridgeop:%s:%s", rec.Status, rec.ID)

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal transfer record to JSON: %s", err.Error())
	}

	_, err = conn.Do("SREM", config.RedisStatusSets[prevStatus], prevRecordKey)
	if err != nil {
		log.Printf("error Redis SREM: %s", err.Error())
		return err
	}

	_, err = conn.Do("DEL", prevRecordKey)
	if err != nil {
		log.Printf("error Redis DEL: %s", err.Error())
		return err
	}

	_, err = conn.Do("SET", recordKey, recJSON)
	if err != nil {
		log.Printf("error Redis SET: %s", err.Error())
		return err
	}

	_, err = conn.Do("SADD", config.RedisStatusSets[rec.Status], recordKey)
	if err != nil {
		log.Printf("error Redis SADD: %s", err.Error())
		return err
	}

	return nil
}

// Attention, this operation scans everything that is present
// Older/processed records should be moved away otherwise performance
// will degrade (although O(n) still)
func FindTransferByRelayTxID(txID string) (*types.TransferRecord, error) {
	return FindTransferAllStatuses("RelayTxID", txID)
}

func FindTransferAllStatuses(field string, value string) (*types.TransferRecord, error) {
	for status := range config.RedisStatusSets {
		rec, err := FindTransferByFieldStringValue(field, value, status)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, nil
}

func FindTransferStatus(status string) (*types.TransferRecord, error) {
	return FindTransferByFieldStringValue("Status", status, status)
}

func FindTransferByFieldStringValue(field, value string, status string) (*types.TransferRecord, error) {
	conn := pool.Get()
	defer conn.Close()

	if field == "" || value == "" {
		return nil, errors.New("empty search field name or value")
	}

	// scan every record present in Redis
	var cursor int64

	for {
		values, err := redis.Values(conn.Do("SSCAN", config.RedisStatusSets[status], cursor))
		if err != nil {
			return nil, err
		}

		var recKeys []string
		values, err = redis.Scan(values, &cursor, &recKeys)
		if err != nil {
			return nil, err
		}

		for _, key := range recKeys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if err != nil && !errors.Is(err, redis.ErrNil) {
				log.Printf("error Redis GET: %s", err.Error())
				return nil, err
			}

			var rec types.TransferRecord
			err = json.Unmarshal(raw, &rec)
			if err != nil {
				return nil, err
			}

			if fieldMatches(&rec, field, value) {
				return &rec, nil
			}
		}

		if cursor == 0 {
			break
		}
	}

	return nil, nil
}

// CountStatus reports how many records sit in one status set.
func CountStatus(status string) (int, error) {
	conn := pool.Get()
	defer conn.Close()

	return redis.Int(conn.Do("SCARD", config.RedisStatusSets[status]))
}

// ListStatus returns every record in one status set.
func ListStatus(status string) ([]types.TransferRecord, error) {
	conn := pool.Get()
	defer conn.Close()

	var out []types.TransferRecord
	var cursor int64

	for {
		values, err := redis.Values(conn.Do("SSCAN", config.RedisStatusSets[status], cursor))
		if err != nil {
			return nil, err
		}

		var recKeys []string
		values, err = redis.Scan(values, &cursor, &recKeys)
		if err != nil {
			return nil, err
		}

		for _, key := range recKeys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if err != nil {
				if errors.Is(err, redis.ErrNil) {
					continue
				}
				return nil, err
			}

			var rec types.TransferRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, err
			}
			out = append(out, rec)
		}

		if cursor == 0 {
			break
		}
	}

	return out, nil
}

func fieldMatches(rec *types.TransferRecord, field, value string) bool {
	switch field {
	case "RelayTxID":
		return rec.RelayTxID == value
	case "Recipient":
		return rec.Recipient == value
	case "Source":
		return rec.Source == value
	case "Status":
		return rec.Status == value
	default:
		return false
	}
}
