// Package snowflake generates the server-assigned document ids. The layout
// packs a millisecond timestamp, a worker id and a per-millisecond increment
// into one int64, so ids sort roughly by creation time.
package snowflake

import (
	"fmt"
	"sync"
	"time"
)

const (
	timestampLength int64 = 42
	timestampPos          = 64 - timestampLength // 22
	workerLength    int64 = 10
	workerPos             = timestampPos - workerLength // 12
	incrementLength       = 64 - (timestampLength + workerLength)
)

const (
	maxWorkerValue    = int64(1)<<workerLength - 1
	maxIncrementValue = int64(1)<<incrementLength - 1
)

type Snowflake struct {
	Timestamp int64
	WorkerID  int64
	Increment int64
}

var (
	lastIncrement, lastTimestamp int64
	mutex                        sync.Mutex

	workerID    int64 = 0
	hasWorkerID       = false
)

func Setup(id int64) error {
	if id > maxWorkerValue {
		return fmt.Errorf("worker ID value exceeds maximum value of [%d]", maxWorkerValue)
	} else if !hasWorkerID {
		workerID = id
		hasWorkerID = true
		return nil
	}

	return fmt.Errorf("worker ID for snowflake generator has been already set")
}

func Generate() (int64, error) {
	mutex.Lock()
	defer mutex.Unlock()

	timestamp := time.Now().UnixMilli()
	if timestamp == lastTimestamp {
		lastIncrement += 1
		if lastIncrement > maxIncrementValue {
			return 0, fmt.Errorf("increment overflow after increment reached %d", lastIncrement)
		}
	} else {
		lastIncrement = 0
		lastTimestamp = timestamp
	}

	return timestamp<<timestampPos | workerID<<workerPos | lastIncrement, nil
}

func Extract(snowflakeId int64) Snowflake {
	return Snowflake{
		Timestamp: snowflakeId >> timestampPos,
		WorkerID:  (snowflakeId >> workerPos) & maxWorkerValue,
		Increment: snowflakeId & maxIncrementValue,
	}
}

// ExtractTime recovers the creation time embedded in an id.
func ExtractTime(snowflakeId int64) time.Time {
	return time.UnixMilli(snowflakeId >> timestampPos)
}
