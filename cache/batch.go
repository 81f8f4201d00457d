package cache

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var batchEntropy struct {
	mu   sync.Mutex
	mono io.Reader
}

func init() {
	// Seed a PRNG from crypto/rand so batch IDs are unpredictable.
	// ulid.Monotonic keeps IDs minted within the same millisecond
	// lexicographically increasing, so batches sort by write time.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	batchEntropy.mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// newBatchID mints the ULID stamped on every row of one merge batch. Rows
// from the same upstream fetch share an ID, so a batch can be grouped or
// ordered straight from the bars table.
func newBatchID() string {
	batchEntropy.mu.Lock()
	defer batchEntropy.mu.Unlock()

	uid, err := ulid.New(ulid.Timestamp(time.Now().UTC()), batchEntropy.mono)
	if err != nil {
		// Only possible if time goes backwards or entropy fails.
		panic(err)
	}
	return uid.String()
}
