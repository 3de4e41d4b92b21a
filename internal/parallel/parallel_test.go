package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForSequentialFallback(t *testing.T) {
	var sum int64
	For(10, func(i int) { atomic.AddInt64(&sum, int64(i)) }, Config{Enabled: false})
	assert.EqualValues(t, 45, sum)
}

func TestForParallel(t *testing.T) {
	const n = 1000
	seen := make([]int32, n)
	For(n, func(i int) { atomic.AddInt32(&seen[i], 1) }, Config{Enabled: true, NumWorkers: 8, MinChunkSize: 4})
	for i, v := range seen {
		assert.EqualValues(t, 1, v, "index %d", i)
	}
}

func TestForBelowMinChunkSizeRunsSequentially(t *testing.T) {
	var sum int64
	For(5, func(i int) { atomic.AddInt64(&sum, 1) }, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 64})
	assert.EqualValues(t, 5, sum)
}
