package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSimpleCollectorCounters(t *testing.T) {
	c := NewSimpleCollector(zap.NewNop())

	c.IncrementCounter("parsed", 1)
	c.IncrementCounter("parsed", 2)
	c.IncrementCounter("failed", 1)

	counters := c.Counters()
	assert.Equal(t, float64(3), counters["parsed"])
	assert.Equal(t, float64(1), counters["failed"])

	// The returned map is a copy.
	counters["parsed"] = 99
	assert.Equal(t, float64(3), c.Counters()["parsed"])
}

func TestSimpleCollectorReset(t *testing.T) {
	c := NewSimpleCollector(zap.NewNop())
	c.IncrementCounter("parsed", 5)
	c.SetGauge("last_run", 1)
	c.RecordDuration("took", time.Second)

	c.Reset()
	assert.Empty(t, c.Counters())
}

func TestSimpleCollectorConcurrentAccess(t *testing.T) {
	c := NewSimpleCollector(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncrementCounter("parsed", 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(1000), c.Counters()["parsed"])
}
