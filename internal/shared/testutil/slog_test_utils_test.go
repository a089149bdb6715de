package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.True(t, handler.ContainsAttr("code", int64(500)))
	})

	t.Run("derived loggers keep their attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		component := logger.With(slog.String("component", "apriori_miner"))

		component.Debug("level complete", slog.Int("level", 2))

		records := handler.GetRecords()
		require.Len(t, records, 1)
		assert.Equal(t, "apriori_miner", records[0].Attrs["component"])
		assert.Equal(t, int64(2), records[0].Attrs["level"])
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Info("message 1")
		logger.Info("message 2")
		require.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})

	t.Run("assertion helpers", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Info("basket analysis completed", slog.String("component", "basket_analyzer"))

		AssertLogContains(t, handler, slog.LevelInfo, "analysis completed")
		AssertLogAttr(t, handler, "component", "basket_analyzer")
		AssertNoErrors(t, handler)
	})

	t.Run("thread safety", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				logger.With(slog.Int("worker", n)).Info("concurrent log")
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, handler.Count())
	})
}

func TestSalesLog(t *testing.T) {
	lines := SalesLog(14, 9)
	require.NotEmpty(t, lines)
	assert.Equal(t, lines, SalesLog(14, 9), "same seed yields the same log")

	days := map[string]bool{}
	for _, l := range lines {
		days[l.Date.String()] = true
		assert.NotEmpty(t, l.TransactionID)
		assert.Greater(t, l.TotalAmount, 0.0)
	}
	assert.Len(t, days, 14)
}
