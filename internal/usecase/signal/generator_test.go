package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	signalv1 "github.com/tironinho/kronos-sub000/internal/domain/signal/v1"
	"github.com/tironinho/kronos-sub000/internal/usecase/features"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

func testSignalConfig() config.SignalConfig {
	return config.SignalConfig{
		ZScoreThreshold:   2.0,
		MinEdgeBps:        3,
		MeanRevTicks:      2,
		QueueImbThreshold: 0.3,
		MinStrength:       0.5,
		MinConfidence:     0.4,
		Cooldown:          30 * time.Second,
	}
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	return NewGenerator(testSignalConfig(), log)
}

func snapshotAt(symbol string, ts time.Time) features.Snapshot {
	return features.Snapshot{Symbol: symbol, Timestamp: ts}
}

func TestGenerator_Evaluate(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("decisive buy imbalance emits a buy signal", func(t *testing.T) {
		gen := newTestGenerator(t)

		// 20 buys against 5 sells: OFI (20-5)/25 = 0.6.
		snap := snapshotAt("BTCUSDT", now)
		snap.OFI = signalv1.NewFeature(0.6)

		sig := gen.Evaluate(snap)
		require.NotNil(t, sig)
		assert.Equal(t, signalv1.SignalBuy, sig.Type)
		assert.GreaterOrEqual(t, sig.Strength, 0.5)
		assert.GreaterOrEqual(t, sig.Confidence, 0.4)
		assert.Contains(t, sig.Reason, "ofi")
	})

	t.Run("decisive sell imbalance emits a sell signal", func(t *testing.T) {
		gen := newTestGenerator(t)

		snap := snapshotAt("BTCUSDT", now)
		snap.OFI = signalv1.NewFeature(-0.8)

		sig := gen.Evaluate(snap)
		require.NotNil(t, sig)
		assert.Equal(t, signalv1.SignalSell, sig.Type)
		assert.LessOrEqual(t, sig.Strength, -0.5)
	})

	t.Run("weak imbalance emits nothing", func(t *testing.T) {
		gen := newTestGenerator(t)

		snap := snapshotAt("BTCUSDT", now)
		snap.OFI = signalv1.NewFeature(0.2)

		assert.Nil(t, gen.Evaluate(snap))
	})

	t.Run("invalid features contribute nothing", func(t *testing.T) {
		gen := newTestGenerator(t)
		assert.Nil(t, gen.Evaluate(snapshotAt("BTCUSDT", now)))
	})

	t.Run("toxic vpin lowers confidence below the floor", func(t *testing.T) {
		gen := newTestGenerator(t)

		snap := snapshotAt("BTCUSDT", now)
		snap.OFI = signalv1.NewFeature(0.6)
		snap.VPIN = signalv1.NewFeature(0.9)

		assert.Nil(t, gen.Evaluate(snap))
	})

	t.Run("supporting features stack strength and confidence", func(t *testing.T) {
		gen := newTestGenerator(t)

		snap := snapshotAt("BTCUSDT", now)
		snap.OFI = signalv1.NewFeature(0.6)
		snap.Momentum = signalv1.NewFeature(5)
		snap.QueueImbalance = signalv1.NewFeature(0.5)

		sig := gen.Evaluate(snap)
		require.NotNil(t, sig)
		assert.Equal(t, signalv1.SignalBuy, sig.Type)
		assert.InDelta(t, 1.0, sig.Strength, 1e-9)
		assert.InDelta(t, 0.75, sig.Confidence, 1e-9)
	})
}

func TestGenerator_Cooldown(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	emitting := func() features.Snapshot {
		snap := snapshotAt("BTCUSDT", now)
		snap.OFI = signalv1.NewFeature(0.9)
		return snap
	}

	t.Run("no emission during the cooldown window", func(t *testing.T) {
		gen := newTestGenerator(t)

		require.NotNil(t, gen.Evaluate(emitting()))

		inside := emitting()
		inside.Timestamp = now.Add(10 * time.Second)
		assert.Nil(t, gen.Evaluate(inside))

		edge := emitting()
		edge.Timestamp = now.Add(29 * time.Second)
		assert.Nil(t, gen.Evaluate(edge))
	})

	t.Run("emission resumes after the cooldown elapses", func(t *testing.T) {
		gen := newTestGenerator(t)

		require.NotNil(t, gen.Evaluate(emitting()))

		after := emitting()
		after.Timestamp = now.Add(30 * time.Second)
		assert.NotNil(t, gen.Evaluate(after))
	})

	t.Run("cooldown is per symbol", func(t *testing.T) {
		gen := newTestGenerator(t)

		require.NotNil(t, gen.Evaluate(emitting()))

		other := emitting()
		other.Symbol = "ETHUSDT"
		assert.NotNil(t, gen.Evaluate(other))
	})
}

func TestGenerator_SweepCooldowns(t *testing.T) {
	gen := newTestGenerator(t)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	snap := snapshotAt("BTCUSDT", now)
	snap.OFI = signalv1.NewFeature(0.9)
	require.NotNil(t, gen.Evaluate(snap))

	assert.Equal(t, 0, gen.SweepCooldowns(now.Add(10*time.Second)))
	assert.Equal(t, 1, gen.SweepCooldowns(now.Add(31*time.Second)))
}
