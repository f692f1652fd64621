package trace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilTelemetryIsNoOp(t *testing.T) {
	var tel *Telemetry
	require.NotPanics(t, func() {
		tel.Infof("exec", "started with %d paths", 3)
	})
	require.Nil(t, tel)
}

func TestEmitRecordsFormattedEvent(t *testing.T) {
	tel := New()
	tel.Warnf("search", "generation %d found nothing", 4)

	require.Len(t, tel.Events, 1)
	ev := tel.Events[0]
	require.Equal(t, LevelWarn, ev.Level)
	require.Equal(t, "search", ev.Source)
	require.Equal(t, "generation 4 found nothing", ev.Message)
}

func TestDebugLevelString(t *testing.T) {
	require.Equal(t, "info", LevelInfo.String())
	require.Equal(t, "warn", LevelWarn.String())
	require.Equal(t, "error", LevelError.String())
}

func TestStatsStringRendersAllCounters(t *testing.T) {
	s := Stats{TraceLength: 10, SideConstraintLen: 3, ComponentsFired: 2, UnsafeAssignSites: 1, MaxDepth: 4}
	got := s.String()
	require.Contains(t, got, "trace=10")
	require.Contains(t, got, "side=3")
	require.Contains(t, got, "components=2")
	require.Contains(t, got, "unsafe_assigns=1")
	require.Contains(t, got, "max_depth=4")
}
