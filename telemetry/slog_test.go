package telemetry_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openenterprise/dualbank/telemetry"
)

func Test_SlogHandler_Writes_Text_And_Pushes_Info_And_Above_To_Ring(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ring := telemetry.NewRing(8)
	h := telemetry.NewSlogHandler(&buf, ring, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h)

	log.Debug("debug line")
	log.Info("info line", slog.String("k", "v"))
	log.Warn("warn line")
	log.Error("error line")

	events := ring.Recent()
	require.Len(t, events, 3)
	assert.Equal(t, telemetry.SeverityInfo, events[0].Severity)
	assert.Contains(t, events[0].Message, "info line")
	assert.Contains(t, events[0].Message, "k=v")
	assert.Equal(t, telemetry.SeverityWarn, events[1].Severity)
	assert.Equal(t, telemetry.SeverityError, events[2].Severity)

	// The debug line never reaches the ring but still hits the text sink.
	assert.Contains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func Test_SlogHandler_WithGroup_Prefixes_Ring_Messages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ring := telemetry.NewRing(8)
	h := telemetry.NewSlogHandler(&buf, ring, nil)
	log := slog.New(h).WithGroup("boot")

	log.Info("decision")

	events := ring.Recent()
	require.Len(t, events, 1)
	assert.Equal(t, "boot:decision", events[0].Message)
}

func Test_SlogHandler_WithGroup_Nests_Dotted_Prefixes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ring := telemetry.NewRing(8)
	log := slog.New(telemetry.NewSlogHandler(&buf, ring, nil)).WithGroup("boot").WithGroup("engine")

	log.Info("cycle")

	events := ring.Recent()
	require.Len(t, events, 1)
	assert.Equal(t, "boot.engine:cycle", events[0].Message)
}

func Test_SlogHandler_Nil_Ring_Is_Safe(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := telemetry.NewSlogHandler(&buf, nil, nil)
	log := slog.New(h)

	assert.NotPanics(t, func() { log.Info("no ring, no problem") })
	assert.Contains(t, buf.String(), "no ring, no problem")
}
