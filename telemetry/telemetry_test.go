package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openenterprise/dualbank/telemetry"
)

func Test_Ring_Recent_Returns_Events_Oldest_To_Newest(t *testing.T) {
	t.Parallel()

	r := telemetry.NewRing(4)
	r.Push(telemetry.SeverityInfo, "one")
	r.Push(telemetry.SeverityWarn, "two")
	r.Push(telemetry.SeverityError, "three")

	got := r.Recent()
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, "two", got[1].Message)
	assert.Equal(t, "three", got[2].Message)
}

func Test_Ring_Overwrites_Oldest_Once_Full(t *testing.T) {
	t.Parallel()

	r := telemetry.NewRing(2)
	r.Push(telemetry.SeverityInfo, "a")
	r.Push(telemetry.SeverityInfo, "b")
	r.Push(telemetry.SeverityInfo, "c")

	got := r.Recent()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)
	assert.Equal(t, "c", got[1].Message)
}

func Test_NewRing_Clamps_NonPositive_Capacity_To_One(t *testing.T) {
	t.Parallel()

	r := telemetry.NewRing(0)
	r.Push(telemetry.SeverityInfo, "x")
	r.Push(telemetry.SeverityInfo, "y")

	got := r.Recent()
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Message)
}

func Test_Severity_String_Names_Every_Defined_Level(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sev  telemetry.Severity
		want string
	}{
		{telemetry.SeverityDebug, "DEBUG"},
		{telemetry.SeverityInfo, "INFO"},
		{telemetry.SeverityWarn, "WARN"},
		{telemetry.SeverityError, "ERROR"},
		{telemetry.Severity(0), "UNKNOWN"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.sev.String())
	}
}

func Test_Counters_Incr_Accumulates_And_Returns_New_Value(t *testing.T) {
	t.Parallel()

	c := telemetry.NewCounters()
	assert.Equal(t, int64(5), c.Incr("boots", 5))
	assert.Equal(t, int64(8), c.Incr("boots", 3))
	assert.Equal(t, int64(8), c.Value("boots"))
}

func Test_Counters_Value_Of_Unknown_Name_Is_Zero(t *testing.T) {
	t.Parallel()

	c := telemetry.NewCounters()
	assert.Equal(t, int64(0), c.Value("never-incremented"))
}
