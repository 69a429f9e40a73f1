package status

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Source: Master, Kind: Ready}, "Master: READY"},
		{Event{Source: Master, Kind: Heartbeat}, "Master: STAGE — IDLE: OK"},
		{Event{Source: Master, Kind: StartCommand}, "Master: START command received."},
		{Event{Source: Master, Kind: FlashCommand}, "Master: FLASH command received."},
		{Event{Source: Master, Kind: Start}, "Master: START"},
		{Event{Source: Master, Kind: ResetSent}, "Master: SENT RESET"},
		{Event{Source: Master, Kind: Begin, Stage: AllHigh}, "Master: STAGE — ALL_HIGH: BEGIN"},
		{Event{Source: Master, Kind: OK, Stage: AllLow}, "Master: STAGE — ALL_LOW: OK"},
		{Event{Source: Master, Kind: LineOK, Stage: Sequence, Line: "P0_31"}, "Master: STAGE — SEQUENCE: OK — P0_31"},
		{Event{Source: Master, Kind: AllOK, Stage: Sequence}, "Master: STAGE — SEQUENCE: ALL OK"},
		{Event{Source: Master, Kind: OK, Stage: Success}, "Master: STAGE — SUCCESS: OK"},
		{Event{Source: Master, Kind: Error, Stage: AllHigh, Detail: "LOW_PINS: P0_02"}, "Master: STAGE — ALL_HIGH: ERROR. LOW_PINS: P0_02"},
		{Event{Source: Master, Kind: Fail}, "Master: FAIL"},
		{Event{Source: Target, Kind: Heartbeat}, "Target: STAGE — IDLE: OK"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.String())
	}
}

func TestEventJSON(t *testing.T) {
	b, err := json.Marshal(Event{Source: Master, Kind: LineOK, Stage: Sequence, Line: "P0_29"})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "line-ok", m["kind"])
	assert.Equal(t, "Master", m["source"])
	assert.Equal(t, "P0_29", m["line"])
}

func TestRecorderBounded(t *testing.T) {
	r := NewRecorder(3)
	for i := 0; i < 5; i++ {
		r.Report(Event{Source: Master, Kind: Heartbeat})
	}
	r.Report(Event{Source: Master, Kind: Fail})

	require.Len(t, r.Events(), 3)
	assert.Equal(t, 2, r.Count(Heartbeat))
	assert.Equal(t, "Master: FAIL", r.Lines()[2])

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestConsoleWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	Multi{c, Discard}.Report(Event{Source: Master, Kind: Error, Stage: Sequence, Detail: "FAIL_PINS: P0_02, P1_15"})
	c.Report(Event{Source: Master, Kind: Start})

	assert.Equal(t, "Master: STAGE — SEQUENCE: ERROR. FAIL_PINS: P0_02, P1_15\nMaster: START\n", buf.String())
}
