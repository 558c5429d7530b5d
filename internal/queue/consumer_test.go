package queue

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() ReservationCreatedEvent {
	return ReservationCreatedEvent{
		ReservationID: 5,
		UserID:        2,
		Tickets: []EventTicket{
			{PerformanceID: 1, Row: 3, Seat: 4},
			{PerformanceID: 1, Row: 3, Seat: 5},
		},
		CreatedAt: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC),
	}
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t,
		"[2024-03-01T19:00:00Z] Reservation created | reservation_id=5 | user_id=2 | tickets=[p1:r3:s4,p1:r3:s5]\n",
		FormatLine(sampleEvent()))
}

func TestConsumerHandle(t *testing.T) {
	var buf bytes.Buffer
	c := &Consumer{Log: logrus.New(), Sink: &buf}

	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	assert.Equal(t, FormatLine(sampleEvent()), buf.String())

	assert.Error(t, c.Handle([]byte("{not json")))
}

func TestOpenLogSink(t *testing.T) {
	f, err := OpenLogSink(t.TempDir())
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString("x\n")
	assert.NoError(t, err)
}
