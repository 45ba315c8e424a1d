package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/model"
)

func event(kind string, prev *model.Reservation) booking.Event {
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	return booking.Event{
		Kind: kind,
		Reservation: model.Reservation{
			ID:      "r1",
			OwnerID: "u1",
			SpaceID: "S",
			StartAt: start,
			EndAt:   start.Add(time.Hour - time.Second),
			Type:    model.TypeHourly,
			Status:  model.StatusConfirmed,
		},
		Previous: prev,
		At:       start.Add(-time.Hour),
	}
}

func TestEncode(t *testing.T) {
	body, err := Encode(event(booking.EventConfirmed, nil))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "reservation.confirmed", m["kind"])
	assert.Equal(t, "r1", m["reservationId"])
	assert.Equal(t, "hourly", m["reservationType"])
	assert.Equal(t, "2030-01-07T09:00:00Z", m["startAt"])
	assert.NotContains(t, m, "deskId")
	assert.NotContains(t, m, "previous")
}

func TestEncodePrevious(t *testing.T) {
	ev := event(booking.EventUpdated, nil)
	same := ev.Reservation
	same.Reason = "team offsite"

	body, err := Encode(event(booking.EventUpdated, &same))
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Nil(t, m.Previous, "status-only changes carry no previous interval")

	earlier := ev.Reservation
	earlier.StartAt = earlier.StartAt.Add(-2 * time.Hour)
	earlier.EndAt = earlier.EndAt.Add(-2 * time.Hour)
	body, err = Encode(event(booking.EventUpdated, &earlier))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &m))
	require.NotNil(t, m.Previous)
	assert.True(t, m.Previous.StartAt.Equal(earlier.StartAt))
}

// needs a running broker
func TestPublish(t *testing.T) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("AMQP_URL not set")
	}
	b, err := Dial(url, "reservations.test")
	require.NoError(t, err)
	defer b.Close()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "reservation.*", "reservations.test", false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Publish(ctx, event(booking.EventConfirmed, nil)))

	select {
	case d := <-deliveries:
		assert.Equal(t, "reservation.confirmed", d.RoutingKey)
		assert.Equal(t, "application/json", d.ContentType)
		var m Message
		require.NoError(t, json.Unmarshal(d.Body, &m))
		assert.Equal(t, "r1", m.ReservationID)
	case <-ctx.Done():
		t.Fatal("no delivery")
	}
}
