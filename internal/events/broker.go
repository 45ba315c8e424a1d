// Package events publishes committed reservation changes to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/model"
)

type Broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	url      string
}

// Dial connects and declares a durable topic exchange. Routing keys are the
// event kinds, e.g. reservation.confirmed.
func Dial(url, exchange string) (*Broker, error) {
	b := &Broker{exchange: exchange, url: url}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		b.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	b.conn, b.channel = conn, ch
	return nil
}

func (b *Broker) ensureConnection() error {
	if b.conn != nil && !b.conn.IsClosed() && b.channel != nil && !b.channel.IsClosed() {
		return nil
	}
	log.Printf("amqp: reconnecting to exchange %s", b.exchange)
	return b.connect()
}

func (b *Broker) Publish(ctx context.Context, ev booking.Event) error {
	body, err := Encode(ev)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureConnection(); err != nil {
		return err
	}
	return b.channel.PublishWithContext(ctx,
		b.exchange,
		ev.Kind,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.Reservation.ID + ":" + ev.At.UTC().Format(time.RFC3339Nano),
			Timestamp:    ev.At,
			Body:         body,
		},
	)
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

type interval struct {
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// Message is the JSON body of every reservation event.
type Message struct {
	Kind            string    `json:"kind"`
	ReservationID   string    `json:"reservationId"`
	OwnerID         string    `json:"ownerId"`
	SpaceID         string    `json:"spaceId"`
	DeskID          string    `json:"deskId,omitempty"`
	StartAt         time.Time `json:"startAt"`
	EndAt           time.Time `json:"endAt"`
	ReservationType string    `json:"reservationType"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	Previous        *interval `json:"previous,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

func Encode(ev booking.Event) ([]byte, error) {
	r := ev.Reservation
	m := Message{
		Kind:            ev.Kind,
		ReservationID:   r.ID,
		OwnerID:         r.OwnerID,
		SpaceID:         r.SpaceID,
		DeskID:          r.DeskID,
		StartAt:         r.StartAt,
		EndAt:           r.EndAt,
		ReservationType: string(r.Type),
		Status:          string(r.Status),
		Reason:          r.Reason,
		OccurredAt:      ev.At,
	}
	if p := ev.Previous; p != nil && moved(*p, r) {
		m.Previous = &interval{StartAt: p.StartAt, EndAt: p.EndAt}
	}
	return json.Marshal(m)
}

func moved(a, b model.Reservation) bool {
	return !a.StartAt.Equal(b.StartAt) || !a.EndAt.Equal(b.EndAt) ||
		a.SpaceID != b.SpaceID || a.DeskID != b.DeskID
}
