// Package notify delivers reminder messages to people. A Notifier is
// handed fully rendered Messages; it never reads the store.
package notify

import (
	"context"
	"errors"
	"log"
)

// Channel ids.
const (
	ChannelMedicine    = "medicine_reminders"
	ChannelAppointment = "appointment_reminders"
)

// Dose actions offered on medicine reminders.
const (
	ActionTaken  = "Taken"
	ActionSnooze = "Snooze"
)

type Channel struct {
	ID          string
	Name        string
	Description string
	// Persistent messages stay until the user acts on them.
	Persistent bool
	Actions    []string
}

var Channels = map[string]Channel{
	ChannelMedicine: {
		ID:          ChannelMedicine,
		Name:        "Medicine Reminders",
		Description: "Reminders to take your medicine",
		Persistent:  true,
		Actions:     []string{ActionTaken, ActionSnooze},
	},
	ChannelAppointment: {
		ID:          ChannelAppointment,
		Name:        "Appointment Reminders",
		Description: "Reminders for upcoming appointments",
	},
}

type Message struct {
	Channel string
	To      string
	Title   string
	Body    string
	// Data carries ids a client needs to act on the message.
	Data map[string]string
}

// Actions returns the actions of m's channel.
func (m Message) Actions() []string {
	return Channels[m.Channel].Actions
}

type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// Log writes every message to the process log.
type Log struct{}

func (Log) Notify(_ context.Context, m Message) error {
	log.Printf("notify[%s] to=%q %s: %s", m.Channel, m.To, m.Title, m.Body)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (mn Multi) Notify(ctx context.Context, m Message) error {
	var errs []error
	for _, n := range mn {
		if err := n.Notify(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
