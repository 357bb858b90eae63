// Package notification delivers best-effort user alerts. Callers hand a
// Notification to a Gateway and move on; delivery happens on a background
// worker and its failures never reach the caller's operation.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is closed")
)

// Notification is what the workflow asks to send.
type Notification struct {
	UserID uuid.UUID
	Title  string
	Body   string
	Data   map[string]string
}

type Gateway interface {
	Notify(ctx context.Context, n Notification) error
}

// Message is the addressed payload handed to a Publisher.
type Message struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	DeviceToken string            `json:"device_token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Titles and bodies shown to patients.
const (
	TitleAppointmentConfirmed = "Appointment Confirmed"
	TitleAppointmentDeclined  = "Appointment Declined"
	TitleMedicinesReady       = "Medicines Ready"
	TitleMedicinesDispensed   = "Medicines Dispensed"

	BodyMedicinesDispensed = "Your medical prescription has been successfully dispensed."
)

func MedicinesReadyBody(pharmacyName string) string {
	return "Your prescription from " + pharmacyName + " is ready for pickup."
}

func AppointmentConfirmedBody(doctorName, date, slot string) string {
	return "Dr. " + doctorName + " confirmed your appointment on " + date + " at " + slot + "."
}

func AppointmentDeclinedBody(doctorName string) string {
	return "Dr. " + doctorName + " could not take your appointment request."
}

// Discard is a Gateway that drops everything.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }
