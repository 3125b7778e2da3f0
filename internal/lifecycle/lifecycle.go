// Package lifecycle holds the appointment status state machine.
package lifecycle

import (
	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
)

// Event is a requested change to an appointment.
type Event string

const (
	EventAccept Event = "accept"
	EventReject Event = "reject"
	EventCancel Event = "cancel"
)

// Actor is the party allowed to fire an event.
type Actor string

const (
	ActorAssignedDoctor Actor = "assigned_doctor"
	ActorOwningPatient  Actor = "owning_patient"
)

type edge struct {
	from  models.AppointmentStatus
	event Event
}

var transitions = map[edge]models.AppointmentStatus{
	{models.StatusPending, EventAccept}:   models.StatusConfirmed,
	{models.StatusPending, EventReject}:   models.StatusRejected,
	{models.StatusPending, EventCancel}:   models.StatusCancelled,
	{models.StatusConfirmed, EventCancel}: models.StatusCancelled,
}

// Initial is the status of every newly created appointment.
const Initial = models.StatusPending

// Next applies event to from. Undefined transitions are state errors.
func Next(from models.AppointmentStatus, event Event) (models.AppointmentStatus, error) {
	to, ok := transitions[edge{from, event}]
	if !ok {
		return from, apperrors.Statef("Cannot %s an appointment that is %s", event, from)
	}
	return to, nil
}

// EventFor maps a requested target status to the event that produces it.
func EventFor(target models.AppointmentStatus) (Event, error) {
	switch target {
	case models.StatusConfirmed:
		return EventAccept, nil
	case models.StatusRejected:
		return EventReject, nil
	case models.StatusCancelled:
		return EventCancel, nil
	}
	return "", apperrors.Validationf("Status must be one of confirmed, rejected, cancelled (got %q)", target)
}

// ActorFor names who may fire event.
func ActorFor(event Event) Actor {
	if event == EventCancel {
		return ActorOwningPatient
	}
	return ActorAssignedDoctor
}

// Terminal reports whether no event can leave status.
func Terminal(status models.AppointmentStatus) bool {
	for e := range transitions {
		if e.from == status {
			return false
		}
	}
	return true
}
