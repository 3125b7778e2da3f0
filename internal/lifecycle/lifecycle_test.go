package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
)

func TestNext_Table(t *testing.T) {
	statuses := []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed, models.StatusRejected, models.StatusCancelled}
	events := []Event{EventAccept, EventReject, EventCancel}

	allowed := map[models.AppointmentStatus]map[Event]models.AppointmentStatus{
		models.StatusPending: {
			EventAccept: models.StatusConfirmed,
			EventReject: models.StatusRejected,
			EventCancel: models.StatusCancelled,
		},
		models.StatusConfirmed: {
			EventCancel: models.StatusCancelled,
		},
	}

	for _, from := range statuses {
		for _, ev := range events {
			to, err := Next(from, ev)
			want, ok := allowed[from][ev]
			if ok {
				assert.NoError(t, err, "%s --%s-->", from, ev)
				assert.Equal(t, want, to)
				continue
			}
			assert.True(t, apperrors.Is(err, apperrors.KindState), "%s --%s--> should fail", from, ev)
			assert.Equal(t, from, to)
		}
	}
}

func TestEventFor(t *testing.T) {
	ev, err := EventFor(models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, EventAccept, ev)

	ev, err = EventFor(models.StatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, EventCancel, ev)

	_, err = EventFor(models.StatusPending)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = EventFor("completed")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestActorFor(t *testing.T) {
	assert.Equal(t, ActorAssignedDoctor, ActorFor(EventAccept))
	assert.Equal(t, ActorAssignedDoctor, ActorFor(EventReject))
	assert.Equal(t, ActorOwningPatient, ActorFor(EventCancel))
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(models.StatusPending))
	assert.False(t, Terminal(models.StatusConfirmed))
	assert.True(t, Terminal(models.StatusRejected))
	assert.True(t, Terminal(models.StatusCancelled))
	assert.Equal(t, models.StatusPending, Initial)
}
