package models

import (
	"fmt"
	"regexp"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TimeSlots are the bookable start times, two shifts at 30 minute steps.
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
}

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ValidDate reports whether s is a real calendar date written as YYYY-MM-DD.
func ValidDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidClock reports whether s is a wall-clock time written as HH:MM.
func ValidClock(s string) bool {
	if !clockPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

// IsTimeSlot reports whether s is one of TimeSlots.
func IsTimeSlot(s string) bool {
	for _, slot := range TimeSlots {
		if slot == s {
			return true
		}
	}
	return false
}

// Appointment is a patient's request to see a doctor at a date and slot.
type Appointment struct {
	BaseModel
	PatientID       string            `gorm:"size:36;not null;index" json:"patientId"`
	DoctorID        string            `gorm:"size:36;not null;index" json:"doctorId"`
	AppointmentDate string            `gorm:"size:10;not null;index" json:"appointmentDate"`
	AppointmentTime string            `gorm:"size:5;not null" json:"appointmentTime"`
	Notes           string            `gorm:"size:1000;not null;default:''" json:"notes"`
	Status          AppointmentStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
}

// Check validates a row read back from the store.
func (a *Appointment) Check() error {
	if !a.Status.Valid() {
		return fmt.Errorf("appointment %s: unknown status %q", a.ID, a.Status)
	}
	if !ValidDate(a.AppointmentDate) {
		return fmt.Errorf("appointment %s: malformed date %q", a.ID, a.AppointmentDate)
	}
	if !ValidClock(a.AppointmentTime) {
		return fmt.Errorf("appointment %s: malformed time %q", a.ID, a.AppointmentTime)
	}
	return nil
}
