// Package booking turns availability into confirmed appointments: it
// validates wishes against the practice rules, reserves slot spans, and
// keeps the appointment records.
package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Appointment is one confirmed (or later cancelled) booking.
type Appointment struct {
	Code        string        `json:"code"`
	PatientName string        `json:"patient_name"`
	Phone       string        `json:"phone,omitempty"`
	Treatment   string        `json:"treatment"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Duration    time.Duration `json:"duration"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewCode builds a booking code like APT-20250115100000-a1b2c3d4. The
// timestamp part encodes the appointment start, the suffix keeps codes
// unique when two bookings share a start.
func NewCode(date, tm string, loc *time.Location) string {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+tm, loc)
	if err != nil {
		start = time.Now().In(loc)
	}
	return fmt.Sprintf("APT-%s-%s", start.Format("20060102150405"), uuid.NewString()[:8])
}
