package services

import (
	"time"

	"github.com/Dosada05/tournament-registry/models"
)

// RegistrationState is the derived registration window of a tournament.
type RegistrationState string

const (
	StateInvalid   RegistrationState = "invalid"
	StateCancelled RegistrationState = "cancelled"
	StateClosed    RegistrationState = "closed"
	StateFull      RegistrationState = "full"
	StateOpen      RegistrationState = "open"
)

const (
	ReasonInvalid   = "Invalid Tournament"
	ReasonCancelled = "Cancelled (No enrollments)"
	ReasonClosed    = "Registration Closed"
	ReasonFull      = "Registration Full"
	ReasonOpen      = "Open"
)

// StatusResult is the outcome of EvaluateStatus.
type StatusResult struct {
	Open   bool
	State  RegistrationState
	Reason string
	// Label is the tournament's informational status for open tournaments and
	// the derived state otherwise.
	Label string
}

// Window converts the result into its wire form.
func (r StatusResult) Window() models.RegistrationWindow {
	return models.RegistrationWindow{Open: r.Open, State: string(r.State), Reason: r.Reason, Label: r.Label}
}

// EvaluateStatus derives whether t accepts registrations at now.
//
// Checks run in order: invalid record, past deadline with nobody registered
// (cancelled), past deadline (closed), capacity reached (full), open. The
// deadline day is inclusive through 23:59:59 in now's location. A capacity of
// zero means unlimited.
func EvaluateStatus(t *models.Tournament, now time.Time) StatusResult {
	if t == nil || !t.RegistrationDeadline.Valid() || t.RegisteredCount < 0 || t.MaxParticipants < 0 {
		return StatusResult{State: StateInvalid, Reason: ReasonInvalid, Label: "unknown"}
	}

	if now.After(t.RegistrationDeadline.EndOfDay(now.Location())) {
		if t.RegisteredCount == 0 {
			return StatusResult{State: StateCancelled, Reason: ReasonCancelled, Label: models.LabelCancelled}
		}
		return StatusResult{State: StateClosed, Reason: ReasonClosed, Label: models.LabelClosed}
	}

	if t.MaxParticipants > 0 && t.RegisteredCount >= t.MaxParticipants {
		return StatusResult{State: StateFull, Reason: ReasonFull, Label: models.LabelFull}
	}

	label := t.Status
	switch label {
	case "", models.LabelCancelled, models.LabelClosed, models.LabelFull:
		label = models.LabelUpcoming
	}
	return StatusResult{Open: true, State: StateOpen, Reason: ReasonOpen, Label: label}
}

// Clock returns the current instant in the configured location.
type Clock func() time.Time

// SystemClock returns a Clock reading wall time in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}
