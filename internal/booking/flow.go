// Package booking implements the multi-step appointment booking wizard as an
// explicit state machine. Transitions are strictly adjacent: forward only
// when the current step's data passes its guard, backward one step at a time
// without discarding anything entered later. The accumulated context is
// submitted as a single atomic request when the wizard is confirmed.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tritmo/internal/models"
)

// Step identifies a wizard state.
type Step string

const (
	StepSelectDate    Step = "SELECT_DATE"
	StepSelectTime    Step = "SELECT_TIME"
	StepEnterDetails  Step = "ENTER_DETAILS"
	StepSelectPayment Step = "SELECT_PAYMENT"
	StepConfirmed     Step = "CONFIRMED"
)

var stepOrder = []Step{StepSelectDate, StepSelectTime, StepEnterDetails, StepSelectPayment, StepConfirmed}

// Wizard guard and transition errors.
var (
	ErrWrongStep      = errors.New("action not valid in the current step")
	ErrPastDate       = errors.New("appointment date must be today or later")
	ErrNoDateSelected = errors.New("a date must be selected before continuing")
	ErrNoSlotSelected = errors.New("a time slot must be selected before continuing")
	ErrBadMethod      = errors.New("unknown payment method")
	ErrAlreadyBooked  = errors.New("booking already confirmed")
	ErrAtFirstStep    = errors.New("already at the first step")
)

// ValidationError reports a missing required detail field with a
// human-readable message. It is raised before any network or database work.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Details holds the patient-entered information for the EnterDetails step.
// Reason is optional.
type Details struct {
	PatientName string `json:"patientName"`
	Contact     string `json:"contact"`
	Reason      string `json:"reason,omitempty"`
}

// State is the serializable snapshot of a wizard, kept per session (in redis
// on the server, in memory in the client SDK).
type State struct {
	Step      Step                 `json:"step"`
	DoctorID  string               `json:"doctorId"`
	Date      time.Time            `json:"date"`
	Slot      string               `json:"slot"`
	Details   Details              `json:"details"`
	Method    models.PaymentMethod `json:"method"`
	Reference string               `json:"reference,omitempty"`
	LastError string               `json:"lastError,omitempty"`
}

// Request is the atomic booking submission assembled from the wizard context.
type Request struct {
	DoctorID    string               `json:"doctorId"`
	Date        time.Time            `json:"date"`
	Slot        string               `json:"slot"`
	PatientName string               `json:"patientName"`
	Contact     string               `json:"contact"`
	Reason      string               `json:"reason,omitempty"`
	Method      models.PaymentMethod `json:"method"`
}

// Submitter persists a confirmed booking and returns the appointment id.
type Submitter interface {
	Submit(ctx context.Context, req Request) (appointmentID string, err error)
}

// Flow drives one booking wizard. It is not safe for concurrent use; each
// session owns its flow.
type Flow struct {
	state State
	now   func() time.Time
}

// New starts a wizard for the given doctor at the SelectDate step.
func New(doctorID string) *Flow {
	return &Flow{
		state: State{Step: StepSelectDate, DoctorID: doctorID},
		now:   time.Now,
	}
}

// Restore rebuilds a wizard from a stored snapshot.
func Restore(state State) *Flow {
	if state.Step == "" {
		state.Step = StepSelectDate
	}
	return &Flow{state: state, now: time.Now}
}

// Step returns the current wizard step.
func (f *Flow) Step() Step {
	return f.state.Step
}

// State returns a snapshot of the wizard for persistence.
func (f *Flow) State() State {
	return f.state
}

// SetDate records the appointment date. Changing the date clears any
// previously chosen slot, since slots must be recomputed per date.
func (f *Flow) SetDate(date time.Time) error {
	if f.state.Step != StepSelectDate {
		return ErrWrongStep
	}
	today := f.now().Truncate(24 * time.Hour)
	if date.Before(today) {
		return ErrPastDate
	}
	if !sameDay(date, f.state.Date) {
		f.state.Slot = ""
	}
	f.state.Date = date
	return nil
}

// SetSlot records the chosen slot start time.
func (f *Flow) SetSlot(slot string) error {
	if f.state.Step != StepSelectTime {
		return ErrWrongStep
	}
	f.state.Slot = slot
	return nil
}

// SetDetails records the patient details.
func (f *Flow) SetDetails(d Details) error {
	if f.state.Step != StepEnterDetails {
		return ErrWrongStep
	}
	f.state.Details = d
	return nil
}

// SetMethod records the payment method. Changing the method does not touch
// data from earlier steps.
func (f *Flow) SetMethod(m models.PaymentMethod) error {
	if f.state.Step != StepSelectPayment {
		return ErrWrongStep
	}
	if !models.ValidPaymentMethod(m) {
		return ErrBadMethod
	}
	f.state.Method = m
	return nil
}

// Next advances one step if the current step's guard passes. The guard runs
// against the stored context, so going Back and Next again without editing
// restores exactly the previous position with nothing lost.
func (f *Flow) Next() error {
	switch f.state.Step {
	case StepSelectDate:
		if f.state.Date.IsZero() {
			return ErrNoDateSelected
		}
		f.state.Step = StepSelectTime
	case StepSelectTime:
		if f.state.Slot == "" {
			return ErrNoSlotSelected
		}
		f.state.Step = StepEnterDetails
	case StepEnterDetails:
		if f.state.Details.PatientName == "" {
			return &ValidationError{Field: "patientName"}
		}
		if f.state.Details.Contact == "" {
			return &ValidationError{Field: "contact"}
		}
		f.state.Step = StepSelectPayment
	case StepSelectPayment:
		// SelectPayment advances only through Confirm.
		return ErrWrongStep
	default:
		return ErrAlreadyBooked
	}
	f.state.LastError = ""
	return nil
}

// Back moves to the immediate predecessor without clearing later-step data.
func (f *Flow) Back() error {
	switch f.state.Step {
	case StepSelectDate:
		return ErrAtFirstStep
	case StepConfirmed:
		return ErrAlreadyBooked
	}
	for i, s := range stepOrder {
		if s == f.state.Step {
			f.state.Step = stepOrder[i-1]
			return nil
		}
	}
	return ErrWrongStep
}

// Confirm submits the accumulated context as one atomic booking request.
// On success the wizard becomes terminal and returns a reference derived
// from the submission timestamp and the persisted appointment id. On failure
// the wizard stays at SelectPayment with every entered value intact, so a
// retry needs no re-entry.
func (f *Flow) Confirm(ctx context.Context, submitter Submitter) (string, error) {
	if f.state.Step != StepSelectPayment {
		if f.state.Step == StepConfirmed {
			return f.state.Reference, ErrAlreadyBooked
		}
		return "", ErrWrongStep
	}
	if f.state.Method == "" {
		return "", ErrBadMethod
	}

	appointmentID, err := submitter.Submit(ctx, Request{
		DoctorID:    f.state.DoctorID,
		Date:        f.state.Date,
		Slot:        f.state.Slot,
		PatientName: f.state.Details.PatientName,
		Contact:     f.state.Details.Contact,
		Reason:      f.state.Details.Reason,
		Method:      f.state.Method,
	})
	if err != nil {
		f.state.LastError = err.Error()
		return "", err
	}

	f.state.Step = StepConfirmed
	f.state.Reference = Reference(f.now(), appointmentID)
	f.state.LastError = ""
	return f.state.Reference, nil
}

// Reference builds the booking reference shown to the patient.
func Reference(at time.Time, appointmentID string) string {
	short := appointmentID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("TRM-%s-%s", at.Format("20060102150405"), short)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
