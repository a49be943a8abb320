package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"tritmo/internal/booking"
	"tritmo/internal/models"
)

// Wizard drives the server-side booking flow. Each call returns the full
// wizard state, so the UI renders purely from the latest snapshot and a
// reconnecting client resumes exactly where it left off.
type Wizard struct {
	client *Client
}

// BookingWizard returns the wizard bound to this client's session.
func (c *Client) BookingWizard() *Wizard {
	return &Wizard{client: c}
}

// Start opens a fresh wizard for the given doctor, replacing any unfinished one.
func (w *Wizard) Start(ctx context.Context, doctorID string) (booking.State, error) {
	var state booking.State
	err := w.client.Post(ctx, "/api/v1/booking/start", map[string]string{"doctorId": doctorID}, &state)
	return state, err
}

// Resume fetches the wizard state left by a previous session.
func (w *Wizard) Resume(ctx context.Context) (booking.State, error) {
	var state booking.State
	err := w.client.Get(ctx, "/api/v1/booking", &state)
	return state, err
}

// Abandon discards the current wizard.
func (w *Wizard) Abandon(ctx context.Context) error {
	return w.client.Delete(ctx, "/api/v1/booking", nil)
}

// SetDate records the appointment date and advances to slot selection.
func (w *Wizard) SetDate(ctx context.Context, date time.Time) (booking.State, error) {
	var state booking.State
	err := w.client.Post(ctx, "/api/v1/booking/date", map[string]string{
		"date": date.Format("2006-01-02"),
	}, &state)
	return state, err
}

// SetSlot records the chosen slot and advances to the details step.
func (w *Wizard) SetSlot(ctx context.Context, slot string) (booking.State, error) {
	var state booking.State
	err := w.client.Post(ctx, "/api/v1/booking/slot", map[string]string{"slot": slot}, &state)
	return state, err
}

// SetDetails records the patient details and advances to payment selection.
func (w *Wizard) SetDetails(ctx context.Context, details booking.Details) (booking.State, error) {
	var state booking.State
	err := w.client.Post(ctx, "/api/v1/booking/details", details, &state)
	return state, err
}

// SetMethod records the payment method.
func (w *Wizard) SetMethod(ctx context.Context, method models.PaymentMethod) (booking.State, error) {
	var state booking.State
	err := w.client.Post(ctx, "/api/v1/booking/payment", map[string]string{
		"method": string(method),
	}, &state)
	return state, err
}

// Back steps the wizard back one step, keeping everything entered so far.
func (w *Wizard) Back(ctx context.Context) (booking.State, error) {
	var state booking.State
	err := w.client.Post(ctx, "/api/v1/booking/back", nil, &state)
	return state, err
}

// Confirm submits the booking. On failure the returned state still holds the
// full context for a retry; on success it carries the booking reference.
func (w *Wizard) Confirm(ctx context.Context) (booking.State, error) {
	var state booking.State
	err := w.client.Post(ctx, "/api/v1/booking/confirm", nil, &state)
	return state, err
}

// SlotListing is the server's answer for one doctor and date.
type SlotListing struct {
	DoctorID string   `json:"doctorId"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

// AvailableSlots fetches the open slots for a doctor on a date. Slots must be
// re-fetched whenever the date changes; a stale list is the usual cause of
// conflict errors at confirmation.
func (c *Client) AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	var listing SlotListing
	path := fmt.Sprintf("/api/v1/doctors/%s/slots?date=%s",
		url.PathEscape(doctorID), date.Format("2006-01-02"))
	if err := c.Get(ctx, path, &listing); err != nil {
		return nil, err
	}
	return listing.Slots, nil
}

// Doctors fetches the public doctor directory, featured doctors first.
func (c *Client) Doctors(ctx context.Context) ([]models.UserSanitized, error) {
	var doctors []models.UserSanitized
	err := c.Get(ctx, "/api/v1/doctors", &doctors)
	return doctors, err
}
