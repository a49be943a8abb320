package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tritmo/internal/models"
)

type fakeSubmitter struct {
	calls int
	id    string
	err   error
	last  Request
}

func (s *fakeSubmitter) Submit(_ context.Context, req Request) (string, error) {
	s.calls++
	s.last = req
	return s.id, s.err
}

func tomorrow() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func advanceToPayment(t *testing.T, f *Flow) {
	t.Helper()
	if err := f.SetDate(tomorrow()); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next from SelectDate: %v", err)
	}
	if err := f.SetSlot("09:30"); err != nil {
		t.Fatalf("SetSlot: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next from SelectTime: %v", err)
	}
	if err := f.SetDetails(Details{PatientName: "Jane Roe", Contact: "jane@example.com", Reason: "checkup"}); err != nil {
		t.Fatalf("SetDetails: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next from EnterDetails: %v", err)
	}
}

func TestFlow_HappyPath(t *testing.T) {
	f := New("doc-1")
	advanceToPayment(t, f)

	if err := f.SetMethod(models.MethodCard); err != nil {
		t.Fatalf("SetMethod: %v", err)
	}

	sub := &fakeSubmitter{id: "aaaabbbb-cccc-dddd-eeee-ffff00001111"}
	ref, err := f.Confirm(context.Background(), sub)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if f.Step() != StepConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", f.Step())
	}
	if !strings.HasPrefix(ref, "TRM-") || !strings.HasSuffix(ref, "aaaabbbb") {
		t.Fatalf("unexpected reference %q", ref)
	}
	if sub.last.Slot != "09:30" || sub.last.PatientName != "Jane Roe" || sub.last.Method != models.MethodCard {
		t.Fatalf("submitted context lost data: %+v", sub.last)
	}
}

func TestFlow_PastDateRejected(t *testing.T) {
	f := New("doc-1")
	if err := f.SetDate(time.Now().Add(-48 * time.Hour)); !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
	if f.Step() != StepSelectDate {
		t.Fatalf("step moved on rejected input: %s", f.Step())
	}
}

func TestFlow_CannotAdvanceWithoutDate(t *testing.T) {
	f := New("doc-1")
	if err := f.Next(); !errors.Is(err, ErrNoDateSelected) {
		t.Fatalf("expected ErrNoDateSelected, got %v", err)
	}
	if f.Step() != StepSelectDate {
		t.Fatalf("state changed on rejected transition: %s", f.Step())
	}
}

func TestFlow_CannotAdvanceWithoutSlot(t *testing.T) {
	f := New("doc-1")
	if err := f.SetDate(tomorrow()); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}

	if err := f.Next(); !errors.Is(err, ErrNoSlotSelected) {
		t.Fatalf("expected ErrNoSlotSelected, got %v", err)
	}
	if f.Step() != StepSelectTime {
		t.Fatalf("state changed on rejected transition: %s", f.Step())
	}
}

func TestFlow_MissingDetailsRejected(t *testing.T) {
	f := New("doc-1")
	if err := f.SetDate(tomorrow()); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	f.Next()
	f.SetSlot("10:00")
	f.Next()

	if err := f.SetDetails(Details{Contact: "x@y.z"}); err != nil {
		t.Fatalf("SetDetails: %v", err)
	}
	err := f.Next()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "patientName" {
		t.Fatalf("expected patientName missing, got %s", verr.Field)
	}
	if !strings.Contains(verr.Error(), "required") {
		t.Fatalf("expected human-readable message, got %q", verr.Error())
	}

	// Reason stays optional.
	f.SetDetails(Details{PatientName: "Jane", Contact: "x@y.z"})
	if err := f.Next(); err != nil {
		t.Fatalf("Next with reason empty: %v", err)
	}
}

func TestFlow_BackForwardPreservesContext(t *testing.T) {
	f := New("doc-1")
	advanceToPayment(t, f)
	before := f.State()

	if err := f.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if f.Step() != StepEnterDetails {
		t.Fatalf("expected ENTER_DETAILS, got %s", f.Step())
	}
	if err := f.Next(); err != nil {
		t.Fatalf("Next after Back: %v", err)
	}

	after := f.State()
	if before != after {
		t.Fatalf("context changed across Back/Next:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestFlow_BackFromFirstStep(t *testing.T) {
	f := New("doc-1")
	if err := f.Back(); !errors.Is(err, ErrAtFirstStep) {
		t.Fatalf("expected ErrAtFirstStep, got %v", err)
	}
}

func TestFlow_DateChangeClearsSlot(t *testing.T) {
	f := New("doc-1")
	if err := f.SetDate(tomorrow()); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	f.Next()
	f.SetSlot("11:00")
	f.Back()

	if err := f.SetDate(tomorrow().Add(24 * time.Hour)); err != nil {
		t.Fatalf("SetDate again: %v", err)
	}
	if f.State().Slot != "" {
		t.Fatalf("slot not cleared after date change: %q", f.State().Slot)
	}

	// Re-selecting the same date keeps the slot.
	f2 := New("doc-2")
	d := tomorrow()
	f2.SetDate(d)
	f2.Next()
	f2.SetSlot("11:00")
	f2.Back()
	f2.SetDate(d)
	if f2.State().Slot != "11:00" {
		t.Fatalf("slot lost on unchanged date: %q", f2.State().Slot)
	}
}

func TestFlow_FailedSubmitKeepsData(t *testing.T) {
	f := New("doc-1")
	advanceToPayment(t, f)
	f.SetMethod(models.MethodCash)

	sub := &fakeSubmitter{err: errors.New("slot no longer available")}
	if _, err := f.Confirm(context.Background(), sub); err == nil {
		t.Fatal("expected submit error")
	}

	if f.Step() != StepSelectPayment {
		t.Fatalf("expected to stay at SELECT_PAYMENT, got %s", f.Step())
	}
	st := f.State()
	if st.Details.PatientName != "Jane Roe" || st.Slot != "09:30" || st.Method != models.MethodCash {
		t.Fatalf("entered data lost after failure: %+v", st)
	}
	if st.LastError != "slot no longer available" {
		t.Fatalf("expected verbatim error preserved, got %q", st.LastError)
	}

	// Retry succeeds without re-entering anything.
	sub.err = nil
	sub.id = "11112222-3333-4444-5555-666677778888"
	if _, err := f.Confirm(context.Background(), sub); err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	if sub.calls != 2 {
		t.Fatalf("expected 2 submit calls, got %d", sub.calls)
	}
}

func TestFlow_ConfirmRequiresMethod(t *testing.T) {
	f := New("doc-1")
	advanceToPayment(t, f)

	if _, err := f.Confirm(context.Background(), &fakeSubmitter{}); !errors.Is(err, ErrBadMethod) {
		t.Fatalf("expected ErrBadMethod, got %v", err)
	}
}

func TestFlow_MethodChangeKeepsEarlierSteps(t *testing.T) {
	f := New("doc-1")
	advanceToPayment(t, f)

	f.SetMethod(models.MethodMobile)
	f.SetMethod(models.MethodCard)

	st := f.State()
	if st.Slot != "09:30" || st.Details.PatientName != "Jane Roe" {
		t.Fatalf("earlier steps reset by method change: %+v", st)
	}
	if err := f.SetMethod("WIRE"); !errors.Is(err, ErrBadMethod) {
		t.Fatalf("expected ErrBadMethod for unknown method, got %v", err)
	}
}

func TestFlow_RestoreRoundTrip(t *testing.T) {
	f := New("doc-1")
	advanceToPayment(t, f)
	f.SetMethod(models.MethodCash)

	restored := Restore(f.State())
	if restored.Step() != StepSelectPayment {
		t.Fatalf("expected SELECT_PAYMENT after restore, got %s", restored.Step())
	}
	if restored.State() != f.State() {
		t.Fatalf("restore lost state")
	}
}

func TestFlow_ConfirmedIsTerminal(t *testing.T) {
	f := New("doc-1")
	advanceToPayment(t, f)
	f.SetMethod(models.MethodCash)

	sub := &fakeSubmitter{id: "id-1"}
	if _, err := f.Confirm(context.Background(), sub); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if _, err := f.Confirm(context.Background(), sub); !errors.Is(err, ErrAlreadyBooked) {
		t.Fatalf("expected ErrAlreadyBooked, got %v", err)
	}
	if err := f.Back(); !errors.Is(err, ErrAlreadyBooked) {
		t.Fatalf("expected ErrAlreadyBooked on Back, got %v", err)
	}
	if sub.calls != 1 {
		t.Fatalf("duplicate submission: %d calls", sub.calls)
	}
}
