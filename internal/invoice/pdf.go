// Package invoice renders bills as downloadable PDF documents.
package invoice

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"tritmo/internal/models"
)

// GeneratePDF renders a bill with its appointment, doctor, and patient
// context into a PDF invoice.
func GeneratePDF(bill models.Bill, appointment models.Appointment, doctor models.User, patient models.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 90, 120)
	pdf.CellFormat(0, 10, "Tritmo - Healthcare Appointments", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "www.tritmo.example", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Invoice", "1", 1, "C", false, 0, "")
	addDetail(pdf, "Invoice ID", bill.ID)
	addDetail(pdf, "Reference", appointment.Reference)
	addDetail(pdf, "Doctor", doctor.FirstName+" "+doctor.LastName)
	if doctor.DoctorProfile != nil {
		addDetail(pdf, "Specialization", doctor.DoctorProfile.Specialization)
	}
	addDetail(pdf, "Patient", patient.FirstName+" "+patient.LastName)
	addDetail(pdf, "Appointment Date", appointment.Date.Format("2006-01-02"))
	addDetail(pdf, "Time Slot", appointment.Slot)

	pdf.CellFormat(0, 10, "Payment Details", "1", 1, "C", false, 0, "")
	addDetail(pdf, "Status", string(bill.Status))
	if bill.Method != "" {
		addDetail(pdf, "Method", string(bill.Method))
	}
	addDetail(pdf, "Due Date", bill.DueDate.Format("2006-01-02"))
	pdf.SetFont("Arial", "B", 13)
	addDetail(pdf, "Total", fmt.Sprintf("%.2f", bill.Amount))

	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, "Thank you for using Tritmo.", "", "L", false)
	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated invoice", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func addDetail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(60, 8, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, value, "1", 1, "L", false, 0, "")
}
