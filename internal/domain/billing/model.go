// Package billing creates the invoice raised when a patient's journey ends.
package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/pkg/apperr"
)

type Category string

const (
	CategoryConsultation Category = "CONSULTATION"
	CategoryLabTest      Category = "LAB_TEST"
	CategoryProcedure    Category = "PROCEDURE"
	CategoryMedication   Category = "MEDICATION"
	CategoryBedCharges   Category = "BED_CHARGES"
)

var validCategories = map[Category]bool{
	CategoryConsultation: true, CategoryLabTest: true, CategoryProcedure: true,
	CategoryMedication: true, CategoryBedCharges: true,
}

type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusPending       Status = "PENDING"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusCancelled     Status = "CANCELLED"
	StatusRefunded      Status = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentMpesa        PaymentMethod = "MPESA"
	PaymentCard         PaymentMethod = "CARD"
	PaymentInsurance    PaymentMethod = "INSURANCE"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

var validPaymentMethods = map[PaymentMethod]bool{
	PaymentCash: true, PaymentMpesa: true, PaymentCard: true,
	PaymentInsurance: true, PaymentBankTransfer: true,
}

// PaymentTerms is the time between billing and the due date.
const PaymentTerms = 14 * 24 * time.Hour

// LineItem is one charge on an invoice. Money is in minor currency units.
type LineItem struct {
	Code        string   `json:"item_code,omitempty"`
	Description string   `json:"description"`
	Category    Category `json:"category,omitempty"`
	UnitPrice   int64    `json:"unit_price"`
	Quantity    int64    `json:"quantity"`
	Discount    int64    `json:"discount"`
}

// Amount is the line total after its own discount.
func (li LineItem) Amount() int64 {
	return li.UnitPrice*li.Quantity - li.Discount
}

// Details is what the discharging user supplies.
type Details struct {
	Items         []LineItem     `json:"items"`
	Tax           int64          `json:"tax"`
	Discount      int64          `json:"discount"`
	AmountPaid    int64          `json:"amount_paid"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Draft         bool           `json:"draft,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

// Record maps to the billing table.
type Record struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	PatientID     uuid.UUID      `db:"patient_id" json:"patient_id"`
	HospitalID    uuid.UUID      `db:"hospital_id" json:"hospital_id"`
	BilledBy      uuid.UUID      `db:"billed_by" json:"billed_by"`
	BillingDate   time.Time      `db:"billing_date" json:"billing_date"`
	DueDate       time.Time      `db:"due_date" json:"due_date"`
	Items         []LineItem     `db:"items" json:"items"`
	Subtotal      int64          `db:"subtotal" json:"subtotal"`
	Tax           int64          `db:"tax" json:"tax"`
	Discount      int64          `db:"discount" json:"discount"`
	TotalAmount   int64          `db:"total_amount" json:"total_amount"`
	AmountPaid    int64          `db:"amount_paid" json:"amount_paid"`
	Balance       int64          `db:"balance" json:"balance"`
	Status        Status         `db:"status" json:"status"`
	PaymentMethod *PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	ReceiptNumber *string        `db:"receipt_number" json:"receipt_number,omitempty"`
	Notes         string         `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

var (
	ErrNotFound       = apperr.NotFound("BILLING_NOT_FOUND", "billing record not found")
	ErrNotPayable     = apperr.Conflict("BILLING_NOT_PAYABLE", "billing record does not accept payments")
	ErrOverpayment    = apperr.New(apperr.KindValidation, "OVERPAYMENT", "payment exceeds outstanding balance")
	ErrInvalidPayment = apperr.New(apperr.KindValidation, "INVALID_PAYMENT", "payment amount must be positive")
)

// NewInvoice validates d and computes every derived amount.
func NewInvoice(patientID, hospitalID, billedBy uuid.UUID, d Details, now time.Time) (*Record, error) {
	if patientID == uuid.Nil || hospitalID == uuid.Nil {
		return nil, apperr.Validation("patient and hospital are required")
	}
	if len(d.Items) == 0 {
		return nil, apperr.Validation("at least one billing item is required")
	}
	if d.PaymentMethod != nil && !validPaymentMethods[*d.PaymentMethod] {
		return nil, apperr.Validation(fmt.Sprintf("invalid payment method %q", *d.PaymentMethod))
	}

	items := make([]LineItem, len(d.Items))
	var subtotal int64
	for i, li := range d.Items {
		if li.Description == "" {
			return nil, apperr.Validation(fmt.Sprintf("item %d: description is required", i+1))
		}
		if li.Category != "" && !validCategories[li.Category] {
			return nil, apperr.Validation(fmt.Sprintf("item %d: invalid category %q", i+1, li.Category))
		}
		if li.Quantity == 0 {
			li.Quantity = 1
		}
		if li.UnitPrice < 0 || li.Quantity < 0 || li.Discount < 0 {
			return nil, apperr.Validation(fmt.Sprintf("item %d: amounts must not be negative", i+1))
		}
		if li.Discount > li.UnitPrice*li.Quantity {
			return nil, apperr.Validation(fmt.Sprintf("item %d: discount exceeds item amount", i+1))
		}
		items[i] = li
		subtotal += li.Amount()
	}

	if d.Tax < 0 || d.Discount < 0 || d.AmountPaid < 0 {
		return nil, apperr.Validation("tax, discount and amount paid must not be negative")
	}
	total := subtotal + d.Tax - d.Discount
	if total < 0 {
		return nil, apperr.Validation("discount exceeds invoice amount")
	}
	if d.AmountPaid > total {
		return nil, ErrOverpayment
	}

	now = now.UTC()
	r := &Record{
		ID:            uuid.New(),
		PatientID:     patientID,
		HospitalID:    hospitalID,
		BilledBy:      billedBy,
		BillingDate:   now,
		DueDate:       now.Add(PaymentTerms),
		Items:         items,
		Subtotal:      subtotal,
		Tax:           d.Tax,
		Discount:      d.Discount,
		TotalAmount:   total,
		AmountPaid:    d.AmountPaid,
		PaymentMethod: d.PaymentMethod,
		Notes:         d.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.recompute()
	if d.Draft {
		r.Status = StatusDraft
	}
	return r, nil
}

// ApplyPayment records a payment against the outstanding balance.
func (r *Record) ApplyPayment(amount int64, method PaymentMethod, now time.Time) error {
	switch r.Status {
	case StatusCancelled, StatusRefunded, StatusPaid:
		return ErrNotPayable
	}
	if amount <= 0 {
		return ErrInvalidPayment
	}
	if !validPaymentMethods[method] {
		return apperr.Validation(fmt.Sprintf("invalid payment method %q", method))
	}
	if amount > r.Balance {
		return ErrOverpayment
	}
	r.AmountPaid += amount
	r.PaymentMethod = &method
	r.UpdatedAt = now.UTC()
	r.recompute()
	return nil
}

func (r *Record) recompute() {
	r.Balance = r.TotalAmount - r.AmountPaid
	switch {
	case r.TotalAmount > 0 && r.Balance == 0:
		r.Status = StatusPaid
	case r.AmountPaid > 0:
		r.Status = StatusPartiallyPaid
	default:
		r.Status = StatusPending
	}
}
