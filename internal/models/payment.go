package models

import "time"

// GlobalPaymentID is the fixed key of the singleton payment settings row.
const GlobalPaymentID = "global"

// LedgerStatus derives from the paid and remaining amounts.
type LedgerStatus string

const (
	LedgerStatusPending LedgerStatus = "pending"
	LedgerStatusPartial LedgerStatus = "partial"
	LedgerStatusPaid    LedgerStatus = "paid"
)

// PaymentContact is the payment-collection detail shown to students.
type PaymentContact struct {
	UPIID      *string `db:"upi_id" json:"upiId,omitempty"`
	Phone      *string `db:"phone" json:"phone,omitempty"`
	QRImageURL *string `db:"qr_image_url" json:"qrImageUrl,omitempty"`
}

// GlobalPaymentConfig is the institution-wide payment settings singleton.
type GlobalPaymentConfig struct {
	ID string `db:"id" json:"id"`
	PaymentContact
	Active    bool      `db:"active" json:"active"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// StudentLedger tracks what a single student has paid.
type StudentLedger struct {
	ID              string       `db:"id" json:"id"`
	UserID          string       `db:"user_id" json:"userId"`
	PaidAmount      float64      `db:"paid_amount" json:"paidAmount"`
	RemainingAmount float64      `db:"remaining_amount" json:"remainingAmount"`
	Status          LedgerStatus `db:"status" json:"status"`
	PaymentContact
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// PaymentView is a student ledger merged with the global contact fields.
type PaymentView struct {
	UserID          string       `json:"userId,omitempty"`
	PaidAmount      float64      `json:"paidAmount"`
	RemainingAmount float64      `json:"remainingAmount"`
	Status          LedgerStatus `json:"status"`
	PaymentContact
	IsUsingGlobal bool `json:"isUsingGlobal"`
}

// UpdateLedgerRequest is an admin patch for a student's ledger.
type UpdateLedgerRequest struct {
	PaidAmount      *float64 `json:"paidAmount" validate:"omitempty,gte=0"`
	RemainingAmount *float64 `json:"remainingAmount" validate:"omitempty,gte=0"`
	UPIID           *string  `json:"upiId" validate:"omitempty,max=120"`
	Phone           *string  `json:"phone" validate:"omitempty,max=20"`
}

// UpdateGlobalPaymentRequest patches the global payment settings.
type UpdateGlobalPaymentRequest struct {
	UPIID  *string `json:"upiId" validate:"omitempty,max=120"`
	Phone  *string `json:"phone" validate:"omitempty,max=20"`
	Active *bool   `json:"active"`
}
