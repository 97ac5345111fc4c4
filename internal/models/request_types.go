package models

import (
	"time"
)

// RequestRecord is the model for the 'requests' table.
// One row per stock fulfillment request, scoped to the administrator
// who owns the branch the request was filed against.
type RequestRecord struct {
	ID                string `json:"id" db:"id"`           // UUID, assigned by the store at creation
	AdminID           int64  `json:"adminId" db:"admin_id"` // The administrator scope
	ProductCode       string `json:"productCode" db:"product_code"`
	ProductName       string `json:"productName" db:"product_name"`
	Image             []byte `json:"image,omitempty" db:"image"` // PNG blob; JSON-marshals as base64
	RequestedEmail    string `json:"requestedEmail" db:"requested_email"`
	Quantity          int    `json:"quantity" db:"quantity"`                   // Stock currently available
	RequestedQuantity int    `json:"requestedQuantity" db:"requested_quantity"` // Amount asked for

	// Requested flips once the request is acknowledged as genuine.
	// PlaceOrder flips once an admin confirms the order; it never reverts.
	Requested  bool `json:"requested" db:"requested"`
	PlaceOrder bool `json:"placeOrder" db:"place_order"`

	// --- Delivery Milestones (Pointers = Clean JSON) ---
	// Each is nil until its stage is reached, then immutable.
	OrderTakenDate        *time.Time `json:"orderTakenDate,omitempty" db:"order_taken_date"`
	OrderSendDate         *time.Time `json:"orderSendDate,omitempty" db:"order_send_date"`
	ReachedNearBranchDate *time.Time `json:"reachedNearBranchDate,omitempty" db:"reached_near_branch_date"`
	DeliveredDate         *time.Time `json:"deliveredDate,omitempty" db:"delivered_date"`

	// ShowButton mirrors !PlaceOrder for the UI's "Place Order" affordance.
	ShowButton bool `json:"showButton" db:"show_button"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// DateField names one of the four delivery milestone fields.
// The string values double as the JSON/PATCH field names, so the
// engine, dispatcher, HTTP client and store handlers all agree.
type DateField string

const (
	FieldOrderTaken        DateField = "orderTakenDate"
	FieldOrderSend         DateField = "orderSendDate"
	FieldReachedNearBranch DateField = "reachedNearBranchDate"
	FieldDelivered         DateField = "deliveredDate"
)

// DateFields lists the milestones in delivery order. A later field must
// never be set while an earlier one is absent; the store enforces this.
var DateFields = [4]DateField{
	FieldOrderTaken,
	FieldOrderSend,
	FieldReachedNearBranch,
	FieldDelivered,
}

// IsDateField reports whether name is one of the four milestone fields.
func IsDateField(name string) bool {
	for _, f := range DateFields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// Column returns the database column backing the field.
func (f DateField) Column() string {
	switch f {
	case FieldOrderTaken:
		return "order_taken_date"
	case FieldOrderSend:
		return "order_send_date"
	case FieldReachedNearBranch:
		return "reached_near_branch_date"
	case FieldDelivered:
		return "delivered_date"
	}
	return ""
}

// Date returns the record's value for the given milestone field.
func (r *RequestRecord) Date(f DateField) *time.Time {
	switch f {
	case FieldOrderTaken:
		return r.OrderTakenDate
	case FieldOrderSend:
		return r.OrderSendDate
	case FieldReachedNearBranch:
		return r.ReachedNearBranchDate
	case FieldDelivered:
		return r.DeliveredDate
	}
	return nil
}

// SetDate stamps the given milestone field on the record.
func (r *RequestRecord) SetDate(f DateField, t time.Time) {
	switch f {
	case FieldOrderTaken:
		r.OrderTakenDate = &t
	case FieldOrderSend:
		r.OrderSendDate = &t
	case FieldReachedNearBranch:
		r.ReachedNearBranchDate = &t
	case FieldDelivered:
		r.DeliveredDate = &t
	}
}
