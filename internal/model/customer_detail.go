// internal/model/customer_detail.go
package model

import "github.com/samber/mo"

// CustomerDetail joins a customer with its preferences and visit records. It is composed on demand and never stored.
type CustomerDetail struct {
	Customer     Customer      `json:"customer"`
	Preferences  []Preference  `json:"preferences" validate:"dive"`
	VisitRecords []VisitRecord `json:"visitRecords" validate:"dive"`
}

// CustomerSearch holds the optional, AND-combined search filters. An absent option imposes no constraint.
type CustomerSearch struct {
	Name        mo.Option[string]
	Furigana    mo.Option[string]
	Gender      mo.Option[string]
	PhoneNumber mo.Option[string]
	Email       mo.Option[string]
	Address     mo.Option[string]
}

// CustomerUpdate separates "not supplied" (None) from "supplied, possibly empty" (Some) child collections.
type CustomerUpdate struct {
	Customer     Customer
	Preferences  mo.Option[[]Preference]
	VisitRecords mo.Option[[]VisitRecord]
}

// NewCustomerUpdate maps nil slices to None and any non-nil slice, including an empty one, to Some.
func NewCustomerUpdate(detail CustomerDetail) CustomerUpdate {
	update := CustomerUpdate{
		Customer:     detail.Customer,
		Preferences:  mo.None[[]Preference](),
		VisitRecords: mo.None[[]VisitRecord](),
	}
	if detail.Preferences != nil {
		update.Preferences = mo.Some(detail.Preferences)
	}
	if detail.VisitRecords != nil {
		update.VisitRecords = mo.Some(detail.VisitRecords)
	}
	return update
}
