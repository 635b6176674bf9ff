// internal/model/preference.go
package model

import "time"

// Preference is a free-text note about a customer's tastes or restrictions.
type Preference struct {
	ID         int       `db:"id" json:"id"`
	CustomerID int       `db:"customer_id" json:"customerId"`
	Preference string    `db:"preference" json:"preference" validate:"required,notblank"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
