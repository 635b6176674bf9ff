// internal/model/visit_record.go
package model

import "time"

type VisitRecord struct {
	ID         int       `db:"id" json:"id"`
	CustomerID int       `db:"customer_id" json:"customerId"`
	VisitDate  *Date     `db:"visit_date" json:"visitDate,omitempty"`
	TotalSpent float64   `db:"total_spent" json:"totalSpent" validate:"gte=0"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
