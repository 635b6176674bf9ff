// internal/model/customer.go
package model

import (
	"encoding/json"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// legacy labels still present in older exports
var genderLabels = map[string]Gender{
	"男性":  GenderMale,
	"女性":  GenderFemale,
	"その他": GenderOther,
}

func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*g = ParseGender(s)
	return nil
}

// ParseGender normalises legacy labels; unknown values are returned as-is so validation can reject them.
func ParseGender(s string) Gender {
	if g, ok := genderLabels[s]; ok {
		return g
	}
	return Gender(s)
}

type Customer struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name" validate:"required,notblank"`
	Furigana    string    `db:"furigana" json:"furigana" validate:"required,notblank"`
	Gender      Gender    `db:"gender" json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber,omitempty"`
	Email       string    `db:"email" json:"email,omitempty" validate:"omitempty,email"`
	Birthday    *Date     `db:"birthday" json:"birthday,omitempty"`
	Address     string    `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
