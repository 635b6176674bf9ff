package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/unclebandit/restaurant-crm-backend/internal/assembler"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildCustomerSearch renders the filtered customer query. Name, furigana and
// address match case-insensitive substrings; gender, phone number and email
// match exactly. All supplied filters are AND-combined.
func buildCustomerSearch(search model.CustomerSearch) (string, []interface{}) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	contains := func(column string, opt mo.Option[string]) {
		if v, ok := opt.Get(); ok {
			query += fmt.Sprintf(" AND %s ILIKE $%d", column, argPos)
			args = append(args, "%"+likeEscaper.Replace(v)+"%")
			argPos++
		}
	}
	equals := func(column string, opt mo.Option[string]) {
		if v, ok := opt.Get(); ok {
			query += fmt.Sprintf(" AND %s = $%d", column, argPos)
			args = append(args, v)
			argPos++
		}
	}

	contains("name", search.Name)
	contains("furigana", search.Furigana)
	equals("gender", search.Gender.Map(func(g string) (string, bool) { return string(model.ParseGender(g)), true }))
	equals("phone_number", search.PhoneNumber)
	equals("email", search.Email)
	contains("address", search.Address)

	query += " ORDER BY id"
	return query, args
}

// FindCustomerDetailsByConditions returns matching customers already joined with their children.
func (s *Store) FindCustomerDetailsByConditions(ctx context.Context, search model.CustomerSearch) ([]model.CustomerDetail, error) {
	query, args := buildCustomerSearch(search)
	customers, err := s.queryCustomers(ctx, "search customers", query, args...)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return []model.CustomerDetail{}, nil
	}

	ids := pq.Array(lo.Map(customers, func(c model.Customer, _ int) int64 { return int64(c.ID) }))

	prefs, err := s.queryPreferences(ctx, "search customers: preferences",
		`SELECT `+preferenceColumns+` FROM preferences WHERE customer_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	visits, err := s.queryVisitRecords(ctx, "search customers: visit records",
		`SELECT `+visitRecordColumns+` FROM visit_records WHERE customer_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}

	return assembler.ComposeMany(customers, prefs, visits), nil
}
