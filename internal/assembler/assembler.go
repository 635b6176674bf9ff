// Package assembler stitches flat customer, preference and visit-record
// collections into CustomerDetail views. It performs no I/O.
package assembler

import (
	"slices"

	"github.com/samber/lo"

	"github.com/unclebandit/restaurant-crm-backend/internal/model"
)

// ComposeMany returns one CustomerDetail per customer, in input order. Each
// detail holds the preferences and visit records whose CustomerID equals the
// customer's ID, in the order they appear in prefs and visits. Every detail
// gets its own copy of those records, even when a customer ID repeats.
func ComposeMany(customers []model.Customer, prefs []model.Preference, visits []model.VisitRecord) []model.CustomerDetail {
	prefsByOwner := lo.GroupBy(prefs, func(p model.Preference) int { return p.CustomerID })
	visitsByOwner := lo.GroupBy(visits, func(v model.VisitRecord) int { return v.CustomerID })

	details := make([]model.CustomerDetail, 0, len(customers))
	for _, c := range customers {
		details = append(details, compose(c, slices.Clone(prefsByOwner[c.ID]), slices.Clone(visitsByOwner[c.ID])))
	}
	return details
}

// ComposeOne applies the ComposeMany matching rule to a single customer.
func ComposeOne(customer model.Customer, prefs []model.Preference, visits []model.VisitRecord) model.CustomerDetail {
	owned := lo.Filter(prefs, func(p model.Preference, _ int) bool { return p.CustomerID == customer.ID })
	visited := lo.Filter(visits, func(v model.VisitRecord, _ int) bool { return v.CustomerID == customer.ID })
	return compose(customer, owned, visited)
}

// compose never leaves a nil child slice so the JSON view always carries [].
func compose(c model.Customer, prefs []model.Preference, visits []model.VisitRecord) model.CustomerDetail {
	if prefs == nil {
		prefs = []model.Preference{}
	}
	if visits == nil {
		visits = []model.VisitRecord{}
	}
	return model.CustomerDetail{Customer: c, Preferences: prefs, VisitRecords: visits}
}
