// Package models contains GORM persistence models. They are kept apart from
// the domain types, which carry no ORM tags; repositories convert between the two.
package models
