// Package services defines the business logic for repair orders and shops.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Repair-order errors.
var (
	// ErrRepairOrderNotFound indicates that no repair order carries the
	// requested ID.
	ErrRepairOrderNotFound = errors.New("repair order not found")

	// ErrEmptyRONumber is returned when a request to create a repair order
	// carries no RO number.
	ErrEmptyRONumber = errors.New("ro number is empty")

	// ErrEmptyStatus is returned when a status update carries no status.
	ErrEmptyStatus = errors.New("status is empty")

	// ErrNegativeCost is returned when a supplied cost is below zero.
	ErrNegativeCost = errors.New("cost must not be negative")

	// ErrNoArchive indicates that archiving is not configured on this
	// deployment.
	ErrNoArchive = errors.New("archive table not configured")
)

// Shop errors.
var (
	// ErrShopNotFound indicates that no shop carries the requested ID.
	ErrShopNotFound = errors.New("shop not found")

	// ErrEmptyBusinessName is returned when a request to create or update a
	// shop carries no business name.
	ErrEmptyBusinessName = errors.New("business name is empty")
)
