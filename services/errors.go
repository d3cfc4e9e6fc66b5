package services

import "errors"

var (
	// ErrInvalidInput is returned for non-finite or out-of-range coordinates
	// and non-positive radii.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataLoad is returned when the dataset file is missing or malformed.
	ErrDataLoad = errors.New("dataset load failed")
	// ErrDataUnavailable is returned by queries against a dataset that did
	// not load.
	ErrDataUnavailable = errors.New("dataset unavailable")
)
