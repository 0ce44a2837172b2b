package collection

import "errors"

var (
	ErrUpstream       = errors.New("collection source failure")
	ErrInvalidRelease = errors.New("invalid release id")
)
