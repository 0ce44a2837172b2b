package audit

import "errors"

var (
	ErrPersistence   = errors.New("audit store failure")
	ErrInvalidFilter = errors.New("invalid audit filter")
)
