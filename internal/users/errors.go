package users

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrConnectionNotFound = errors.New("discogs connection not found")
	ErrConnectionLinked   = errors.New("discogs account is linked to another user")
	ErrSlugTaken          = errors.New("public slug is already taken")
	ErrInvalidSlug        = errors.New("public slug must be 3-32 lowercase letters, digits or dashes")
	ErrDisplayNameTooLong = errors.New("display name is too long")
	ErrBioTooLong         = errors.New("bio is too long")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
)
