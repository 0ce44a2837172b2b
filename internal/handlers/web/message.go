package web

const (
	MsgInvalidRequest        = "Invalid request. Please try again."
	MsgLoginRequired         = "Please sign in with Discogs first."
	MsgAdminRequired         = "This action requires an administrator."
	MsgCollectionNotFound    = "No collection found at this address."
	MsgCollectionPrivate     = "This collection is private."
	MsgTooManyRequests       = "Too many requests. Please try again shortly."
	MsgDiscogsUnavailable    = "Discogs is unavailable right now. Please try again later."
	MsgDiscogsLoginFailed    = "Discogs sign in failed. Please try again."
	MsgDiscogsAlreadyLinked  = "This Discogs account is linked to another user."
	MsgConnectionNotFound    = "Connection not found."
	MsgUserNotFound          = "User not found."
	MsgSlugTaken             = "That address is already taken."
	MsgInvalidSlug           = "Addresses are 3 to 32 lowercase letters, digits or dashes."
	MsgDisplayNameTooLong    = "Display name is too long."
	MsgBioTooLong            = "Bio is too long."
	MsgInvalidRole           = "Unknown role."
	MsgInvalidReleaseID      = "Invalid release id."
	MsgInvalidAuditFilter    = "Invalid audit filter."
	MsgCannotChangeOwnRecord = "Administrators cannot ban or demote themselves."
)
