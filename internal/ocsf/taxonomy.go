package ocsf

const SchemaVersion = "1.3.0"

const unknownName = "Unknown"

const (
	CategoryIAM         = 3
	CategoryApplication = 6
)

const (
	ClassAccountChange    = 3001
	ClassAuthentication   = 3002
	ClassEntityManagement = 3004
	ClassUserAccess       = 3005
	ClassAPIActivity      = 6003
)

const (
	SeverityUnknown       = 0
	SeverityInformational = 1
	SeverityLow           = 2
	SeverityMedium        = 3
	SeverityHigh          = 4
	SeverityCritical      = 5
	SeverityFatal         = 6
	SeverityOther         = 99
)

const (
	StatusUnknown = 0
	StatusSuccess = 1
	StatusFailure = 2
	StatusOther   = 99
)

const ActivityOther = 99

// Authentication activities
const (
	AuthLogon                = 1
	AuthLogoff               = 2
	AuthTicket               = 3
	AuthServiceTicketRequest = 4
	AuthServiceTicketRenew   = 5
	AuthPreauth              = 6
)

// Account Change activities
const (
	AccountCreate           = 1
	AccountEnable           = 2
	AccountPasswordChange   = 3
	AccountPasswordReset    = 4
	AccountDisable          = 5
	AccountDelete           = 6
	AccountAttachPolicy     = 7
	AccountDetachPolicy     = 8
	AccountLock             = 9
	AccountMFAFactorEnable  = 10
	AccountMFAFactorDisable = 11
	AccountUnlock           = 12
)

// User Access Management activities
const (
	UserAccessAssignPrivileges = 1
	UserAccessRevokePrivileges = 2
)

// Entity Management activities
const (
	EntityCreate     = 1
	EntityRead       = 2
	EntityUpdate     = 3
	EntityDelete     = 4
	EntityMove       = 5
	EntityEnroll     = 6
	EntityUnenroll   = 7
	EntityEnable     = 8
	EntityDisable    = 9
	EntityActivate   = 10
	EntityDeactivate = 11
	EntitySuspend    = 12
	EntityResume     = 13
)

// API Activity activities
const (
	APICreate = 1
	APIRead   = 2
	APIUpdate = 3
	APIDelete = 4
)

type classInfo struct {
	name        string
	categoryUID int
	activities  map[int]string
}

var categoryNames = map[int]string{
	CategoryIAM:         "Identity & Access Management",
	CategoryApplication: "Application Activity",
}

var classes = map[int]classInfo{
	ClassAuthentication: {
		name:        "Authentication",
		categoryUID: CategoryIAM,
		activities: map[int]string{
			0:                        unknownName,
			AuthLogon:                "Logon",
			AuthLogoff:               "Logoff",
			AuthTicket:               "Authentication Ticket",
			AuthServiceTicketRequest: "Service Ticket Request",
			AuthServiceTicketRenew:   "Service Ticket Renew",
			AuthPreauth:              "Preauth",
			ActivityOther:            "Other",
		},
	},
	ClassAccountChange: {
		name:        "Account Change",
		categoryUID: CategoryIAM,
		activities: map[int]string{
			0:                       unknownName,
			AccountCreate:           "Create",
			AccountEnable:           "Enable",
			AccountPasswordChange:   "Password Change",
			AccountPasswordReset:    "Password Reset",
			AccountDisable:          "Disable",
			AccountDelete:           "Delete",
			AccountAttachPolicy:     "Attach Policy",
			AccountDetachPolicy:     "Detach Policy",
			AccountLock:             "Lock",
			AccountMFAFactorEnable:  "MFA Factor Enable",
			AccountMFAFactorDisable: "MFA Factor Disable",
			AccountUnlock:           "Unlock",
			ActivityOther:           "Other",
		},
	},
	ClassUserAccess: {
		name:        "User Access Management",
		categoryUID: CategoryIAM,
		activities: map[int]string{
			0:                          unknownName,
			UserAccessAssignPrivileges: "Assign Privileges",
			UserAccessRevokePrivileges: "Revoke Privileges",
			ActivityOther:              "Other",
		},
	},
	ClassEntityManagement: {
		name:        "Entity Management",
		categoryUID: CategoryIAM,
		activities: map[int]string{
			0:                unknownName,
			EntityCreate:     "Create",
			EntityRead:       "Read",
			EntityUpdate:     "Update",
			EntityDelete:     "Delete",
			EntityMove:       "Move",
			EntityEnroll:     "Enroll",
			EntityUnenroll:   "Unenroll",
			EntityEnable:     "Enable",
			EntityDisable:    "Disable",
			EntityActivate:   "Activate",
			EntityDeactivate: "Deactivate",
			EntitySuspend:    "Suspend",
			EntityResume:     "Resume",
			ActivityOther:    "Other",
		},
	},
	ClassAPIActivity: {
		name:        "API Activity",
		categoryUID: CategoryApplication,
		activities: map[int]string{
			0:             unknownName,
			APICreate:     "Create",
			APIRead:       "Read",
			APIUpdate:     "Update",
			APIDelete:     "Delete",
			ActivityOther: "Other",
		},
	},
}

var severityNames = map[int]string{
	SeverityUnknown:       unknownName,
	SeverityInformational: "Informational",
	SeverityLow:           "Low",
	SeverityMedium:        "Medium",
	SeverityHigh:          "High",
	SeverityCritical:      "Critical",
	SeverityFatal:         "Fatal",
	SeverityOther:         "Other",
}

var statusNames = map[int]string{
	StatusUnknown: unknownName,
	StatusSuccess: "Success",
	StatusFailure: "Failure",
	StatusOther:   "Other",
}

func lookup(table map[int]string, id int) string {
	if name, ok := table[id]; ok {
		return name
	}
	return unknownName
}

// ClassName returns the caption of a class uid, "Unknown" when unmapped.
func ClassName(classUID int) string {
	if info, ok := classes[classUID]; ok {
		return info.name
	}
	return unknownName
}

// CategoryName returns the caption of a category uid, "Unknown" when unmapped.
func CategoryName(categoryUID int) string {
	return lookup(categoryNames, categoryUID)
}

// ActivityName returns the caption of an activity within a class, "Unknown" when unmapped.
func ActivityName(classUID, activityID int) string {
	info, ok := classes[classUID]
	if !ok {
		return unknownName
	}
	return lookup(info.activities, activityID)
}

func SeverityName(severityID int) string {
	return lookup(severityNames, severityID)
}

func StatusName(statusID int) string {
	return lookup(statusNames, statusID)
}

// TypeUID derives the event type uid of a class activity.
func TypeUID(classUID, activityID int) int {
	return classUID*100 + activityID
}

// Activities lists the mapped activity ids of a class.
func Activities(classUID int) []int {
	info, ok := classes[classUID]
	if !ok {
		return nil
	}
	ids := make([]int, 0, len(info.activities))
	for id := range info.activities {
		ids = append(ids, id)
	}
	return ids
}

// Classes lists every class uid known to the builder.
func Classes() []int {
	return []int{ClassAccountChange, ClassAuthentication, ClassEntityManagement, ClassUserAccess, ClassAPIActivity}
}
