package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditEvent is the flattened storage row of an OCSF event
type AuditEvent struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement"      json:"id"`
	EventUID        string         `gorm:"size:36;not null;uniqueIndex"  json:"eventUid"` // metadata uid of the event
	Time            time.Time      `gorm:"not null;index"                json:"time"`
	ClassUID        int            `gorm:"not null;index"                json:"classUid"`
	ClassName       string         `gorm:"size:64;not null"              json:"className"`
	CategoryUID     int            `gorm:"not null;index"                json:"categoryUid"`
	CategoryName    string         `gorm:"size:64;not null"              json:"categoryName"`
	ActivityID      int            `gorm:"not null;index"                json:"activityId"`
	ActivityName    string         `gorm:"size:64;not null"              json:"activityName"`
	TypeUID         int            `gorm:"not null;index"                json:"typeUid"`
	SeverityID      int            `gorm:"not null;index"                json:"severityId"`
	StatusID        int            `gorm:"not null;index"                json:"statusId"`
	StatusCode      string         `gorm:"size:64"                       json:"statusCode,omitempty"`
	StatusDetail    string         `gorm:"size:512"                      json:"statusDetail,omitempty"`
	Message         string         `gorm:"size:1024;not null"            json:"message"`
	ActorUserID     uint           `gorm:"index"                         json:"actorUserId,omitempty"`
	ActorName       string         `gorm:"size:64"                       json:"actorName,omitempty"`
	ActorEmail      string         `gorm:"size:256"                      json:"actorEmail,omitempty"`
	ActorRole       string         `gorm:"size:16"                       json:"actorRole,omitempty"`
	SrcIP           string         `gorm:"size:45"                       json:"srcIp,omitempty"` // IPv4/IPv6
	SrcUserAgent    string         `gorm:"size:512"                      json:"srcUserAgent,omitempty"`
	TargetUserID    uint           `gorm:"index"                         json:"targetUserId,omitempty"`
	TargetUserName  string         `gorm:"size:64"                       json:"targetUserName,omitempty"`
	TargetUserEmail string         `gorm:"size:256"                      json:"targetUserEmail,omitempty"`
	ResourceType    string         `gorm:"size:64;index"                 json:"resourceType,omitempty"`
	ResourceID      string         `gorm:"size:128;index"                json:"resourceId,omitempty"`
	ResourceName    string         `gorm:"size:256"                      json:"resourceName,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`
	Unmapped        datatypes.JSON `json:"unmapped,omitempty"` // class specific fields without a column
	RawData         datatypes.JSON `json:"rawData,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"                json:"createdAt"`
}

func (AuditEvent) TableName() string {
	return "audit_event"
}
