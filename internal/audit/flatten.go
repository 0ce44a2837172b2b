package audit

import (
	"encoding/json"

	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/model"
	"gorm.io/datatypes"
)

// unmapped carries the class specific fields that have no dedicated column.
type unmapped struct {
	TypeName     string    `json:"type_name,omitempty"`
	Privileges   []string  `json:"privileges,omitempty"`
	AuthProtocol string    `json:"auth_protocol,omitempty"`
	IsMFA        bool      `json:"is_mfa,omitempty"`
	API          *ocsf.API `json:"api,omitempty"`
	ResourceData any       `json:"resource_data,omitempty"`
}

func marshalJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func flatten(ev *ocsf.Event) (*model.AuditEvent, error) {
	row := &model.AuditEvent{
		EventUID:     ev.Metadata.UID,
		Time:         ev.Time.UTC(),
		ClassUID:     ev.ClassUID,
		ClassName:    ev.ClassName,
		CategoryUID:  ev.CategoryUID,
		CategoryName: ev.CategoryName,
		ActivityID:   ev.ActivityID,
		ActivityName: ev.ActivityName,
		TypeUID:      ev.TypeUID,
		SeverityID:   ev.SeverityID,
		StatusID:     ev.StatusID,
		StatusCode:   ev.StatusCode,
		StatusDetail: ev.StatusDetail,
		Message:      ev.Message,
	}
	if ev.Actor != nil {
		row.ActorUserID = ev.Actor.User.UID
		row.ActorName = ev.Actor.User.Name
		row.ActorEmail = ev.Actor.User.Email
		row.ActorRole = ev.Actor.User.Role
	}
	if ev.SrcEndpoint != nil {
		row.SrcIP = ev.SrcEndpoint.IP
		row.SrcUserAgent = ev.SrcEndpoint.UserAgent
	}
	if ev.User != nil {
		row.TargetUserID = ev.User.UID
		row.TargetUserName = ev.User.Name
		row.TargetUserEmail = ev.User.Email
	}

	extra := unmapped{
		TypeName:     ev.TypeName,
		Privileges:   ev.Privileges,
		AuthProtocol: ev.AuthProtocol,
		IsMFA:        ev.IsMFA,
		API:          ev.API,
	}
	if ev.Resource != nil {
		row.ResourceType = ev.Resource.Type
		row.ResourceID = ev.Resource.UID
		row.ResourceName = ev.Resource.Name
		extra.ResourceData = ev.Resource.Data
	}

	var err error
	if row.Metadata, err = marshalJSON(ev.Metadata); err != nil {
		return nil, err
	}
	if row.Unmapped, err = marshalJSON(extra); err != nil {
		return nil, err
	}
	if row.RawData, err = marshalJSON(ev.RawData); err != nil {
		return nil, err
	}
	return row, nil
}
