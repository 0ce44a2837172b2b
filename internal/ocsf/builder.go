package ocsf

import (
	"reflect"
	"time"

	"github.com/davesrecords/davesrecords/params"
	"github.com/google/uuid"
)

var (
	now    = time.Now
	newUID = uuid.NewString
)

// Common holds the parameters shared by every builder.
type Common struct {
	ActivityID   int
	Message      string
	Actor        *Actor
	SrcEndpoint  *Endpoint
	SeverityID   *int // defaults to SeverityInformational
	StatusID     *int // defaults to StatusSuccess
	StatusCode   string
	StatusDetail string
	RawData      any // maps and slices are copied at build time, pointers and struct fields are shared
}

type AuthenticationParams struct {
	Common
	User         *User
	AuthProtocol string
	IsMFA        bool
}

type AccountChangeParams struct {
	Common
	User *User
}

type UserAccessParams struct {
	Common
	User       *User
	Privileges []string
}

type EntityManagementParams struct {
	Common
	Resource *Resource
}

type APIActivityParams struct {
	Common
	Resource *Resource
	API      *API
}

// Severity returns a severity id suitable for Common.SeverityID.
func Severity(id int) *int {
	return &id
}

// Status returns a status id suitable for Common.StatusID.
func Status(id int) *int {
	return &id
}

func newEvent(classUID int, p Common) *Event {
	severityID := SeverityInformational
	if p.SeverityID != nil {
		severityID = *p.SeverityID
	}
	statusID := StatusSuccess
	if p.StatusID != nil {
		statusID = *p.StatusID
	}

	categoryUID := 0
	if info, ok := classes[classUID]; ok {
		categoryUID = info.categoryUID
	}
	className := ClassName(classUID)
	activityName := ActivityName(classUID, p.ActivityID)

	ts := now()
	return &Event{
		ClassUID:     classUID,
		ClassName:    className,
		CategoryUID:  categoryUID,
		CategoryName: CategoryName(categoryUID),
		ActivityID:   p.ActivityID,
		ActivityName: activityName,
		TypeUID:      TypeUID(classUID, p.ActivityID),
		TypeName:     className + ": " + activityName,
		SeverityID:   severityID,
		Severity:     SeverityName(severityID),
		StatusID:     statusID,
		Status:       StatusName(statusID),
		StatusCode:   p.StatusCode,
		StatusDetail: p.StatusDetail,
		Time:         ts,
		Message:      p.Message,
		Actor:        copyActor(p.Actor),
		SrcEndpoint:  copyEndpoint(p.SrcEndpoint),
		RawData:      copyData(p.RawData),
		Metadata: Metadata{
			Product: Product{
				Name:       params.ProductName,
				VendorName: params.ProductVendor,
				Version:    params.Version,
			},
			Version:    SchemaVersion,
			UID:        newUID(),
			LoggedTime: ts,
		},
	}
}

func copyActor(a *Actor) *Actor {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func copyEndpoint(e *Endpoint) *Endpoint {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func copyResource(r *Resource) *Resource {
	if r == nil {
		return nil
	}
	c := *r
	c.Data = copyData(r.Data)
	return &c
}

// copyData returns v with every nested map and slice duplicated.
func copyData(v any) any {
	if v == nil {
		return nil
	}
	return copyValue(reflect.ValueOf(v)).Interface()
}

func copyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), copyValue(iter.Value()))
		}
		return c
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(copyValue(v.Index(i)))
		}
		return c
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		c := reflect.New(v.Type()).Elem()
		c.Set(copyValue(v.Elem()))
		return c
	default:
		return v
	}
}

// NewAuthentication builds an Authentication (3002) event.
func NewAuthentication(p AuthenticationParams) *Event {
	ev := newEvent(ClassAuthentication, p.Common)
	ev.User = copyUser(p.User)
	ev.AuthProtocol = p.AuthProtocol
	ev.IsMFA = p.IsMFA
	return ev
}

// NewAccountChange builds an Account Change (3001) event.
func NewAccountChange(p AccountChangeParams) *Event {
	ev := newEvent(ClassAccountChange, p.Common)
	ev.User = copyUser(p.User)
	return ev
}

// NewUserAccess builds a User Access Management (3005) event.
func NewUserAccess(p UserAccessParams) *Event {
	ev := newEvent(ClassUserAccess, p.Common)
	ev.User = copyUser(p.User)
	if len(p.Privileges) > 0 {
		ev.Privileges = append([]string(nil), p.Privileges...)
	}
	return ev
}

// NewEntityManagement builds an Entity Management (3004) event.
func NewEntityManagement(p EntityManagementParams) *Event {
	ev := newEvent(ClassEntityManagement, p.Common)
	ev.Resource = copyResource(p.Resource)
	return ev
}

// NewAPIActivity builds an API Activity (6003) event.
func NewAPIActivity(p APIActivityParams) *Event {
	ev := newEvent(ClassAPIActivity, p.Common)
	ev.Resource = copyResource(p.Resource)
	if p.API != nil {
		api := *p.API
		ev.API = &api
	}
	return ev
}
