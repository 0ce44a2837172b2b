package ocsf

import "time"

// Event is an OCSF normalized audit record. Events are built by the New*
// functions of this package and are not modified afterwards.
type Event struct {
	ClassUID     int       `json:"class_uid"`
	ClassName    string    `json:"class_name"`
	CategoryUID  int       `json:"category_uid"`
	CategoryName string    `json:"category_name"`
	ActivityID   int       `json:"activity_id"`
	ActivityName string    `json:"activity_name"`
	TypeUID      int       `json:"type_uid"`
	TypeName     string    `json:"type_name"`
	SeverityID   int       `json:"severity_id"`
	Severity     string    `json:"severity"`
	StatusID     int       `json:"status_id"`
	Status       string    `json:"status"`
	StatusCode   string    `json:"status_code,omitempty"`
	StatusDetail string    `json:"status_detail,omitempty"`
	Time         time.Time `json:"time"`
	Message      string    `json:"message"`
	Actor        *Actor    `json:"actor,omitempty"`
	SrcEndpoint  *Endpoint `json:"src_endpoint,omitempty"`
	User         *User     `json:"user,omitempty"`     // target user of IAM classes
	Resource     *Resource `json:"resource,omitempty"` // target object of entity and api classes
	Privileges   []string  `json:"privileges,omitempty"`
	AuthProtocol string    `json:"auth_protocol,omitempty"`
	IsMFA        bool      `json:"is_mfa,omitempty"`
	API          *API      `json:"api,omitempty"`
	Metadata     Metadata  `json:"metadata"`
	RawData      any       `json:"raw_data,omitempty"`
}

type User struct {
	UID   uint   `json:"uid,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email_addr,omitempty"`
	Role  string `json:"type,omitempty"`
}

type Actor struct {
	User User `json:"user"`
}

type Endpoint struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

type Resource struct {
	Type string `json:"type"`
	UID  string `json:"uid,omitempty"`
	Name string `json:"name,omitempty"`
	Data any    `json:"data,omitempty"`
}

type API struct {
	Operation string `json:"operation"`
	Service   string `json:"service,omitempty"`
	RequestID string `json:"request_uid,omitempty"`
}

type Product struct {
	Name       string `json:"name"`
	VendorName string `json:"vendor_name"`
	Version    string `json:"version"`
}

type Metadata struct {
	Product    Product   `json:"product"`
	Version    string    `json:"version"`
	UID        string    `json:"uid"`
	LoggedTime time.Time `json:"logged_time"`
}
