package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	StatusActive UserStatus = "active"
	StatusBanned UserStatus = "banned"
)

// User stores a gallery owner and their public settings
type User struct {
	ID                uint                `gorm:"primarykey"`
	DisplayName       string              `gorm:"size:64;not null;default:''"`
	Bio               string              `gorm:"size:1024;not null;default:''"`
	Picture           string              `gorm:"size:512;not null;default:''"`
	PublicSlug        string              `gorm:"uniqueIndex;size:32;not null"`
	CollectionPrivate bool                `gorm:"default:false;not null"`
	Role              UserRole            `gorm:"size:16;not null;default:user"`
	Status            UserStatus          `gorm:"size:16;not null;default:active;index"`
	Connections       []DiscogsConnection `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == 0 {
		u.ID = GenerateID()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsBanned() bool {
	return u.Status == StatusBanned
}

// PrimaryConnection returns the connection flagged as primary, falling back to
// the first linked connection.
func (u *User) PrimaryConnection() *DiscogsConnection {
	for i := range u.Connections {
		if u.Connections[i].IsPrimary {
			return &u.Connections[i]
		}
	}
	if len(u.Connections) > 0 {
		return &u.Connections[0]
	}
	return nil
}

// PublicName resolves the name shown on the public gallery:
// display name, then primary connection username, then first connection username.
func (u *User) PublicName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	for _, conn := range u.Connections {
		if conn.IsPrimary && conn.Username != "" {
			return conn.Username
		}
	}
	for _, conn := range u.Connections {
		if conn.Username != "" {
			return conn.Username
		}
	}
	return ""
}
