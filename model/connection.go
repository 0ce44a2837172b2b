package model

import "time"

// DiscogsConnection is one linked Discogs account of a user
type DiscogsConnection struct {
	ID            uint   `gorm:"primarykey;autoIncrement"`
	UserID        uint   `gorm:"not null;index"`
	DiscogsUserID uint64 `gorm:"not null;uniqueIndex"`
	Username      string `gorm:"size:64;not null"`
	AvatarURL     string `gorm:"size:512;not null;default:''"`
	IsPrimary     bool   `gorm:"default:false;not null"`
	AccessToken   string `gorm:"size:512;not null"` // sealed with the master key
	AccessSecret  string `gorm:"size:512;not null"` // sealed with the master key
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExcludedAlbum hides a release from the owner's public gallery
type ExcludedAlbum struct {
	ID        uint   `gorm:"primarykey;autoIncrement"`
	UserID    uint   `gorm:"not null;index:idx_excluded_album,unique"`
	ReleaseID uint64 `gorm:"not null;index:idx_excluded_album,unique"`
	CreatedAt time.Time
}
