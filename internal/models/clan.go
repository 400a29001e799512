package models

import (
	"time"
)

// Clan represents a named, tagged group of users with exactly one owner
type Clan struct {
	ID          int        `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Tag         string     `json:"tag" db:"tag"`
	Description *string    `json:"description,omitempty" db:"description"`
	OwnerID     int        `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// User is the slice of the user record this service reads and writes.
// ClanPriv is only meaningful while ClanID != 0.
type User struct {
	ID       int       `json:"id" db:"id"`
	Username string    `json:"username" db:"username"`
	ClanID   int       `json:"clan_id" db:"clan_id"`
	ClanPriv Privilege `json:"clan_priv" db:"clan_priv"`
}

// InClan reports whether the user currently belongs to any clan
func (u *User) InClan() bool {
	return u.ClanID != 0
}

// ClanFileType identifies an uploaded clan asset
type ClanFileType int

const (
	ClanFileAvatar ClanFileType = iota + 1
	ClanFileBanner
)

func (t ClanFileType) String() string {
	switch t {
	case ClanFileAvatar:
		return "avatar"
	case ClanFileBanner:
		return "banner"
	default:
		return "unknown"
	}
}

// ClanFile records where a clan asset was stored
type ClanFile struct {
	ID        int          `json:"id" db:"id"`
	ClanID    int          `json:"clan_id" db:"clan_id"`
	Path      string       `json:"path" db:"path"`
	Type      ClanFileType `json:"type" db:"type"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
