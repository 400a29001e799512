package models

import "fmt"

// Privilege is a member's role inside a clan. Levels are ordered by declaration.
type Privilege int

const (
	PrivilegeNone Privilege = iota
	PrivilegeMember
	PrivilegeOfficer
	PrivilegeOwner
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeNone:
		return "None"
	case PrivilegeMember:
		return "Member"
	case PrivilegeOfficer:
		return "Officer"
	case PrivilegeOwner:
		return "Owner"
	default:
		return fmt.Sprintf("Privilege(%d)", int(p))
	}
}

// Valid reports whether p is one of the declared levels
func (p Privilege) Valid() bool {
	return p >= PrivilegeNone && p <= PrivilegeOwner
}

// AtLeast reports whether p grants everything required grants
func (p Privilege) AtLeast(required Privilege) bool {
	return p >= required
}

// ParsePrivilege converts a stored value into a Privilege
func ParsePrivilege(v int) (Privilege, error) {
	p := Privilege(v)
	if !p.Valid() {
		return PrivilegeNone, fmt.Errorf("invalid clan privilege %d", v)
	}
	return p, nil
}
