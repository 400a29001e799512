package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JoinRequestStatus is the lifecycle state of a join request.
// Pending transitions exactly once to one of the terminal states.
type JoinRequestStatus int

const (
	JoinRequestPending JoinRequestStatus = iota
	JoinRequestApproved
	JoinRequestDenied
	JoinRequestRevoked
)

func (s JoinRequestStatus) String() string {
	switch s {
	case JoinRequestPending:
		return "Pending"
	case JoinRequestApproved:
		return "Approved"
	case JoinRequestDenied:
		return "Denied"
	case JoinRequestRevoked:
		return "Revoked"
	default:
		return fmt.Sprintf("JoinRequestStatus(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed
func (s JoinRequestStatus) Terminal() bool {
	return s == JoinRequestApproved || s == JoinRequestDenied || s == JoinRequestRevoked
}

// ParseJoinRequestStatus accepts a status name (any case) or its numeric value
func ParseJoinRequestStatus(raw string) (JoinRequestStatus, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		s := JoinRequestStatus(n)
		if s < JoinRequestPending || s > JoinRequestRevoked {
			return JoinRequestPending, fmt.Errorf("invalid join request status %q", raw)
		}
		return s, nil
	}

	for s := JoinRequestPending; s <= JoinRequestRevoked; s++ {
		if strings.EqualFold(raw, s.String()) {
			return s, nil
		}
	}
	return JoinRequestPending, fmt.Errorf("invalid join request status %q", raw)
}

// ClanJoinRequest tracks an applicant's request to enter a clan
type ClanJoinRequest struct {
	ID          int               `json:"id" db:"id"`
	ClanID      int               `json:"clan_id" db:"clan_id"`
	UserID      int               `json:"user_id" db:"user_id"`
	Status      JoinRequestStatus `json:"status" db:"status"`
	RequestedBy int               `json:"requested_by" db:"requested_by"`
	ActionedBy  *int              `json:"actioned_by,omitempty" db:"actioned_by"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty" db:"updated_at"`
}

// IsPending reports whether the request can still be actioned
func (r *ClanJoinRequest) IsPending() bool {
	return r.Status == JoinRequestPending
}
