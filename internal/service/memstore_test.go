package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

// memDB is a map-backed membership store used by the workflow scenario tests
type memDB struct {
	mu       sync.Mutex
	clans    map[int]*models.Clan
	users    map[int]*models.User
	requests map[int]*models.ClanJoinRequest
	stats    map[int]*models.UserStats
	grades   map[int]*models.UserGrades
	nextID   int
}

func newMemDB() *memDB {
	return &memDB{
		clans:    map[int]*models.Clan{},
		users:    map[int]*models.User{},
		requests: map[int]*models.ClanJoinRequest{},
		stats:    map[int]*models.UserStats{},
		grades:   map[int]*models.UserGrades{},
		nextID:   100,
	}
}

func (db *memDB) addUser(id int, name string) {
	db.users[id] = &models.User{ID: id, Username: name}
}

func (db *memDB) addClan(id int, name, tag string, ownerID int, members ...int) {
	db.clans[id] = &models.Clan{ID: id, Name: name, Tag: tag, OwnerID: ownerID, CreatedAt: time.Now()}
	db.users[ownerID].ClanID = id
	db.users[ownerID].ClanPriv = models.PrivilegeOwner
	for _, m := range members {
		db.users[m].ClanID = id
		db.users[m].ClanPriv = models.PrivilegeMember
	}
}

func (db *memDB) deps() *ServiceDependencies {
	return &ServiceDependencies{
		Clans:        memClans{db},
		Users:        memUsers{db},
		JoinRequests: memRequests{db},
		Tx:           &passthroughTx{},
	}
}

type memClans struct{ db *memDB }

func copyClan(c *models.Clan) *models.Clan {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (s memClans) GetByID(_ context.Context, id int) (*models.Clan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return copyClan(s.db.clans[id]), nil
}

func (s memClans) GetByTag(_ context.Context, tag string) (*models.Clan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.clans {
		if strings.EqualFold(c.Tag, strings.TrimSpace(tag)) {
			return copyClan(c), nil
		}
	}
	return nil, nil
}

func (s memClans) GetByOwner(_ context.Context, ownerID int) (*models.Clan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.clans {
		if c.OwnerID == ownerID {
			return copyClan(c), nil
		}
	}
	return nil, nil
}

func (s memClans) GetByIDForUpdate(ctx context.Context, id int) (*models.Clan, error) {
	return s.GetByID(ctx, id)
}

func (s memClans) Create(_ context.Context, clan *models.Clan) (*models.Clan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextID++
	c := copyClan(clan)
	c.ID = s.db.nextID
	c.CreatedAt = time.Now()
	s.db.clans[c.ID] = c
	if u := s.db.users[c.OwnerID]; u != nil {
		u.ClanID, u.ClanPriv = c.ID, models.PrivilegeOwner
	}
	return copyClan(c), nil
}

func (s memClans) UpdateDetails(_ context.Context, id int, name, tag string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.clans[id]
	if !ok {
		return internalerrors.NotFound("Clan not found")
	}
	c.Name, c.Tag = name, tag
	return nil
}

func (s memClans) SetOwner(_ context.Context, id, ownerID int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.clans[id]
	if !ok {
		return internalerrors.NotFound("Clan not found")
	}
	c.OwnerID = ownerID
	return nil
}

func (s memClans) Delete(_ context.Context, id int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.clans[id]; !ok {
		return internalerrors.NotFound("Clan not found")
	}
	delete(s.db.clans, id)
	for rid, r := range s.db.requests {
		if r.ClanID == id {
			delete(s.db.requests, rid)
		}
	}
	return nil
}

func (s memClans) sorted() []*models.Clan {
	out := make([]*models.Clan, 0, len(s.db.clans))
	for _, c := range s.db.clans {
		out = append(out, copyClan(c))
	}
	slices.SortFunc(out, func(a, b *models.Clan) int { return a.ID - b.ID })
	return out
}

func (s memClans) List(_ context.Context, offset, limit int) ([]*models.Clan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	all := s.sorted()
	if offset >= len(all) {
		return []*models.Clan{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (s memClans) Count(_ context.Context) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.clans), nil
}

func (s memClans) ListAll(_ context.Context) ([]*models.Clan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(), nil
}

type memUsers struct{ db *memDB }

func (s memUsers) GetByID(_ context.Context, id int) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s memUsers) IsInAnyClan(_ context.Context, userID int) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	return ok && u.InClan(), nil
}

func (s memUsers) AttachToClan(_ context.Context, userID, clanID int, priv models.Privilege) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok {
		return internalerrors.NotFound("User not found")
	}
	if u.InClan() {
		return internalerrors.Conflict(msgUserAlreadyInClan)
	}
	u.ClanID, u.ClanPriv = clanID, priv
	return nil
}

func (s memUsers) DetachFromClan(_ context.Context, userID int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok {
		return internalerrors.NotFound("User not found")
	}
	u.ClanID, u.ClanPriv = 0, models.PrivilegeNone
	return nil
}

func (s memUsers) DetachAllFromClan(_ context.Context, clanID int) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, u := range s.db.users {
		if u.ClanID == clanID {
			u.ClanID, u.ClanPriv = 0, models.PrivilegeNone
			n++
		}
	}
	return n, nil
}

func (s memUsers) SetPrivilege(_ context.Context, userID int, priv models.Privilege) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok || !u.InClan() {
		return internalerrors.NotFound("User not found")
	}
	u.ClanPriv = priv
	return nil
}

func (s memUsers) ListByClan(_ context.Context, clanID int) ([]*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []*models.User{}
	for _, u := range s.db.users {
		if u.ClanID == clanID {
			cp := *u
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int { return a.ID - b.ID })
	return out, nil
}

func (s memUsers) CountByClan(ctx context.Context, clanID int) (int, error) {
	members, err := s.ListByClan(ctx, clanID)
	return len(members), err
}

type memRequests struct{ db *memDB }

func (s memRequests) Create(_ context.Context, req *models.ClanJoinRequest) (*models.ClanJoinRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.requests {
		if r.ClanID == req.ClanID && r.UserID == req.UserID && r.IsPending() {
			return nil, internalerrors.Conflict("Join request already pending")
		}
	}
	s.db.nextID++
	cp := *req
	cp.ID = s.db.nextID
	cp.CreatedAt = time.Now()
	s.db.requests[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s memRequests) GetByID(_ context.Context, id int) (*models.ClanJoinRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s memRequests) GetPending(_ context.Context, clanID, userID int) (*models.ClanJoinRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.requests {
		if r.ClanID == clanID && r.UserID == userID && r.IsPending() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s memRequests) HasPending(ctx context.Context, clanID, userID int) (bool, error) {
	r, err := s.GetPending(ctx, clanID, userID)
	return r != nil, err
}

func (s memRequests) UpdateStatus(_ context.Context, id int, status models.JoinRequestStatus, actionedBy int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok || !r.IsPending() {
		return internalerrors.NotFound("Join request not found")
	}
	r.Status = status
	r.ActionedBy = &actionedBy
	return nil
}

func (s memRequests) ListByClan(_ context.Context, clanID int, status *models.JoinRequestStatus, offset, limit int) ([]*models.ClanJoinRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []*models.ClanJoinRequest{}
	for _, r := range s.db.requests {
		if r.ClanID == clanID && (status == nil || r.Status == *status) {
			cp := *r
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.ClanJoinRequest) int { return b.ID - a.ID })
	if offset >= len(out) {
		return []*models.ClanJoinRequest{}, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (s memRequests) CountByClan(ctx context.Context, clanID int, status *models.JoinRequestStatus) (int, error) {
	all, err := s.ListByClan(ctx, clanID, status, 0, 1<<30)
	return len(all), err
}

func (s memRequests) CancelPendingForUser(_ context.Context, userID, actionedBy int) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, r := range s.db.requests {
		if r.UserID == userID && r.IsPending() {
			r.Status = models.JoinRequestRevoked
			r.ActionedBy = &actionedBy
			n++
		}
	}
	return n, nil
}

type memStats struct{ db *memDB }

func (s memStats) GetUserStats(_ context.Context, userID int, _ models.GameMode) (*models.UserStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st, ok := s.db.stats[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s memStats) GetUserGrades(_ context.Context, userID int, _ models.GameMode) (*models.UserGrades, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	g, ok := s.db.grades[userID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}
