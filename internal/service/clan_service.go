package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

// Player facing failure reasons
const (
	msgUserAlreadyInClan  = "User already in a clan"
	msgOwnerNotFound      = "Owner user not found"
	msgTagTaken           = "Tag already taken"
	msgClanNotFound       = "Clan not found"
	msgNotInClan          = "Not in a clan"
	msgNotOwner           = "You are not an owner of any clan"
	msgTargetNotMember    = "Target user is not a member of your clan"
	msgOwnerHighest       = "Owner already has the highest privilege"
	msgOwnerNoDemote      = "Owner cannot be demoted"
	msgAlreadyOwner       = "You already own this clan"
	msgNothingToUpdate    = "Nothing to update"
	msgNotOwnerOfThisClan = "You are not the owner of this clan"
	msgUploadsDisabled    = "Clan uploads are not available"
)

// ClanService runs the clan lifecycle. Every operation checks its
// preconditions in order and stops at the first failure; multi-row writes
// run in one transaction.
type ClanService struct {
	deps        *ServiceDependencies
	leaderboard *LeaderboardService
	logger      *zap.Logger
}

// NewClanService creates the lifecycle service
func NewClanService(deps *ServiceDependencies, leaderboard *LeaderboardService) *ClanService {
	deps.applyDefaults()
	return &ClanService{
		deps:        deps,
		leaderboard: leaderboard,
		logger:      deps.Logger.With(zap.String("component", "clan_service")),
	}
}

// CreateClan validates the input and creates a clan owned by ownerID.
// An owner whose membership columns drifted from the clan they own gets
// them repaired and receives that clan back.
func (s *ClanService) CreateClan(ctx context.Context, ownerID int, name, tag string, description *string) (clan *models.Clan, err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("create", err) }()

	in := models.NormalizeClanInput(name, tag, description)
	if err := models.ValidateClanInput(in); err != nil {
		return nil, internalerrors.Validation(err.Error())
	}

	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		inClan, err := s.deps.Users.IsInAnyClan(ctx, ownerID)
		if err != nil {
			return err
		}
		if inClan {
			return internalerrors.Conflict(msgUserAlreadyInClan)
		}

		owner, err := s.deps.Users.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return internalerrors.NotFound(msgOwnerNotFound)
		}

		owned, err := s.deps.Clans.GetByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if owned != nil {
			if owner.ClanID != owned.ID || owner.ClanPriv != models.PrivilegeOwner {
				if err := s.deps.Users.AttachToClan(ctx, ownerID, owned.ID, models.PrivilegeOwner); err != nil {
					return err
				}
				s.logger.Warn("Repaired owner membership",
					zap.Int("clan_id", owned.ID),
					zap.Int("owner_id", ownerID))
			}
			clan = owned
			return nil
		}

		taken, err := s.deps.Clans.GetByTag(ctx, in.Tag)
		if err != nil {
			return err
		}
		if taken != nil {
			return internalerrors.Conflict(msgTagTaken)
		}

		clan, err = s.deps.Clans.Create(ctx, &models.Clan{
			Name:        in.Name,
			Tag:         in.Tag,
			Description: in.Description,
			OwnerID:     ownerID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return clan, nil
}

// JoinClan attaches userID to clanID as a Member without approval
func (s *ClanService) JoinClan(ctx context.Context, userID, clanID int) (err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("join", err) }()

	return s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		inClan, err := s.deps.Users.IsInAnyClan(ctx, userID)
		if err != nil {
			return err
		}
		if inClan {
			return internalerrors.Conflict(msgUserAlreadyInClan)
		}

		clan, err := s.deps.Clans.GetByID(ctx, clanID)
		if err != nil {
			return err
		}
		if clan == nil {
			return internalerrors.NotFound(msgClanNotFound)
		}

		return s.deps.Users.AttachToClan(ctx, userID, clanID, models.PrivilegeMember)
	})
}

// LeaveClan detaches userID from their clan. Owners must transfer or disband first.
func (s *ClanService) LeaveClan(ctx context.Context, userID int) (err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("leave", err) }()

	inClan, err := s.deps.Users.IsInAnyClan(ctx, userID)
	if err != nil {
		return err
	}
	if !inClan {
		return internalerrors.Validation(msgNotInClan)
	}

	owned, err := s.deps.Clans.GetByOwner(ctx, userID)
	if err != nil {
		return err
	}
	if owned != nil {
		return internalerrors.Unauthorized(fmt.Sprintf(
			"You are the owner of [%s] %s. Transfer ownership with !clan transfer <userId> or disband the clan with !clan disband.",
			owned.Tag, owned.Name))
	}

	return s.deps.Users.DetachFromClan(ctx, userID)
}

// ownedClanMember resolves the caller's clan and the target member in it
func (s *ClanService) ownedClanMember(ctx context.Context, ownerID, targetUserID int, lock bool) (*models.Clan, *models.User, error) {
	clan, err := s.deps.Clans.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if clan == nil {
		return nil, nil, internalerrors.Unauthorized(msgNotOwner)
	}

	if lock {
		clan, err = s.deps.Clans.GetByIDForUpdate(ctx, clan.ID)
		if err != nil {
			return nil, nil, err
		}
		if clan == nil || clan.OwnerID != ownerID {
			return nil, nil, internalerrors.Unauthorized(msgNotOwner)
		}
	}

	target, err := s.deps.Users.GetByID(ctx, targetUserID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil || target.ClanID != clan.ID {
		return nil, nil, internalerrors.NotFound(msgTargetNotMember)
	}
	return clan, target, nil
}

// TransferOwnership hands the caller's clan to targetUserID. The old owner
// becomes a Member; the three writes commit together.
func (s *ClanService) TransferOwnership(ctx context.Context, ownerID, targetUserID int) (err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("transfer", err) }()

	return s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		clan, _, err := s.ownedClanMember(ctx, ownerID, targetUserID, true)
		if err != nil {
			return err
		}
		if targetUserID == ownerID {
			return internalerrors.Validation(msgAlreadyOwner)
		}

		if err := s.deps.Users.SetPrivilege(ctx, ownerID, models.PrivilegeMember); err != nil {
			return err
		}
		if err := s.deps.Users.SetPrivilege(ctx, targetUserID, models.PrivilegeOwner); err != nil {
			return err
		}
		if err := s.deps.Clans.SetOwner(ctx, clan.ID, targetUserID); err != nil {
			return err
		}

		s.logger.Info("Clan ownership transferred",
			zap.Int("clan_id", clan.ID),
			zap.Int("from_user_id", ownerID),
			zap.Int("to_user_id", targetUserID))
		return nil
	})
}

// DisbandClan detaches every member of the caller's clan and deletes it
func (s *ClanService) DisbandClan(ctx context.Context, ownerID int) (err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("disband", err) }()

	return s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		clan, err := s.deps.Clans.GetByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if clan == nil {
			return internalerrors.Unauthorized(msgNotOwner)
		}
		clan, err = s.deps.Clans.GetByIDForUpdate(ctx, clan.ID)
		if err != nil {
			return err
		}
		if clan == nil {
			return internalerrors.NotFound(msgClanNotFound)
		}

		detached, err := s.deps.Users.DetachAllFromClan(ctx, clan.ID)
		if err != nil {
			return err
		}
		if err := s.deps.Clans.Delete(ctx, clan.ID); err != nil {
			return err
		}

		s.logger.Info("Clan disbanded",
			zap.Int("clan_id", clan.ID),
			zap.String("tag", clan.Tag),
			zap.Int64("members_detached", detached))
		return nil
	})
}

// PromoteToOfficer raises a member of the caller's clan to Officer
func (s *ClanService) PromoteToOfficer(ctx context.Context, ownerID, targetUserID int) (err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("promote", err) }()
	return s.setMemberPrivilege(ctx, ownerID, targetUserID, models.PrivilegeOfficer, msgOwnerHighest)
}

// DemoteToMember lowers a member of the caller's clan to Member
func (s *ClanService) DemoteToMember(ctx context.Context, ownerID, targetUserID int) (err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("demote", err) }()
	return s.setMemberPrivilege(ctx, ownerID, targetUserID, models.PrivilegeMember, msgOwnerNoDemote)
}

func (s *ClanService) setMemberPrivilege(ctx context.Context, ownerID, targetUserID int, priv models.Privilege, ownerMsg string) error {
	return s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, _, err := s.ownedClanMember(ctx, ownerID, targetUserID, false)
		if err != nil {
			return err
		}
		if targetUserID == ownerID {
			return internalerrors.Validation(ownerMsg)
		}
		return s.deps.Users.SetPrivilege(ctx, targetUserID, priv)
	})
}

// EditClan renames and/or retags the caller's clan. Nil or unchanged
// fields are left alone; a call that changes nothing fails.
func (s *ClanService) EditClan(ctx context.Context, ownerID int, newName, newTag *string) (clan *models.Clan, err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("edit", err) }()

	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		owned, err := s.deps.Clans.GetByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if owned == nil {
			return internalerrors.Unauthorized(msgNotOwner)
		}

		name, tag := owned.Name, owned.Tag
		changed := false

		if newTag != nil {
			t := models.NormalizeTag(*newTag)
			if err := models.ValidateTag(t); err != nil {
				return internalerrors.Validation(err.Error())
			}
			if t != owned.Tag {
				other, err := s.deps.Clans.GetByTag(ctx, t)
				if err != nil {
					return err
				}
				if other != nil && other.ID != owned.ID {
					return internalerrors.Conflict(msgTagTaken)
				}
				tag = t
				changed = true
			}
		}

		if newName != nil {
			n := strings.TrimSpace(*newName)
			if err := models.ValidateName(n); err != nil {
				return internalerrors.Validation(err.Error())
			}
			if n != owned.Name {
				name = n
				changed = true
			}
		}

		if !changed {
			return internalerrors.Validation(msgNothingToUpdate)
		}

		if err := s.deps.Clans.UpdateDetails(ctx, owned.ID, name, tag); err != nil {
			return err
		}
		owned.Name, owned.Tag = name, tag
		clan = owned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clan, nil
}

// GetClan returns a clan by id
func (s *ClanService) GetClan(ctx context.Context, clanID int) (*models.Clan, error) {
	clan, err := s.deps.Clans.GetByID(ctx, clanID)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return nil, internalerrors.NotFound(msgClanNotFound)
	}
	return clan, nil
}

// GetClanByTag returns a clan by tag, ignoring case
func (s *ClanService) GetClanByTag(ctx context.Context, tag string) (*models.Clan, error) {
	clan, err := s.deps.Clans.GetByTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return nil, internalerrors.NotFound(msgClanNotFound)
	}
	return clan, nil
}

// ListClans returns one 0-indexed page of clans and the total count
func (s *ClanService) ListClans(ctx context.Context, page, pageSize int) (*models.ClanListResponse, error) {
	if page < 0 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, internalerrors.Validation(msgInvalidPagination)
	}

	clans, err := s.deps.Clans.List(ctx, page*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.deps.Clans.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &models.ClanListResponse{
		Clans:    clans,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetClanDetails assembles the clan info view for one game mode: members
// (owner first, then by privilege), ranks for every metric, aggregates,
// grade totals and asset paths.
func (s *ClanService) GetClanDetails(ctx context.Context, clanID int, mode models.GameMode) (*models.ClanDetailsResponse, error) {
	clan, err := s.GetClan(ctx, clanID)
	if err != nil {
		return nil, err
	}

	members, err := s.deps.Users.ListByClan(ctx, clan.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load clan members")
	}
	sortMembers(members, clan.OwnerID)

	details := &models.ClanDetailsResponse{
		ID:          clan.ID,
		Name:        clan.Name,
		Tag:         clan.Tag,
		Description: clan.Description,
		OwnerID:     clan.OwnerID,
		CreatedAt:   clan.CreatedAt,
		MemberCount: len(members),
		Members:     make([]models.ClanMemberResponse, 0, len(members)),
		GameMode:    mode,
	}
	for _, m := range members {
		resp := models.ClanMemberResponse{ID: m.ID, Username: m.Username, Rank: m.ClanPriv.String()}
		details.Members = append(details.Members, resp)
		if m.ID == clan.OwnerID {
			owner := resp
			details.Owner = &owner
		}
	}

	ranks, err := s.leaderboard.Ranks(ctx, mode, clan.ID)
	if err != nil {
		return nil, err
	}
	details.Ranks = *ranks

	stats, err := s.leaderboard.StatsOf(ctx, mode, clan.ID)
	if err != nil {
		return nil, err
	}
	details.Stats = *stats

	grades, err := s.leaderboard.GradesOf(ctx, mode, clan.ID)
	if err != nil {
		return nil, err
	}
	details.Grades = *grades

	if s.deps.Files != nil {
		if details.AvatarPath, err = s.filePath(ctx, clan.ID, models.ClanFileAvatar); err != nil {
			return nil, err
		}
		if details.BannerPath, err = s.filePath(ctx, clan.ID, models.ClanFileBanner); err != nil {
			return nil, err
		}
	}

	return details, nil
}

func (s *ClanService) filePath(ctx context.Context, clanID int, fileType models.ClanFileType) (*string, error) {
	file, err := s.deps.Files.Get(ctx, clanID, fileType)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load clan %s", fileType)
	}
	if file == nil {
		return nil, nil
	}
	return &file.Path, nil
}

// SetClanAsset uploads an avatar or banner for clanID, which the caller must own
func (s *ClanService) SetClanAsset(ctx context.Context, userID, clanID int, fileType models.ClanFileType, filename string, data []byte) (path string, err error) {
	defer func() { s.deps.Metrics.RecordClanOperation("upload_"+fileType.String(), err) }()

	owned, err := s.deps.Clans.GetByOwner(ctx, userID)
	if err != nil {
		return "", err
	}
	if owned == nil || owned.ID != clanID {
		return "", internalerrors.Unauthorized(msgNotOwnerOfThisClan)
	}
	if s.deps.Assets == nil || s.deps.Files == nil {
		return "", internalerrors.Unavailable(msgUploadsDisabled)
	}

	path, err = s.deps.Assets.SaveClanAsset(ctx, clanID, fileType, filename, data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to store clan %s", fileType)
	}

	if _, err := s.deps.Files.Upsert(ctx, clanID, fileType, path); err != nil {
		return "", err
	}

	s.logger.Info("Clan asset updated",
		zap.Int("clan_id", clanID),
		zap.String("type", fileType.String()),
		zap.String("path", path))
	return path, nil
}

// sortMembers puts the owner first, then higher privileges, then lower ids
func sortMembers(members []*models.User, ownerID int) {
	slices.SortStableFunc(members, func(a, b *models.User) int {
		if (a.ID == ownerID) != (b.ID == ownerID) {
			if a.ID == ownerID {
				return -1
			}
			return 1
		}
		if a.ClanPriv != b.ClanPriv {
			return cmp.Compare(b.ClanPriv, a.ClanPriv)
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
