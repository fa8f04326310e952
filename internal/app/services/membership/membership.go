// Package membership implements the group lifecycle: creating a group with
// its creator enrolled, joining by invite code under the capacity limit, and
// listing groups for a user.
package membership

import (
	"context"
	"errors"
	"math"

	groupstore "github.com/dalemusser/playform/internal/app/store/groups"
	membershipstore "github.com/dalemusser/playform/internal/app/store/memberships"
	"github.com/dalemusser/playform/internal/app/system/apperr"
	"github.com/dalemusser/playform/internal/app/system/inputval"
	"github.com/dalemusser/playform/internal/app/system/normalize"
	"github.com/dalemusser/playform/internal/app/system/timeouts"
	"github.com/dalemusser/playform/internal/app/system/txn"
	"github.com/dalemusser/playform/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxInviteCodeAttempts bounds retries when a generated code collides.
const MaxInviteCodeAttempts = 8

// DefaultMaxMembers is used by callers that let users omit the capacity.
const DefaultMaxMembers = 4

// GroupConfig is the caller-supplied part of a new group.
type GroupConfig struct {
	Name        string  `json:"name" validate:"required,max=100" label:"Group name"`
	Platform    string  `json:"platform" validate:"required,platform" label:"Platform"`
	MonthlyCost float64 `json:"monthly_cost" validate:"gt=0" label:"Monthly cost"`
	MaxMembers  int     `json:"max_members" validate:"min=2,max=6" label:"Max members"`
	Description string  `json:"description" validate:"max=500" label:"Description"`
}

// GroupSummary is a group as listed on the dashboard.
type GroupSummary struct {
	models.Group
	OpenSeats     int     `json:"open_seats"`
	Full          bool    `json:"full"`
	CostPerMember float64 `json:"cost_per_member"`
}

func summarize(g models.Group) GroupSummary {
	open := g.OpenSeats()
	return GroupSummary{
		Group:         g,
		OpenSeats:     open,
		Full:          open == 0,
		CostPerMember: models.CostPerMember(g.MonthlyCost, g.MemberCount),
	}
}

// Service is safe for concurrent use.
type Service struct {
	DB          *mongo.Database
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger

	newCode func() (string, error)
}

func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{
		DB:          db,
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
		newCode:     NewInviteCode,
	}
}

// CreateGroup validates cfg, issues a unique invite code and stores the
// group with creatorID enrolled as its first active member.
func (s *Service) CreateGroup(ctx context.Context, creatorID string, cfg GroupConfig) (models.Group, error) {
	if creatorID == "" {
		return models.Group{}, apperr.Validation("A creator is required.")
	}
	cfg.Name = normalize.Name(cfg.Name)
	cfg.Platform = normalize.Platform(cfg.Platform)
	cfg.Description = normalize.Body(cfg.Description)
	if res := inputval.Validate(cfg); res.HasErrors() {
		return models.Group{}, apperr.Validation(res.First())
	}
	if math.IsInf(cfg.MonthlyCost, 0) {
		return models.Group{}, apperr.Validation("Monthly cost must be a finite amount.")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.Log, "create group")
	defer cancel()

	for attempt := 1; attempt <= MaxInviteCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return models.Group{}, apperr.Persistence("could not generate invite code", err)
		}

		g, err := s.insertGroup(ctx, creatorID, cfg, code)
		if errors.Is(err, groupstore.ErrDuplicateInviteCode) {
			s.Log.Info("invite code collision; retrying",
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			s.Log.Error("create group failed", zap.String("creator_id", creatorID), zap.Error(err))
			return models.Group{}, apperr.Persistence("could not create group", err)
		}

		s.Log.Info("group created",
			zap.String("group_id", g.ID.Hex()),
			zap.String("creator_id", creatorID),
			zap.String("platform", g.Platform))
		return g, nil
	}
	return models.Group{}, apperr.Persistence("could not allocate a unique invite code", groupstore.ErrDuplicateInviteCode)
}

// insertGroup writes the group and the creator's membership together.
func (s *Service) insertGroup(ctx context.Context, creatorID string, cfg GroupConfig, code string) (models.Group, error) {
	var created models.Group
	err := txn.Run(ctx, s.DB, s.Log, func(ctx context.Context) error {
		g, err := s.Groups.Create(ctx, models.Group{
			Name:        cfg.Name,
			Platform:    cfg.Platform,
			MonthlyCost: math.Round(cfg.MonthlyCost*100) / 100,
			MaxMembers:  cfg.MaxMembers,
			MemberCount: 1,
			CreatorID:   creatorID,
			InviteCode:  code,
			Description: cfg.Description,
		})
		if err != nil {
			return err
		}
		if _, err := s.Memberships.Add(ctx, g.ID, creatorID); err != nil {
			if !txn.Active(ctx) {
				s.undoCreate(ctx, g.ID)
			}
			return err
		}
		created = g
		return nil
	})
	return created, err
}

func (s *Service) undoCreate(ctx context.Context, groupID primitive.ObjectID) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()
	if _, err := s.Groups.Delete(cctx, groupID); err != nil {
		s.Log.Error("failed to remove group after membership insert failed",
			zap.String("group_id", groupID.Hex()),
			zap.Error(err))
	}
}

// JoinGroup enrolls userID in the group identified by inviteCode.
//
// A seat is reserved with a conditional increment before the membership
// insert, and the insert is guarded by the unique active-membership index,
// so concurrent joins can neither exceed capacity nor double-enroll.
func (s *Service) JoinGroup(ctx context.Context, userID, inviteCode string) (models.Group, error) {
	if userID == "" {
		return models.Group{}, apperr.Validation("A user is required.")
	}
	code := normalize.InviteCode(inviteCode)
	if !inputval.IsValidInviteCode(code) {
		return models.Group{}, apperr.NotFound("No group matches that invite code.")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.Log, "join group")
	defer cancel()

	g, err := s.Groups.GetByInviteCode(ctx, code)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, apperr.NotFound("No group matches that invite code.")
	}
	if err != nil {
		return models.Group{}, apperr.Persistence("could not look up invite code", err)
	}

	// Fast path only; the unique index decides under races.
	member, err := s.Memberships.IsActive(ctx, g.ID, userID)
	if err != nil {
		return models.Group{}, apperr.Persistence("could not check membership", err)
	}
	if member {
		return models.Group{}, apperr.AlreadyMember("You are already a member of this group.")
	}

	err = txn.Run(ctx, s.DB, s.Log, func(ctx context.Context) error {
		ok, err := s.Groups.ReserveSeat(ctx, g.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.GroupFull("This group is full.")
		}
		if _, err := s.Memberships.Add(ctx, g.ID, userID); err != nil {
			if !txn.Active(ctx) {
				s.releaseSeat(ctx, g.ID)
			}
			if errors.Is(err, membershipstore.ErrDuplicateMembership) {
				return apperr.AlreadyMember("You are already a member of this group.")
			}
			return err
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrGroupFull), errors.Is(err, apperr.ErrAlreadyMember):
		return models.Group{}, err
	default:
		s.Log.Error("join group failed",
			zap.String("group_id", g.ID.Hex()),
			zap.String("user_id", userID),
			zap.Error(err))
		return models.Group{}, apperr.Persistence("could not join group", err)
	}

	s.Log.Info("member joined",
		zap.String("group_id", g.ID.Hex()),
		zap.String("user_id", userID))

	updated, err := s.Groups.GetByID(ctx, g.ID)
	if err != nil {
		s.Log.Warn("reload after join failed", zap.String("group_id", g.ID.Hex()), zap.Error(err))
		g.MemberCount++
		return g, nil
	}
	return updated, nil
}

func (s *Service) releaseSeat(ctx context.Context, groupID primitive.ObjectID) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()
	if err := s.Groups.ReleaseSeat(cctx, groupID); err != nil {
		s.Log.Error("failed to release reserved seat",
			zap.String("group_id", groupID.Hex()),
			zap.Error(err))
	}
}

// ListGroupsForUser splits all groups into those the user is an active
// member of and the rest. Both lists are newest first.
func (s *Service) ListGroupsForUser(ctx context.Context, userID string) (mine, available []GroupSummary, err error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.Log, "list groups")
	defer cancel()

	ms, err := s.Memberships.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, apperr.Persistence("could not load memberships", err)
	}
	joined := make(map[primitive.ObjectID]struct{}, len(ms))
	for _, m := range ms {
		joined[m.GroupID] = struct{}{}
	}

	all, err := s.Groups.List(ctx)
	if err != nil {
		return nil, nil, apperr.Persistence("could not load groups", err)
	}

	mine = make([]GroupSummary, 0, len(joined))
	available = make([]GroupSummary, 0, len(all))
	for _, g := range all {
		if _, ok := joined[g.ID]; ok {
			mine = append(mine, summarize(g))
		} else {
			available = append(available, summarize(g))
		}
	}
	return mine, available, nil
}

// CountActiveMembers returns the number of active memberships in a group.
func (s *Service) CountActiveMembers(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	n, err := s.Memberships.CountActive(ctx, groupID)
	if err != nil {
		return 0, apperr.Persistence("could not count members", err)
	}
	return n, nil
}

// IsActiveMember reports whether userID is an active member of groupID.
func (s *Service) IsActiveMember(ctx context.Context, groupID primitive.ObjectID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	ok, err := s.Memberships.IsActive(ctx, groupID, userID)
	if err != nil {
		return false, apperr.Persistence("could not check membership", err)
	}
	return ok, nil
}
