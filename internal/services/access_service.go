package services

import (
	"context"

	"github.com/pkg/errors"

	"litledger/internal/domain"
	applog "litledger/internal/log"
)

type ActorStore interface {
	Get(ctx context.Context, id int64) (domain.Actor, error)
	Role(ctx context.Context, id int64) (domain.Role, error)
	Assign(ctx context.Context, id int64, role domain.Role, name string) error
	PromoteFirstAdmin(ctx context.Context, id int64, name string) (bool, error)
	HasAdmin(ctx context.Context) (bool, error)
	List(ctx context.Context) ([]domain.Actor, error)
}

type Promotion int

const (
	Promoted Promotion = iota
	AlreadyAdmin
	AlreadyLeader
	HasRole
)

// AccessService resolves roles from the store on every call; there is no cache.
type AccessService struct {
	Actors ActorStore
}

func NewAccessService(actors ActorStore) *AccessService { return &AccessService{Actors: actors} }

func (s *AccessService) RoleOf(ctx context.Context, actorID int64) (domain.Role, error) {
	return s.Actors.Role(ctx, actorID)
}

func (s *AccessService) AssignRole(ctx context.Context, actorID int64, role domain.Role, name string) error {
	if err := s.Actors.Assign(ctx, actorID, role, name); err != nil {
		return err
	}
	applog.Audit(nil, "access.role.assigned", map[string]any{"actor_id": actorID, "role": role.String()})
	return nil
}

// Require returns the actor's role when it satisfies min, ErrForbidden otherwise.
func (s *AccessService) Require(ctx context.Context, actorID int64, min domain.Role) (domain.Role, error) {
	role, err := s.Actors.Role(ctx, actorID)
	if err != nil {
		return domain.RoleNone, err
	}
	if !role.Satisfies(min) {
		applog.Security(nil, "access.denied", map[string]any{"actor_id": actorID, "role": role.String(), "required": min.String()})
		return role, errors.Wrapf(domain.ErrForbidden, "actor %d is %s, needs %s", actorID, role, min)
	}
	return role, nil
}

// SelfPromote makes the caller administrator while nobody holds that role.
// Actors that already have a role keep it.
func (s *AccessService) SelfPromote(ctx context.Context, actorID int64, name string) (Promotion, error) {
	role, err := s.Actors.Role(ctx, actorID)
	if err != nil {
		return 0, err
	}
	switch role {
	case domain.RoleAdmin:
		return AlreadyAdmin, nil
	case domain.RoleLeader:
		return HasRole, nil
	}
	ok, err := s.Actors.PromoteFirstAdmin(ctx, actorID, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		applog.Security(nil, "access.self_promote.denied", map[string]any{"actor_id": actorID})
		return 0, errors.Wrap(domain.ErrForbidden, "an administrator already exists")
	}
	applog.Audit(nil, "access.self_promote", map[string]any{"actor_id": actorID})
	return Promoted, nil
}

// PromoteLeader lets an administrator grant the leader role. Administrators
// are never demoted through this path.
func (s *AccessService) PromoteLeader(ctx context.Context, by, target int64, name string) (Promotion, error) {
	if _, err := s.Require(ctx, by, domain.RoleAdmin); err != nil {
		return 0, err
	}
	role, err := s.Actors.Role(ctx, target)
	if err != nil {
		return 0, err
	}
	if role == domain.RoleAdmin {
		return AlreadyAdmin, nil
	}
	if err := s.Actors.Assign(ctx, target, domain.RoleLeader, name); err != nil {
		return 0, err
	}
	applog.Audit(nil, "access.leader.promoted", map[string]any{"by": by, "actor_id": target})
	if role == domain.RoleLeader {
		return AlreadyLeader, nil
	}
	return Promoted, nil
}

// EnrollChatAdmin grants the leader role to a group-chat administrator that
// has no role yet. It reports whether a role was granted.
func (s *AccessService) EnrollChatAdmin(ctx context.Context, actorID int64, name string) (bool, error) {
	role, err := s.Actors.Role(ctx, actorID)
	if err != nil || role != domain.RoleNone {
		return false, err
	}
	if err := s.Actors.Assign(ctx, actorID, domain.RoleLeader, name); err != nil {
		return false, err
	}
	applog.Audit(nil, "access.chat_admin.enrolled", map[string]any{"actor_id": actorID})
	return true, nil
}

func (s *AccessService) ListActors(ctx context.Context) ([]domain.Actor, error) {
	return s.Actors.List(ctx)
}
