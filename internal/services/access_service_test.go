package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litledger/internal/domain"
	"litledger/internal/services"
)

func TestAccess_SelfPromoteFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	out, err := e.access.SelfPromote(ctx, 1, "Ann")
	require.NoError(t, err)
	assert.Equal(t, services.Promoted, out)

	out, err = e.access.SelfPromote(ctx, 1, "Ann")
	require.NoError(t, err)
	assert.Equal(t, services.AlreadyAdmin, out)

	_, err = e.access.SelfPromote(ctx, 2, "Bob")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	role, err := e.access.RoleOf(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNone, role)
}

func TestAccess_LeaderCannotSelfPromote(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	require.NoError(t, e.access.AssignRole(ctx, 3, domain.RoleLeader, "Lee"))

	out, err := e.access.SelfPromote(ctx, 3, "Lee")
	require.NoError(t, err)
	assert.Equal(t, services.HasRole, out)

	role, err := e.access.RoleOf(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLeader, role)
}

func TestAccess_RequireIsInclusive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	_, err := e.access.SelfPromote(ctx, 1, "Ann")
	require.NoError(t, err)
	require.NoError(t, e.access.AssignRole(ctx, 2, domain.RoleLeader, "Bob"))

	_, err = e.access.Require(ctx, 1, domain.RoleLeader)
	assert.NoError(t, err, "administrators can do what leaders can")
	_, err = e.access.Require(ctx, 2, domain.RoleLeader)
	assert.NoError(t, err)
	_, err = e.access.Require(ctx, 2, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.access.Require(ctx, 99, domain.RoleLeader)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAccess_PromoteLeader(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	_, err := e.access.SelfPromote(ctx, 1, "Ann")
	require.NoError(t, err)

	out, err := e.access.PromoteLeader(ctx, 1, 2, "Bob")
	require.NoError(t, err)
	assert.Equal(t, services.Promoted, out)

	out, err = e.access.PromoteLeader(ctx, 1, 2, "Bob")
	require.NoError(t, err)
	assert.Equal(t, services.AlreadyLeader, out)

	out, err = e.access.PromoteLeader(ctx, 1, 1, "Ann")
	require.NoError(t, err)
	assert.Equal(t, services.AlreadyAdmin, out)
	role, err := e.access.RoleOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role, "administrators are never demoted")

	_, err = e.access.PromoteLeader(ctx, 2, 3, "Cy")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAccess_EnrollChatAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	ok, err := e.access.EnrollChatAdmin(ctx, 7, "Gus")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.access.EnrollChatAdmin(ctx, 7, "Gus")
	require.NoError(t, err)
	assert.False(t, ok)
}
