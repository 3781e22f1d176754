package circles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-circles/internal/clock"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo, clock.NewFake(t0), zerolog.Nop()), repo
}

func TestJoin_CreatesAndReactivatesMembership(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	require.NoError(t, repo.SaveCircle(ctx, &Circle{ID: "c1", Name: "Calm", MaxMembers: 3}))

	alice := CurrentUser{ID: "alice", DisplayName: "Alice"}
	m, err := svc.Join(ctx, "c1", alice)
	require.NoError(t, err)
	assert.True(t, m.IsActive)
	assert.Equal(t, RoleMember, m.Role)

	again, err := svc.Join(ctx, "c1", alice)
	require.NoError(t, err)
	assert.True(t, again.IsActive)

	c, err := repo.GetCircle(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.CurrentMembers, "joining twice must not double count")

	require.NoError(t, svc.Leave(ctx, "c1", alice))
	c, _ = repo.GetCircle(ctx, "c1")
	assert.Equal(t, 0, c.CurrentMembers)
	assert.ErrorIs(t, RequireActiveMember(ctx, repo, "alice", "c1"), ErrNotMember)

	_, err = svc.Join(ctx, "c1", alice)
	require.NoError(t, err)
	assert.NoError(t, RequireActiveMember(ctx, repo, "alice", "c1"))
	c, _ = repo.GetCircle(ctx, "c1")
	assert.Equal(t, 1, c.CurrentMembers)
}

func TestJoin_RejectsFullCircle(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	require.NoError(t, repo.SaveCircle(ctx, &Circle{ID: "c1", MaxMembers: 2, CurrentMembers: 2}))

	_, err := svc.Join(ctx, "c1", CurrentUser{ID: "bob"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = repo.GetMembership(ctx, "bob", "c1")
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestJoin_UnknownCircle(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Join(context.Background(), "missing", CurrentUser{ID: "bob"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLeave_WithoutMembership(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	require.NoError(t, repo.SaveCircle(ctx, &Circle{ID: "c1", MaxMembers: 2}))

	assert.ErrorIs(t, svc.Leave(ctx, "c1", CurrentUser{ID: "bob"}), ErrNotMember)
}

func TestCreateCircle_CreatorIsAdmin(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	c, err := svc.CreateCircle(ctx, CurrentUser{ID: "alice"}, &CreateCircleRequest{
		Name:       "  Morning Pages ",
		Tags:       []string{"Writing", "writing", " journaling"},
		MaxMembers: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, "Morning Pages", c.Name)
	assert.Equal(t, []string{"writing", "journaling"}, c.Tags)
	assert.Equal(t, 1, c.CurrentMembers)

	m, err := repo.GetMembership(ctx, "alice", c.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, m.Role)
}

type recordingDisconnector struct {
	calls []string
}

func (d *recordingDisconnector) Disconnect(circleID, userID string) {
	d.calls = append(d.calls, circleID+"/"+userID)
}

func TestLeave_DisconnectsLiveStream(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	require.NoError(t, repo.SaveCircle(ctx, &Circle{ID: "c1", Name: "Calm", MaxMembers: 3}))

	d := &recordingDisconnector{}
	svc.SetDisconnector(d)

	bob := CurrentUser{ID: "bob"}
	_, err := svc.Join(ctx, "c1", bob)
	require.NoError(t, err)
	assert.Empty(t, d.calls)

	require.NoError(t, svc.Leave(ctx, "c1", bob))
	assert.Equal(t, []string{"c1/bob"}, d.calls)

	// a failed leave leaves connections alone
	assert.ErrorIs(t, svc.Leave(ctx, "c1", bob), ErrNotMember)
	assert.Len(t, d.calls, 1)
}

type failingCircleRepo struct {
	*MemoryRepository
	failCircle     bool
	failMembership bool
}

func (r *failingCircleRepo) SaveCircle(ctx context.Context, c *Circle) error {
	if r.failCircle {
		return errors.New("circle write failed")
	}
	return r.MemoryRepository.SaveCircle(ctx, c)
}

func (r *failingCircleRepo) SaveMembership(ctx context.Context, m *Membership) error {
	if r.failMembership {
		return errors.New("membership write failed")
	}
	return r.MemoryRepository.SaveMembership(ctx, m)
}

func TestJoin_FailedWritesKeepSeatsConsistent(t *testing.T) {
	ctx := context.Background()
	repo := &failingCircleRepo{MemoryRepository: NewMemoryRepository()}
	require.NoError(t, repo.SaveCircle(ctx, &Circle{ID: "c1", Name: "Calm", MaxMembers: 2, CurrentMembers: 1}))
	svc := NewService(repo, clock.NewFake(t0), zerolog.Nop())

	repo.failMembership = true
	_, err := svc.Join(ctx, "c1", CurrentUser{ID: "bob"})
	require.Error(t, err)
	c, err := repo.GetCircle(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.CurrentMembers)

	repo.failMembership = false
	repo.failCircle = true
	_, err = svc.Join(ctx, "c1", CurrentUser{ID: "bob"})
	require.Error(t, err)
	assert.ErrorIs(t, RequireActiveMember(ctx, repo, "bob", "c1"), ErrNotMember)

	repo.failCircle = false
	_, err = svc.Join(ctx, "c1", CurrentUser{ID: "bob"})
	require.NoError(t, err)
	c, _ = repo.GetCircle(ctx, "c1")
	assert.Equal(t, 2, c.CurrentMembers)
}
