// internal/circles/service.go

package circles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/clock"
)

// RequireActiveMember returns ErrNotMember unless userID holds an active
// membership in circleID.
func RequireActiveMember(ctx context.Context, repo CircleRepository, userID, circleID string) error {
	m, err := repo.GetMembership(ctx, userID, circleID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotMember
		}
		return err
	}
	if !m.IsActive {
		return ErrNotMember
	}
	return nil
}

// CreateCircleRequest carries the attributes of a new circle
type CreateCircleRequest struct {
	Name       string   `json:"name" validate:"required,min=2,max=100"`
	Tags       []string `json:"tags" validate:"max=10,dive,required,max=40"`
	MaxMembers int      `json:"max_members" validate:"required,min=2,max=50"`
	IsPublic   bool     `json:"is_public"`
	AIEnabled  bool     `json:"ai_enabled"`
}

// Disconnector drops a user's live connection to a circle
type Disconnector interface {
	Disconnect(circleID, userID string)
}

// Service manages circles and memberships. Join and Leave are serialized so
// the capacity invariant holds within one process.
type Service struct {
	repo         CircleRepository
	clock        clock.Clock
	disconnector Disconnector
	logger       zerolog.Logger
	mu           sync.Mutex
}

func NewService(repo CircleRepository, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clk,
		logger: logger.With().Str("component", "circles").Logger(),
	}
}

// CreateCircle stores a new circle with the creator as its admin
func (s *Service) CreateCircle(ctx context.Context, creator CurrentUser, req *CreateCircleRequest) (*Circle, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: circle name is empty", ErrInvalidArgument)
	}
	if req.MaxMembers < 1 {
		return nil, fmt.Errorf("%w: max members must be positive", ErrInvalidArgument)
	}

	now := s.clock.Now()
	circle := &Circle{
		ID:             uuid.New().String(),
		Name:           name,
		Tags:           normalizeTags(req.Tags),
		MaxMembers:     req.MaxMembers,
		CurrentMembers: 1,
		IsPublic:       req.IsPublic,
		AIEnabled:      req.AIEnabled,
		CreatedAt:      now,
	}
	if err := s.repo.SaveCircle(ctx, circle); err != nil {
		return nil, fmt.Errorf("failed to save circle: %w", err)
	}

	membership := &Membership{
		UserID:       creator.ID,
		CircleID:     circle.ID,
		Role:         RoleAdmin,
		IsActive:     true,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	if err := s.repo.SaveMembership(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to save membership: %w", err)
	}

	s.logger.Info().Str("circle_id", circle.ID).Str("user_id", creator.ID).Msg("circle created")
	return circle, nil
}

// SetDisconnector registers who closes live streams when a member leaves
func (s *Service) SetDisconnector(d Disconnector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnector = d
}

func (s *Service) GetCircle(ctx context.Context, circleID string) (*Circle, error) {
	return s.repo.GetCircle(ctx, circleID)
}

// Join activates the user's membership. Joining twice returns the existing
// membership; a previously left membership is reactivated.
func (s *Service) Join(ctx context.Context, circleID string, user CurrentUser) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	circle, err := s.repo.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMembership(ctx, user.ID, circleID)
	if err != nil && !errors.Is(err, ErrMembershipNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsActive {
		return existing, nil
	}
	if circle.IsFull() {
		return nil, ErrCapacityExceeded
	}

	now := s.clock.Now()
	membership := &Membership{
		UserID:   user.ID,
		CircleID: circleID,
		Role:     RoleMember,
	}
	if existing != nil {
		*membership = *existing
	}
	membership.IsActive = true
	membership.JoinedAt = now
	membership.LastActiveAt = now

	// the seat is only counted once the membership is stored
	if err := s.repo.SaveMembership(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to save membership: %w", err)
	}
	circle.CurrentMembers++
	if err := s.repo.SaveCircle(ctx, circle); err != nil {
		s.rollbackJoin(ctx, membership, existing)
		return nil, fmt.Errorf("failed to update circle: %w", err)
	}

	s.logger.Info().Str("circle_id", circleID).Str("user_id", user.ID).Msg("member joined")
	return membership, nil
}

func (s *Service) rollbackJoin(ctx context.Context, membership, previous *Membership) {
	restore := previous
	if restore == nil {
		restore = &Membership{UserID: membership.UserID, CircleID: membership.CircleID, Role: membership.Role}
	}
	restore.IsActive = false
	if err := s.repo.SaveMembership(ctx, restore); err != nil {
		s.logger.Error().Err(err).
			Str("circle_id", membership.CircleID).
			Str("user_id", membership.UserID).
			Msg("failed to roll back membership after join error")
	}
}

// Leave deactivates the user's membership
func (s *Service) Leave(ctx context.Context, circleID string, user CurrentUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	circle, err := s.repo.GetCircle(ctx, circleID)
	if err != nil {
		return err
	}

	membership, err := s.repo.GetMembership(ctx, user.ID, circleID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotMember
		}
		return err
	}
	if !membership.IsActive {
		return ErrNotMember
	}

	membership.IsActive = false
	membership.LastActiveAt = s.clock.Now()
	if err := s.repo.SaveMembership(ctx, membership); err != nil {
		return fmt.Errorf("failed to save membership: %w", err)
	}

	if circle.CurrentMembers > 0 {
		circle.CurrentMembers--
	}
	if err := s.repo.SaveCircle(ctx, circle); err != nil {
		return fmt.Errorf("failed to update circle: %w", err)
	}

	if s.disconnector != nil {
		s.disconnector.Disconnect(circleID, user.ID)
	}

	s.logger.Info().Str("circle_id", circleID).Str("user_id", user.ID).Msg("member left")
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
