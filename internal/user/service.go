package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	GetCurrentUser(ctx context.Context, id uuid.UUID) (*User, error)
	// CreateCurrentUser is idempotent on Auth0ID: an existing user is
	// returned with created == false.
	CreateCurrentUser(ctx context.Context, user *User) (result *User, created bool, err error)
	UpdateCurrentUser(ctx context.Context, id uuid.UUID, profile Profile) (*User, error)
	ResolveUserID(ctx context.Context, auth0ID string) (uuid.UUID, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetCurrentUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id in repository")
		return nil, fmt.Errorf("service: failed to get user by id '%s': %w", id, err)
	}

	return user, nil
}

func (s *service) CreateCurrentUser(ctx context.Context, user *User) (*User, bool, error) {
	existing, err := s.repo.GetByAuth0ID(ctx, user.Auth0ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Error().Err(err).Str("auth0_id", user.Auth0ID).Msg("service: failed to look up user by auth0 id")
		return nil, false, fmt.Errorf("service: failed to look up user: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, false, fmt.Errorf("service: failed to generate user id: %w", err)
	}
	now := time.Now().UTC()
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAuth0IDExists) {
			// lost a race with a concurrent first login
			existing, getErr := s.repo.GetByAuth0ID(ctx, user.Auth0ID)
			if getErr != nil {
				return nil, false, fmt.Errorf("service: failed to load concurrently created user: %w", getErr)
			}
			return existing, false, nil
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, false, fmt.Errorf("service: failed to save user: %w", err)
	}

	log.Info().Stringer("user_id", user.ID).Msg("service: user created")
	return user, true, nil
}

func (s *service) UpdateCurrentUser(ctx context.Context, id uuid.UUID, profile Profile) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get user for update: %w", err)
	}

	user.Name = profile.Name
	user.AddressLineOne = profile.AddressLineOne
	user.City = profile.City
	user.Country = profile.Country
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update user")
		return nil, fmt.Errorf("service: failed to update user by id '%s': %w", id, err)
	}

	return user, nil
}

func (s *service) ResolveUserID(ctx context.Context, auth0ID string) (uuid.UUID, error) {
	user, err := s.repo.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("service: failed to resolve user: %w", err)
	}
	return user.ID, nil
}
