package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"familyphotos/api/internal/config"
	"familyphotos/api/internal/models"
	"familyphotos/api/internal/repository"
)

// FriendService manages the friend graph. Edges are directed unless
// sharing.symmetricfriends is set, in which case either direction counts
// when listing friends and checking upload recipients.
type FriendService struct {
	users     *repository.UserRepository
	friends   *repository.FriendRepository
	symmetric bool
	log       zerolog.Logger
	now       func() time.Time
}

func NewFriendService(users *repository.UserRepository, friends *repository.FriendRepository, cfg *config.AppConfig, log zerolog.Logger) *FriendService {
	return &FriendService{
		users:     users,
		friends:   friends,
		symmetric: cfg.Sharing.SymmetricFriends,
		log:       log,
		now:       time.Now,
	}
}

func (s *FriendService) AddFriend(ctx context.Context, ownerID int64, email string) (models.Friend, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return models.Friend{}, fmt.Errorf("%w: email required", ErrInvalidArgument)
	}

	friend, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Friend{}, fmt.Errorf("%w: no user with that email", ErrNotFound)
		}
		return models.Friend{}, fmt.Errorf("%w: lookup user: %v", ErrInternal, err)
	}
	if friend.ID == ownerID {
		return models.Friend{}, fmt.Errorf("%w: cannot add yourself as a friend", ErrInvalidArgument)
	}

	if err := s.friends.Create(ctx, ownerID, friend.ID, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Friend{}, fmt.Errorf("%w: already friends", ErrConflict)
		}
		return models.Friend{}, fmt.Errorf("%w: add friend: %v", ErrInternal, err)
	}

	s.log.Info().Int64("user_id", ownerID).Int64("friend_id", friend.ID).Msg("friend added")
	return models.Friend{ID: friend.ID, Username: friend.Username, Email: friend.Email}, nil
}

func (s *FriendService) ListFriends(ctx context.Context, ownerID int64) ([]models.Friend, error) {
	friends, err := s.friends.List(ctx, ownerID, s.symmetric)
	if err != nil {
		return nil, fmt.Errorf("%w: list friends: %v", ErrInternal, err)
	}
	return friends, nil
}

func (s *FriendService) IsFriend(ctx context.Context, ownerID, candidateID int64) (bool, error) {
	ok, err := s.friends.Linked(ctx, ownerID, candidateID, s.symmetric)
	if err != nil {
		return false, fmt.Errorf("%w: check friend: %v", ErrInternal, err)
	}
	return ok, nil
}
