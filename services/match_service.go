package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/repositories"
	"github.com/Dosada05/match-arena/storage"
)

// MatchQueryService serves the read side: listings and fully populated match
// views. Room credentials are stripped for everyone who is not a participant.
type MatchQueryService interface {
	List(ctx context.Context, filter MatchFilter) ([]*models.Match, error)
	Get(ctx context.Context, actor Actor, matchID int) (*models.Match, error)
	Evidence(ctx context.Context, actor Actor, matchID int) ([]*models.Screenshot, error)
}

type MatchFilter struct {
	Status    *models.MatchStatus
	MatchType *models.MatchType
}

type matchQueryService struct {
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	memberRepo     repositories.MemberRepository
	screenshotRepo repositories.ScreenshotRepository
	uploader       storage.FileUploader
}

func NewMatchQueryService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	screenshotRepo repositories.ScreenshotRepository,
	uploader storage.FileUploader,
) MatchQueryService {
	return &matchQueryService{
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		memberRepo:     memberRepo,
		screenshotRepo: screenshotRepo,
		uploader:       uploader,
	}
}

func (s *matchQueryService) List(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx, filter.Status, filter.MatchType)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	for _, match := range matches {
		redactRoom(match)
	}
	return matches, nil
}

func (s *matchQueryService) Get(ctx context.Context, actor Actor, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}

	teams, err := s.teamRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams for match %d: %w", matchID, err)
	}
	for _, team := range teams {
		members, memberErr := s.memberRepo.ListByTeam(ctx, nil, team.ID)
		if memberErr != nil {
			return nil, fmt.Errorf("failed to load members for team %d: %w", team.ID, memberErr)
		}
		team.Members = members
	}
	match.Teams = teams

	visible, err := s.canSeeRoom(ctx, actor, match)
	if err != nil {
		return nil, err
	}
	if !visible {
		redactRoom(match)
	}
	return match, nil
}

func (s *matchQueryService) Evidence(ctx context.Context, actor Actor, matchID int) ([]*models.Screenshot, error) {
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}

	if !actor.System && !actor.CanArbitrate() {
		participant, err := s.memberRepo.ExistsByMatchAndUser(ctx, nil, matchID, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check participation for user %d: %w", actor.UserID, err)
		}
		if !participant {
			return nil, ErrNotParticipant
		}
	}

	shots, err := s.screenshotRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evidence for match %d: %w", matchID, err)
	}
	for _, shot := range shots {
		if shot.ImageURL == "" && shot.ImageKey != "" {
			shot.ImageURL = s.uploader.GetPublicURL(shot.ImageKey)
		}
	}
	return shots, nil
}

// canSeeRoom gates the room credential: only participants, the creator and
// admins get it back.
func (s *matchQueryService) canSeeRoom(ctx context.Context, actor Actor, match *models.Match) (bool, error) {
	if actor.System || actor.IsAdmin() || match.CreatedBy == actor.UserID {
		return true, nil
	}
	participant, err := s.memberRepo.ExistsByMatchAndUser(ctx, nil, match.ID, actor.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to check participation for user %d: %w", actor.UserID, err)
	}
	return participant, nil
}

func redactRoom(match *models.Match) {
	match.RoomID = nil
	match.RoomCredential = nil
}
