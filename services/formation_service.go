package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/repositories"
)

var allowedTeamSizes = map[int]bool{1: true, 4: true, 6: true, 8: true}

// FormationService creates matches and admits rosters into team slots.
type FormationService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	JoinTeam(ctx context.Context, input JoinTeamInput) (*models.Team, error)
}

type CreateMatchInput struct {
	MatchType models.MatchType `json:"match_type"`
	GameName  string           `json:"game_name"`
	EntryFee  int64            `json:"entry_fee"`
	TeamSize  int              `json:"team_size"`
	CreatedBy int              `json:"-"`
}

type JoinMember struct {
	UserID    int  `json:"user_id"`
	IsCaptain bool `json:"is_captain"`
}

type JoinTeamInput struct {
	MatchID int `json:"-"`
	// Slot pins the join to a specific side; nil means auto-assignment.
	Slot          *models.TeamSlot `json:"slot,omitempty"`
	PreferredSlot *models.TeamSlot `json:"preferred_slot,omitempty"`
	DisplayName   string           `json:"display_name"`
	Members       []JoinMember     `json:"members"`
}

type formationService struct {
	db            *sql.DB
	matchRepo     repositories.MatchRepository
	teamRepo      repositories.TeamRepository
	memberRepo    repositories.MemberRepository
	userRepo      repositories.UserRepository
	marginPercent int64
	notifier      *Notifier
	logger        *slog.Logger
}

func NewFormationService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.MemberRepository,
	userRepo repositories.UserRepository,
	marginPercent int64,
	notifier *Notifier,
	logger *slog.Logger,
) FormationService {
	return &formationService{
		db:            db,
		matchRepo:     matchRepo,
		teamRepo:      teamRepo,
		memberRepo:    memberRepo,
		userRepo:      userRepo,
		marginPercent: marginPercent,
		notifier:      notifier,
		logger:        logger,
	}
}

// PrizePool computes the fixed pool at creation time: the full pot minus the
// platform margin. The value is frozen on the match row and never recomputed.
func PrizePool(entryFee int64, teamSize int, marginPercent int64) int64 {
	pot := entryFee * int64(teamSize) * 2
	return pot - pot*marginPercent/100
}

func (s *formationService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if input.MatchType != models.MatchTypePublic && input.MatchType != models.MatchTypePrivate {
		return nil, fmt.Errorf("%w: unknown match type %q", ErrValidationFailed, input.MatchType)
	}
	if input.GameName == "" {
		return nil, fmt.Errorf("%w: game name is required", ErrValidationFailed)
	}
	if input.EntryFee <= 0 {
		return nil, ErrInvalidEntryFee
	}
	if !allowedTeamSizes[input.TeamSize] {
		return nil, ErrInvalidTeamSize
	}

	match := &models.Match{
		MatchType: input.MatchType,
		Status:    models.MatchStatusWaiting,
		GameName:  input.GameName,
		EntryFee:  input.EntryFee,
		PrizePool: PrizePool(input.EntryFee, input.TeamSize, s.marginPercent),
		TeamSize:  input.TeamSize,
		CreatedBy: input.CreatedBy,
	}

	// The match and its two empty teams come into existence atomically; no
	// observer ever sees a match with fewer than two slots.
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if txErr := s.matchRepo.Create(ctx, tx, match); txErr != nil {
			return fmt.Errorf("failed to create match: %w", txErr)
		}
		for _, slot := range []models.TeamSlot{models.TeamSlotA, models.TeamSlotB} {
			team := &models.Team{MatchID: match.ID, Slot: slot}
			if txErr := s.teamRepo.Create(ctx, tx, team); txErr != nil {
				return fmt.Errorf("failed to create team %s: %w", slot, txErr)
			}
			match.Teams = append(match.Teams, team)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *formationService) JoinTeam(ctx context.Context, input JoinTeamInput) (*models.Team, error) {
	if input.DisplayName == "" {
		return nil, ErrTeamNameRequired
	}
	if len(input.Members) == 0 {
		return nil, ErrRosterEmpty
	}
	if input.Slot != nil && !input.Slot.Valid() {
		return nil, fmt.Errorf("%w: unknown team slot %q", ErrValidationFailed, *input.Slot)
	}
	seen := make(map[int]bool, len(input.Members))
	for _, member := range input.Members {
		if seen[member.UserID] {
			return nil, ErrDuplicateRosterUser
		}
		seen[member.UserID] = true
	}

	var team *models.Team
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		match, txErr := s.matchRepo.GetByIDForUpdate(ctx, tx, input.MatchID)
		if txErr != nil {
			if errors.Is(txErr, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to lock match %d: %w", input.MatchID, txErr)
		}
		if match.Status != models.MatchStatusWaiting {
			return ErrMatchNotJoinable
		}
		if len(input.Members) > match.TeamSize {
			return ErrRosterTooLarge
		}

		teams, txErr := s.teamRepo.ListByMatchForUpdate(ctx, tx, input.MatchID)
		if txErr != nil {
			return fmt.Errorf("failed to lock teams for match %d: %w", input.MatchID, txErr)
		}

		team, txErr = pickSlot(teams, input.Slot, input.PreferredSlot)
		if txErr != nil {
			return txErr
		}

		for _, member := range input.Members {
			if _, txErr := s.userRepo.GetByID(ctx, tx, member.UserID); txErr != nil {
				if errors.Is(txErr, repositories.ErrUserNotFound) {
					return fmt.Errorf("%w: user %d", ErrUserNotFound, member.UserID)
				}
				return fmt.Errorf("failed to load user %d: %w", member.UserID, txErr)
			}
			exists, txErr := s.memberRepo.ExistsByMatchAndUser(ctx, tx, input.MatchID, member.UserID)
			if txErr != nil {
				return fmt.Errorf("failed to check membership for user %d: %w", member.UserID, txErr)
			}
			if exists {
				return fmt.Errorf("%w: user %d", ErrUserAlreadyInMatch, member.UserID)
			}
		}

		if txErr := s.teamRepo.ClaimSlot(ctx, tx, team.ID, input.DisplayName); txErr != nil {
			if errors.Is(txErr, repositories.ErrTeamSlotTaken) {
				return ErrSlotTaken
			}
			return fmt.Errorf("failed to claim slot for team %d: %w", team.ID, txErr)
		}
		team.DisplayName = &input.DisplayName

		captainIndex := captainIndexOf(input.Members)
		for i, joinMember := range input.Members {
			row := &models.TeamMember{
				TeamID:        team.ID,
				MatchID:       input.MatchID,
				UserID:        joinMember.UserID,
				IsCaptain:     i == captainIndex,
				PaymentAmount: match.EntryFee,
				PaymentStatus: models.PaymentPending,
			}
			if txErr := s.memberRepo.Create(ctx, tx, row); txErr != nil {
				if errors.Is(txErr, repositories.ErrMemberConflict) {
					return fmt.Errorf("%w: user %d", ErrUserAlreadyInMatch, joinMember.UserID)
				}
				return fmt.Errorf("failed to add user %d to team %d: %w", joinMember.UserID, team.ID, txErr)
			}
			team.Members = append(team.Members, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyMembers(ctx, team.Members,
		"Team registered",
		fmt.Sprintf("Your team %q joined the match. Pay the entry fee to lock your spot.", input.DisplayName),
		map[string]interface{}{
			"match_id": input.MatchID,
			"team_id":  team.ID,
		},
	)
	return team, nil
}

// pickSlot selects the target team. An explicit slot must be open; otherwise
// the preferred slot wins if open, then the first open slot, and with both
// slots claimed the join fails.
func pickSlot(teams []*models.Team, explicit, preferred *models.TeamSlot) (*models.Team, error) {
	bySlot := make(map[models.TeamSlot]*models.Team, len(teams))
	for _, team := range teams {
		bySlot[team.Slot] = team
	}

	if explicit != nil {
		team, ok := bySlot[*explicit]
		if !ok {
			return nil, ErrTeamNotFound
		}
		if team.Claimed() {
			return nil, ErrSlotTaken
		}
		return team, nil
	}

	if preferred != nil {
		if team, ok := bySlot[*preferred]; ok && !team.Claimed() {
			return team, nil
		}
	}
	for _, slot := range []models.TeamSlot{models.TeamSlotA, models.TeamSlotB} {
		if team, ok := bySlot[slot]; ok && !team.Claimed() {
			return team, nil
		}
	}
	return nil, ErrNoSlotAvailable
}

// captainIndexOf honors an explicit captain flag and defaults to the first
// roster entry otherwise.
func captainIndexOf(members []JoinMember) int {
	for i, member := range members {
		if member.IsCaptain {
			return i
		}
	}
	return 0
}
