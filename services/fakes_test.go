package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/match-arena/live"
	"github.com/Dosada05/match-arena/models"
	"github.com/Dosada05/match-arena/notify"
	"github.com/Dosada05/match-arena/repositories"
	"github.com/Dosada05/match-arena/wallet"
)

// In-memory repository fakes for exercising the in-transaction service entry
// points without a database. The exec argument is ignored throughout.

type fakeMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = r.nextID
	r.nextID++
	match.CreatedAt = time.Now().UTC()
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return match, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) List(ctx context.Context, status *models.MatchStatus, matchType *models.MatchType) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, match := range r.matches {
		if status != nil && match.Status != *status {
			continue
		}
		if matchType != nil && match.MatchType != *matchType {
			continue
		}
		out = append(out, match)
	}
	return out, nil
}

func (r *fakeMatchRepo) ListStuckBefore(ctx context.Context, cutoff time.Time) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, match := range r.matches {
		switch match.Status {
		case models.MatchStatusWaiting, models.MatchStatusTeamAReady, models.MatchStatusTeamBReady:
			if match.CreatedAt.Before(cutoff) {
				out = append(out, match)
			}
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus) error {
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = status
	return nil
}

func (r *fakeMatchRepo) SetRoomCredentials(ctx context.Context, exec repositories.SQLExecutor, id int, roomID, roomCredential string) error {
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.RoomID = &roomID
	match.RoomCredential = &roomCredential
	return nil
}

func (r *fakeMatchRepo) MarkStarted(ctx context.Context, exec repositories.SQLExecutor, id int, startedAt time.Time) error {
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusInProgress
	match.StartedAt = &startedAt
	return nil
}

func (r *fakeMatchRepo) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int, winningTeamID int, endedAt time.Time) error {
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusCompleted
	match.WinningTeamID = &winningTeamID
	match.EndedAt = &endedAt
	return nil
}

type fakeTeamRepo struct {
	nextID int
	teams  map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{nextID: 1, teams: make(map[int]*models.Team)}
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	team.ID = r.nextID
	r.nextID++
	team.CreatedAt = time.Now().UTC()
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return team, nil
}

func (r *fakeTeamRepo) GetByMatchAndSlot(ctx context.Context, exec repositories.SQLExecutor, matchID int, slot models.TeamSlot) (*models.Team, error) {
	for _, team := range r.teams {
		if team.MatchID == matchID && team.Slot == slot {
			return team, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.Team, error) {
	out := make([]*models.Team, 0, 2)
	for _, team := range r.teams {
		if team.MatchID == matchID {
			out = append(out, team)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (r *fakeTeamRepo) ListByMatchForUpdate(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.Team, error) {
	return r.ListByMatch(ctx, exec, matchID)
}

func (r *fakeTeamRepo) ClaimSlot(ctx context.Context, exec repositories.SQLExecutor, teamID int, displayName string) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	if team.DisplayName != nil {
		return repositories.ErrTeamSlotTaken
	}
	team.DisplayName = &displayName
	return nil
}

func (r *fakeTeamRepo) MarkReady(ctx context.Context, exec repositories.SQLExecutor, teamID int) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.IsReady = true
	team.PaymentCompleted = true
	return nil
}

type fakeMemberRepo struct {
	nextID  int
	members []*models.TeamMember
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{nextID: 1}
}

func (r *fakeMemberRepo) Create(ctx context.Context, exec repositories.SQLExecutor, member *models.TeamMember) error {
	for _, existing := range r.members {
		if existing.MatchID == member.MatchID && existing.UserID == member.UserID {
			return repositories.ErrMemberConflict
		}
	}
	member.ID = r.nextID
	r.nextID++
	member.CreatedAt = time.Now().UTC()
	r.members = append(r.members, member)
	return nil
}

func (r *fakeMemberRepo) GetByTeamAndUserForUpdate(ctx context.Context, exec repositories.SQLExecutor, teamID, userID int) (*models.TeamMember, error) {
	for _, member := range r.members {
		if member.TeamID == teamID && member.UserID == userID {
			return member, nil
		}
	}
	return nil, repositories.ErrMemberNotFound
}

func (r *fakeMemberRepo) ListByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) ([]*models.TeamMember, error) {
	out := make([]*models.TeamMember, 0)
	for _, member := range r.members {
		if member.TeamID == teamID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.TeamMember, error) {
	out := make([]*models.TeamMember, 0)
	for _, member := range r.members {
		if member.MatchID == matchID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) ExistsByMatchAndUser(ctx context.Context, exec repositories.SQLExecutor, matchID, userID int) (bool, error) {
	for _, member := range r.members {
		if member.MatchID == matchID && member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMemberRepo) MarkPaid(ctx context.Context, exec repositories.SQLExecutor, memberID int) error {
	for _, member := range r.members {
		if member.ID == memberID {
			if member.PaymentStatus != models.PaymentPending {
				return repositories.ErrMemberNotFound
			}
			member.PaymentStatus = models.PaymentCompleted
			return nil
		}
	}
	return repositories.ErrMemberNotFound
}

func (r *fakeMemberRepo) CountPaidByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) (int, error) {
	count := 0
	for _, member := range r.members {
		if member.TeamID == teamID && member.PaymentStatus == models.PaymentCompleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeMemberRepo) CountPaidByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (int, error) {
	count := 0
	for _, member := range r.members {
		if member.MatchID == matchID && member.PaymentStatus == models.PaymentCompleted {
			count++
		}
	}
	return count, nil
}

type fakeResultRepo struct {
	results map[int]*models.MatchResult
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[int]*models.MatchResult)}
}

func (r *fakeResultRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, result *models.MatchResult) error {
	if existing, ok := r.results[result.MatchID]; ok {
		result.ID = existing.ID
	} else {
		result.ID = len(r.results) + 1
	}
	r.results[result.MatchID] = result
	return nil
}

func (r *fakeResultRepo) GetByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.MatchResult, error) {
	result, ok := r.results[matchID]
	if !ok {
		return nil, repositories.ErrResultNotFound
	}
	return result, nil
}

func (r *fakeResultRepo) GetByMatchForUpdate(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.MatchResult, error) {
	return r.GetByMatch(ctx, exec, matchID)
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = len(r.users) + 1
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) IncrementWins(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.Wins++
	return nil
}

func (r *fakeUserRepo) SetTelegramChatID(ctx context.Context, id int, chatID int64) error {
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.TelegramChatID = &chatID
	return nil
}

type fakeLedger struct {
	balances map[int]int64
	credits  []ledgerEntry
	debits   []ledgerEntry
}

type ledgerEntry struct {
	userID int
	amount int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[int]int64)}
}

func (l *fakeLedger) Debit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	if l.balances[userID] < amount {
		return wallet.ErrInsufficientFunds
	}
	l.balances[userID] -= amount
	l.debits = append(l.debits, ledgerEntry{userID: userID, amount: amount})
	return nil
}

func (l *fakeLedger) Credit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	l.balances[userID] += amount
	l.credits = append(l.credits, ledgerEntry{userID: userID, amount: amount})
	return nil
}

func (l *fakeLedger) Balance(ctx context.Context, userID int) (int64, error) {
	return l.balances[userID], nil
}

func testNotifier() *Notifier {
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	return NewNotifier(notify.NewSlogSink(logger), live.NewHub(), logger)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}
