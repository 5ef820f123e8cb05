package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
)

// SeedTeam registers a team and returns it.
func (m *MemStore) SeedTeam(name string, banned bool) database.Team {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTeamID++
	team := database.Team{
		ID:        m.nextTeamID,
		TeamName:  name,
		IsBanned:  banned,
		CreatedAt: time.Now(),
	}
	m.teams[team.ID] = team
	return team
}

// SeedUser registers a user on a team. A nil teamID makes a teamless
// user.
func (m *MemStore) SeedUser(name string, teamID *int32, role string) database.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := database.User{
		ID:        uuid.New(),
		UserName:  name,
		TeamID:    teamID,
		UserRole:  role,
		CreatedAt: time.Now(),
	}
	m.users[user.ID] = user
	return user
}

// SeedChallenge registers a challenge definition.
func (m *MemStore) SeedChallenge(challenge database.Challenge) database.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextChallengeID++
	challenge.ID = m.nextChallengeID
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}
	m.challenges[challenge.ID] = challenge
	return challenge
}

// SeedSolve backdates a solve with explicit timing, for scoreboard
// ordering cases.
func (m *MemStore) SeedSolve(user database.User, challengeID int32, solvedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	key := solveKey{userID: user.ID, challengeID: challengeID}
	m.solves[key] = database.Solve{
		ID:          m.nextID,
		UserID:      user.ID,
		TeamID:      *user.TeamID,
		ChallengeID: challengeID,
		SolvedAt:    solvedAt,
	}
}

// InstanceByID reads an instance without error translation, for
// asserting on state directly.
func (m *MemStore) InstanceByID(id uuid.UUID) (database.ChallengeInstance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instance, ok := m.instances[id]
	return instance, ok
}

// TeamScore reads a team's cached score column.
func (m *MemStore) TeamScore(teamID int32) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.teams[teamID].Score
}

// SolveCount reports how many solves are on record.
func (m *MemStore) SolveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.solves)
}

// SubmissionCount reports how many submission attempts are on record.
func (m *MemStore) SubmissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.submissions)
}

// ContextWithUser returns a context carrying the user's session claims,
// the way the jwt middleware would after verifying a cookie.
func ContextWithUser(user database.User) context.Context {
	return context.WithValue(
		context.Background(),
		service.KeyCtxUserCredClaims,
		service.UserCredentialClaims{
			UserName: user.UserName,
			UserId:   user.ID,
		},
	)
}
