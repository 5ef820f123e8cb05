// Package testutil provides an in-memory storage backend and a fake
// provisioner for service level tests. The store honors the same
// uniqueness and transition guarantees the real schema enforces.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
)

type solveKey struct {
	userID      uuid.UUID
	challengeID int32
}

// MemStore is a mutex guarded database.Querier. Every method takes the
// lock for its whole body, which gives each call the atomicity a single
// statement or transaction has on Postgres.
type MemStore struct {
	mu sync.Mutex

	teams      map[int32]database.Team
	users      map[uuid.UUID]database.User
	challenges map[int32]database.Challenge
	instances  map[uuid.UUID]database.ChallengeInstance
	flags      map[uuid.UUID][]database.InstanceFlag
	solves     map[solveKey]database.Solve

	submissions []database.Submission
	logs        []database.LogEntry

	nextTeamID      int32
	nextChallengeID int32
	nextID          int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		teams:      make(map[int32]database.Team),
		users:      make(map[uuid.UUID]database.User),
		challenges: make(map[int32]database.Challenge),
		instances:  make(map[uuid.UUID]database.ChallengeInstance),
		flags:      make(map[uuid.UUID][]database.InstanceFlag),
		solves:     make(map[solveKey]database.Solve),
	}
}

var _ database.Querier = (*MemStore)(nil)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{
		Code:           ctf_errors.CodeUniqueConstraint,
		ConstraintName: constraint,
	}
}

func isActive(status database.InstanceStatus) bool {
	return status == database.InstanceStatusPending || status == database.InstanceStatusRunning
}

func (m *MemStore) CreateInstanceWithFlags(
	ctx context.Context,
	arg database.CreateInstanceParams,
	flags []string,
) (database.ChallengeInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.instances {
		if existing.TeamID == arg.TeamID &&
			existing.ChallengeID == arg.ChallengeID &&
			isActive(existing.Status) {
			return database.ChallengeInstance{}, uniqueViolation(database.UqActiveInstance)
		}
	}

	instance := database.ChallengeInstance{
		ID:          uuid.New(),
		TeamID:      arg.TeamID,
		ChallengeID: arg.ChallengeID,
		RequestedBy: arg.RequestedBy,
		Status:      database.InstanceStatusPending,
		CreatedAt:   time.Now(),
		EndAt:       arg.EndAt,
	}
	m.instances[instance.ID] = instance

	for _, flag := range flags {
		m.nextID++
		m.flags[instance.ID] = append(m.flags[instance.ID], database.InstanceFlag{
			ID:         m.nextID,
			InstanceID: instance.ID,
			Flag:       flag,
			CreatedAt:  instance.CreatedAt,
		})
	}
	return instance, nil
}

func (m *MemStore) MarkInstanceRunning(
	ctx context.Context,
	arg database.MarkInstanceRunningParams,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instance, ok := m.instances[arg.ID]
	if !ok || instance.Status != database.InstanceStatusPending {
		return 0, nil
	}
	endpoint := arg.Endpoint
	instance.Status = database.InstanceStatusRunning
	instance.Endpoint = &endpoint
	m.instances[arg.ID] = instance
	return 1, nil
}

func (m *MemStore) MarkInstanceError(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instance, ok := m.instances[id]
	if !ok || instance.Status != database.InstanceStatusPending {
		return 0, nil
	}
	instance.Status = database.InstanceStatusError
	m.instances[id] = instance
	return 1, nil
}

func (m *MemStore) TerminateInstance(
	ctx context.Context,
	id uuid.UUID,
) (database.ChallengeInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instance, ok := m.instances[id]
	if !ok || !isActive(instance.Status) {
		return database.ChallengeInstance{}, pgx.ErrNoRows
	}
	now := time.Now()
	instance.Status = database.InstanceStatusStopped
	instance.DestroyAt = &now
	m.instances[id] = instance
	return instance, nil
}

func (m *MemStore) ExpireInstances(ctx context.Context) ([]database.ChallengeInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var expired []database.ChallengeInstance
	for id, instance := range m.instances {
		if instance.Status != database.InstanceStatusRunning || instance.EndAt.After(now) {
			continue
		}
		destroyAt := now
		instance.Status = database.InstanceStatusStopped
		instance.DestroyAt = &destroyAt
		m.instances[id] = instance
		expired = append(expired, instance)
	}
	return expired, nil
}

func (m *MemStore) GetInstanceByID(
	ctx context.Context,
	id uuid.UUID,
) (database.ChallengeInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instance, ok := m.instances[id]
	if !ok {
		return database.ChallengeInstance{}, pgx.ErrNoRows
	}
	return instance, nil
}

func (m *MemStore) GetActiveInstance(
	ctx context.Context,
	arg database.GetActiveInstanceParams,
) (database.ChallengeInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, instance := range m.instances {
		if instance.TeamID == arg.TeamID &&
			instance.ChallengeID == arg.ChallengeID &&
			isActive(instance.Status) {
			return instance, nil
		}
	}
	return database.ChallengeInstance{}, pgx.ErrNoRows
}

func (m *MemStore) GetRunningInstance(
	ctx context.Context,
	arg database.GetRunningInstanceParams,
) (database.ChallengeInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, instance := range m.instances {
		if instance.TeamID == arg.TeamID &&
			instance.ChallengeID == arg.ChallengeID &&
			instance.Status == database.InstanceStatusRunning {
			return instance, nil
		}
	}
	return database.ChallengeInstance{}, pgx.ErrNoRows
}

func (m *MemStore) GetInstanceFlags(
	ctx context.Context,
	instanceID uuid.UUID,
) ([]database.InstanceFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flags := make([]database.InstanceFlag, len(m.flags[instanceID]))
	copy(flags, m.flags[instanceID])
	return flags, nil
}

func (m *MemStore) CreateSubmission(
	ctx context.Context,
	arg database.CreateSubmissionParams,
) (database.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	submission := database.Submission{
		ID:            m.nextID,
		UserID:        arg.UserID,
		TeamID:        arg.TeamID,
		ChallengeID:   arg.ChallengeID,
		InstanceID:    arg.InstanceID,
		SubmittedFlag: arg.SubmittedFlag,
		IsCorrect:     arg.IsCorrect,
		SubmittedAt:   time.Now(),
	}
	m.submissions = append(m.submissions, submission)
	return submission, nil
}

func (m *MemStore) CreateSolveAndCredit(
	ctx context.Context,
	arg database.CreateSolveAndCreditParams,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := solveKey{userID: arg.UserID, challengeID: arg.ChallengeID}
	if _, solved := m.solves[key]; solved {
		return false, nil
	}

	m.nextID++
	m.solves[key] = database.Solve{
		ID:          m.nextID,
		UserID:      arg.UserID,
		TeamID:      arg.TeamID,
		ChallengeID: arg.ChallengeID,
		InstanceID:  arg.InstanceID,
		SolvedAt:    time.Now(),
	}

	team := m.teams[arg.TeamID]
	team.Score += arg.Points
	m.teams[arg.TeamID] = team
	return true, nil
}

func (m *MemStore) GetChallengeByID(ctx context.Context, id int32) (database.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	challenge, ok := m.challenges[id]
	if !ok {
		return database.Challenge{}, pgx.ErrNoRows
	}
	return challenge, nil
}

func (m *MemStore) GetTeamByID(ctx context.Context, id int32) (database.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	team, ok := m.teams[id]
	if !ok {
		return database.Team{}, pgx.ErrNoRows
	}
	return team, nil
}

func (m *MemStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *MemStore) GetScoreboard(ctx context.Context) ([]database.ScoreboardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]database.ScoreboardRow, 0, len(m.teams))
	for _, team := range m.teams {
		if team.IsBanned {
			continue
		}
		row := database.ScoreboardRow{TeamID: team.ID, TeamName: team.TeamName}
		for _, solve := range m.solves {
			if solve.TeamID != team.ID {
				continue
			}
			row.Score += int64(m.challenges[solve.ChallengeID].Points)
			solvedAt := solve.SolvedAt
			if row.LastSolveAt == nil || solvedAt.After(*row.LastSolveAt) {
				row.LastSolveAt = &solvedAt
			}
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Score != rows[b].Score {
			return rows[a].Score > rows[b].Score
		}
		left, right := rows[a].LastSolveAt, rows[b].LastSolveAt
		switch {
		case left != nil && right != nil && !left.Equal(*right):
			return left.Before(*right)
		case left != nil && right == nil:
			return true
		case left == nil && right != nil:
			return false
		}
		return rows[a].TeamID < rows[b].TeamID
	})
	return rows, nil
}

func (m *MemStore) GetTeamScoreDrift(ctx context.Context) ([]database.TeamScoreDrift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var drifted []database.TeamScoreDrift
	for _, team := range m.teams {
		var computed int64
		for _, solve := range m.solves {
			if solve.TeamID == team.ID {
				computed += int64(m.challenges[solve.ChallengeID].Points)
			}
		}
		if int64(team.Score) != computed {
			drifted = append(drifted, database.TeamScoreDrift{
				TeamID:        team.ID,
				CachedScore:   team.Score,
				ComputedScore: computed,
			})
		}
	}
	return drifted, nil
}

func (m *MemStore) SetTeamScore(ctx context.Context, arg database.SetTeamScoreParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	team, ok := m.teams[arg.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	team.Score = arg.Score
	m.teams[arg.ID] = team
	return nil
}

func (m *MemStore) CreateLogEntry(
	ctx context.Context,
	arg database.CreateLogEntryParams,
) (database.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	entry := database.LogEntry{
		ID:          m.nextID,
		ActionType:  arg.ActionType,
		UserID:      arg.UserID,
		TeamID:      arg.TeamID,
		ChallengeID: arg.ChallengeID,
		InstanceID:  arg.InstanceID,
		Detail:      arg.Detail,
		CreatedAt:   time.Now(),
	}
	m.logs = append(m.logs, entry)
	return entry, nil
}

func (m *MemStore) GetLogEntries(
	ctx context.Context,
	arg database.GetLogEntriesParams,
) ([]database.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []database.LogEntry
	for idx := len(m.logs) - 1; idx >= 0; idx-- {
		entry := m.logs[idx]
		if arg.ActionType != nil && entry.ActionType != *arg.ActionType {
			continue
		}
		if arg.UserID != nil && (entry.UserID == nil || *entry.UserID != *arg.UserID) {
			continue
		}
		if arg.TeamID != nil && (entry.TeamID == nil || *entry.TeamID != *arg.TeamID) {
			continue
		}
		if arg.ChallengeID != nil && (entry.ChallengeID == nil || *entry.ChallengeID != *arg.ChallengeID) {
			continue
		}
		entries = append(entries, entry)
		if arg.Limit > 0 && int32(len(entries)) >= arg.Limit {
			break
		}
	}
	return entries, nil
}
