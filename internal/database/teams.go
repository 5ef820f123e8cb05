package database

import (
	"context"

	"github.com/google/uuid"
)

const getTeamByID = `
SELECT id, team_name, score, is_banned, created_at
FROM teams
WHERE id = $1
`

func (q *Queries) GetTeamByID(ctx context.Context, id int32) (Team, error) {
	row := q.db.QueryRow(ctx, getTeamByID, id)
	var t Team
	err := row.Scan(&t.ID, &t.TeamName, &t.Score, &t.IsBanned, &t.CreatedAt)
	return t, err
}

const setTeamScore = `
UPDATE teams
SET score = $2
WHERE id = $1
`

type SetTeamScoreParams struct {
	ID    int32
	Score int32
}

func (q *Queries) SetTeamScore(ctx context.Context, arg SetTeamScoreParams) error {
	_, err := q.db.Exec(ctx, setTeamScore, arg.ID, arg.Score)
	return err
}

const getUserByID = `
SELECT id, user_name, team_id, user_role, created_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.UserName, &u.TeamID, &u.UserRole, &u.CreatedAt)
	return u, err
}
