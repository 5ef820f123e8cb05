package database

import "context"

const getChallengeByID = `
SELECT id, challenge_name, category, points, is_dynamic_flag, static_flag, ttl_seconds, compose_file, created_at
FROM challenges
WHERE id = $1
`

func (q *Queries) GetChallengeByID(ctx context.Context, id int32) (Challenge, error) {
	row := q.db.QueryRow(ctx, getChallengeByID, id)
	var c Challenge
	err := row.Scan(
		&c.ID,
		&c.ChallengeName,
		&c.Category,
		&c.Points,
		&c.IsDynamicFlag,
		&c.StaticFlag,
		&c.TtlSeconds,
		&c.ComposeFile,
		&c.CreatedAt,
	)
	return c, err
}
