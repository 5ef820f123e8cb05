package database

import "context"

const getScoreboard = `
SELECT t.id, t.team_name, COALESCE(SUM(c.points), 0) AS score, MAX(s.solved_at) AS last_solve_at
FROM teams t
LEFT JOIN solves s ON s.team_id = t.id
LEFT JOIN challenges c ON c.id = s.challenge_id
WHERE t.is_banned = FALSE
GROUP BY t.id, t.team_name
ORDER BY score DESC, last_solve_at ASC NULLS LAST, t.id ASC
`

// GetScoreboard derives standings from solves alone. Ties break on the
// earlier last solve.
func (q *Queries) GetScoreboard(ctx context.Context) ([]ScoreboardRow, error) {
	rows, err := q.db.Query(ctx, getScoreboard)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScoreboardRow
	for rows.Next() {
		var r ScoreboardRow
		if err := rows.Scan(&r.TeamID, &r.TeamName, &r.Score, &r.LastSolveAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getTeamScoreDrift = `
SELECT t.id, t.score, COALESCE(SUM(c.points), 0) AS computed
FROM teams t
LEFT JOIN solves s ON s.team_id = t.id
LEFT JOIN challenges c ON c.id = s.challenge_id
GROUP BY t.id, t.score
HAVING t.score <> COALESCE(SUM(c.points), 0)
`

// GetTeamScoreDrift lists teams whose cached score column disagrees
// with the solve-derived total.
func (q *Queries) GetTeamScoreDrift(ctx context.Context) ([]TeamScoreDrift, error) {
	rows, err := q.db.Query(ctx, getTeamScoreDrift)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TeamScoreDrift
	for rows.Next() {
		var d TeamScoreDrift
		if err := rows.Scan(&d.TeamID, &d.CachedScore, &d.ComputedScore); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
