package database

import (
	"context"

	"github.com/google/uuid"
)

const createInstanceFlag = `
INSERT INTO instance_flags (instance_id, flag)
VALUES ($1, $2)
RETURNING id, instance_id, flag, created_at
`

type CreateInstanceFlagParams struct {
	InstanceID uuid.UUID
	Flag       string
}

func (q *Queries) CreateInstanceFlag(
	ctx context.Context,
	arg CreateInstanceFlagParams,
) (InstanceFlag, error) {
	row := q.db.QueryRow(ctx, createInstanceFlag, arg.InstanceID, arg.Flag)
	var f InstanceFlag
	err := row.Scan(&f.ID, &f.InstanceID, &f.Flag, &f.CreatedAt)
	return f, err
}

const getInstanceFlags = `
SELECT id, instance_id, flag, created_at
FROM instance_flags
WHERE instance_id = $1
ORDER BY id
`

func (q *Queries) GetInstanceFlags(
	ctx context.Context,
	instanceID uuid.UUID,
) ([]InstanceFlag, error) {
	rows, err := q.db.Query(ctx, getInstanceFlags, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstanceFlag
	for rows.Next() {
		var f InstanceFlag
		if err := rows.Scan(&f.ID, &f.InstanceID, &f.Flag, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
