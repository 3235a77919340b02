package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/teamforge/engine/internal/resolve"
	"github.com/teamforge/engine/internal/types"
)

// GetGroupSizePolicy retrieves the semester's group size policy. An unknown
// semester is a typed error; a known semester without a policy returns nil.
func (db *DB) GetGroupSizePolicy(ctx context.Context, semesterID uuid.UUID) (*types.SizePolicy, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM semesters WHERE id = $1)`,
		semesterID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check semester: %w", err)
	}
	if !exists {
		return nil, &resolve.UnknownSemesterError{SemesterID: semesterID}
	}

	var policy types.SizePolicy
	err = db.pool.QueryRow(ctx,
		`SELECT min_size, max_size FROM size_policies WHERE semester_id = $1`,
		semesterID,
	).Scan(&policy.MinSize, &policy.MaxSize)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get size policy: %w", err)
	}
	return &policy, nil
}
