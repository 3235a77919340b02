package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/types"
)

// ListOpenGroups retrieves forming groups that either have open slots or
// are full but still topic-less, with their role mix and member skill
// documents aggregated in one query.
func (db *DB) ListOpenGroups(ctx context.Context, semesterID uuid.UUID, majorID *uuid.UUID) ([]types.Group, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT g.id, g.name, g.major_id, g.semester_id, g.status,
		        COALESCE(g.description, ''), g.max_size,
		        COUNT(gm.student_id),
		        COALESCE(g.needed_role, ''), g.topic_id,
		        COUNT(*) FILTER (WHERE gm.role = 'frontend'),
		        COUNT(*) FILTER (WHERE gm.role = 'backend'),
		        COUNT(*) FILTER (WHERE gm.student_id IS NOT NULL AND gm.role NOT IN ('frontend', 'backend')),
		        COALESCE(array_agg(s.profile_json::text) FILTER (WHERE s.profile_json IS NOT NULL), '{}')
		 FROM groups g
		 LEFT JOIN group_members gm ON gm.group_id = g.id AND gm.status IN ('active', 'pending')
		 LEFT JOIN students s ON s.id = gm.student_id
		 WHERE g.semester_id = $1 AND g.status = 'forming'
		   AND ($2::uuid IS NULL OR g.major_id = $2)
		 GROUP BY g.id
		 HAVING COUNT(gm.student_id) < g.max_size OR g.topic_id IS NULL
		 ORDER BY g.id`,
		semesterID, majorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open groups: %w", err)
	}
	defer rows.Close()

	var groups []types.Group
	for rows.Next() {
		var g types.Group
		var status, neededRole string
		if err := rows.Scan(&g.ID, &g.Name, &g.MajorID, &g.SemesterID, &status,
			&g.Description, &g.MaxSize, &g.MemberCount, &neededRole, &g.TopicID,
			&g.FrontendCount, &g.BackendCount, &g.OtherCount, &g.MemberProfiles); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.Status = types.GroupStatus(status)
		g.NeededRole = profile.ParseRole(neededRole)
		groups = append(groups, g)
	}
	return groups, nil
}

// CommitAssignment records one planned student placement as a pending
// membership. The capacity guard re-checks at commit time since the plan
// may be stale by the time it is persisted.
func (db *DB) CommitAssignment(ctx context.Context, semesterID uuid.UUID, a types.StudentAssignment) error {
	result, err := db.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, student_id, role, status)
		 SELECT $1, $2, $3, 'pending'
		 WHERE (SELECT COUNT(*) FROM group_members
		        WHERE group_id = $1 AND status IN ('active', 'pending')) <
		       (SELECT max_size FROM groups WHERE id = $1 AND semester_id = $4)
		 ON CONFLICT (group_id, student_id) DO NOTHING`,
		a.GroupID, a.StudentID, a.SuggestedRole.String(), semesterID,
	)
	if err != nil {
		return fmt.Errorf("failed to commit assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %s is full or unknown in semester %s", a.GroupID, semesterID)
	}
	return nil
}

// CommitNewGroup persists one planned group and its memberships in a single
// transaction. New groups are complete on arrival, so they start active.
func (db *DB) CommitNewGroup(ctx context.Context, semesterID uuid.UUID, g types.NewGroup) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO groups (id, name, major_id, semester_id, status, max_size, topic_id)
		 VALUES ($1, $2, $3, $4, 'active', $5, $6)`,
		g.GroupID, g.Name, g.MajorID, semesterID, len(g.Members), g.TopicID,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, studentID := range g.Members {
		var role string
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(profile_json->>'primary_role', '') FROM students WHERE id = $1`,
			studentID,
		).Scan(&role)
		if err != nil && err != pgx.ErrNoRows {
			return fmt.Errorf("failed to read member role: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO group_members (group_id, student_id, role, status)
			 VALUES ($1, $2, $3, 'active')`,
			g.GroupID, studentID, profile.ParseRole(role).String(),
		)
		if err != nil {
			return fmt.Errorf("failed to add member %s: %w", studentID, err)
		}
	}

	if g.TopicID != nil {
		_, err = tx.Exec(ctx,
			`UPDATE topics SET status = 'assigned', updated_at = NOW()
			 WHERE id = $1 AND status = 'open'`,
			*g.TopicID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark topic assigned: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
