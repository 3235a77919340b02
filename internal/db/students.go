package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/teamforge/engine/internal/types"
)

// ListUnplacedStudents retrieves students enrolled in the semester who have
// no active or pending group membership, optionally filtered by major.
func (db *DB) ListUnplacedStudents(ctx context.Context, semesterID uuid.UUID, majorID *uuid.UUID) ([]types.Student, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.name, s.major_id,
		        COALESCE(s.profile_json::text, ''), COALESCE(s.free_text, '')
		 FROM students s
		 JOIN enrollments e ON e.student_id = s.id AND e.semester_id = $1
		 WHERE NOT EXISTS (
		     SELECT 1 FROM group_members gm
		     JOIN groups g ON g.id = gm.group_id
		     WHERE gm.student_id = s.id
		       AND g.semester_id = $1
		       AND gm.status IN ('active', 'pending')
		 )
		 AND ($2::uuid IS NULL OR s.major_id = $2)
		 ORDER BY s.id`,
		semesterID, majorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unplaced students: %w", err)
	}
	defer rows.Close()

	var students []types.Student
	for rows.Next() {
		var s types.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.MajorID, &s.ProfileJSON, &s.FreeText); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, nil
}

// GetStudent retrieves one student by id, or nil when absent.
func (db *DB) GetStudent(ctx context.Context, id uuid.UUID) (*types.Student, error) {
	var s types.Student
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, major_id,
		        COALESCE(profile_json::text, ''), COALESCE(free_text, '')
		 FROM students WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.MajorID, &s.ProfileJSON, &s.FreeText)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &s, nil
}

// UpdateStudentProfile replaces a student's stored skill document, typically
// after skill extraction from the student's free text.
func (db *DB) UpdateStudentProfile(ctx context.Context, id uuid.UUID, profileJSON string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE students SET profile_json = $2::jsonb, updated_at = NOW() WHERE id = $1`,
		id, profileJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update student profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("student not found: %s", id)
	}
	return nil
}
