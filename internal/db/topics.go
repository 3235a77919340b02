package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/teamforge/engine/internal/types"
)

// ListOpenTopics retrieves assignable topics for the semester, optionally
// filtered by major.
func (db *DB) ListOpenTopics(ctx context.Context, semesterID uuid.UUID, majorID *uuid.UUID) ([]types.Topic, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, COALESCE(description, ''), major_id, semester_id, status,
		        COALESCE(skill_tags, '{}')
		 FROM topics
		 WHERE semester_id = $1 AND status = 'open'
		   AND ($2::uuid IS NULL OR major_id = $2)
		 ORDER BY id`,
		semesterID, majorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open topics: %w", err)
	}
	defer rows.Close()

	var topics []types.Topic
	for rows.Next() {
		var t types.Topic
		var status string
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.MajorID, &t.SemesterID,
			&status, &t.SkillTags); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		t.Status = types.TopicStatus(status)
		topics = append(topics, t)
	}
	return topics, nil
}

// CommitTopicAssignment links one planned topic to its group and retires
// the topic, both guarded so a stale plan cannot double-assign.
func (db *DB) CommitTopicAssignment(ctx context.Context, ta types.TopicAssignment) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	result, err := tx.Exec(ctx,
		`UPDATE topics SET status = 'assigned', updated_at = NOW()
		 WHERE id = $1 AND status = 'open'`,
		ta.TopicID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark topic assigned: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("topic %s is no longer open", ta.TopicID)
	}

	result, err = tx.Exec(ctx,
		`UPDATE groups SET topic_id = $2, updated_at = NOW()
		 WHERE id = $1 AND topic_id IS NULL`,
		ta.GroupID, ta.TopicID,
	)
	if err != nil {
		return fmt.Errorf("failed to set group topic: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %s already has a topic", ta.GroupID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
