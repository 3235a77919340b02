package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamforge/engine/internal/config"
	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/types"
)

// fakeRepo implements Repository for testing.
type fakeRepo struct {
	students []types.Student
	groups   []types.Group
	topics   []types.Topic
	policy   *types.SizePolicy

	studentsErr error
	policyErr   error
}

func (f *fakeRepo) ListUnplacedStudents(_ context.Context, _ uuid.UUID, _ *uuid.UUID) ([]types.Student, error) {
	return f.students, f.studentsErr
}

func (f *fakeRepo) ListOpenGroups(_ context.Context, _ uuid.UUID, _ *uuid.UUID) ([]types.Group, error) {
	return f.groups, nil
}

func (f *fakeRepo) ListOpenTopics(_ context.Context, _ uuid.UUID, _ *uuid.UUID) ([]types.Topic, error) {
	return f.topics, nil
}

func (f *fakeRepo) GetGroupSizePolicy(_ context.Context, _ uuid.UUID) (*types.SizePolicy, error) {
	return f.policy, f.policyErr
}

var (
	semesterID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	majorID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func testScoring() config.Scoring {
	return config.Scoring{
		SkillMatchWeight:     10,
		RoleMatchBonus:       15,
		CapacityWeight:       2,
		BalancePenalty:       5,
		MinScore:             10,
		RerankTopN:           20,
		RerankTimeoutSeconds: 5,
		ChunkSizeChars:       3500,
	}
}

func studentID(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("33333333-3333-3333-3333-%012d", n))
}

func backendStudent(n int) types.Student {
	return types.Student{
		ID:          studentID(n),
		Name:        fmt.Sprintf("Student %d", n),
		MajorID:     majorID,
		ProfileJSON: `{"primary_role": "backend", "skill_tags": ["backend", "sql"]}`,
	}
}

func unmatchedStudent(n int) types.Student {
	return types.Student{
		ID:          studentID(n),
		Name:        fmt.Sprintf("Student %d", n),
		MajorID:     majorID,
		ProfileJSON: `{"skill_tags": ["painting"]}`,
	}
}

func openGroup(name string, openSlots int) types.Group {
	return types.Group{
		ID:            uuid.New(),
		Name:          name,
		MajorID:       majorID,
		SemesterID:    semesterID,
		Status:        types.GroupStatusForming,
		Description:   "backend api service with sql storage",
		MaxSize:       3 + openSlots,
		MemberCount:   3,
		NeededRole:    profile.RoleBackend,
		FrontendCount: 1,
		BackendCount:  1,
		OtherCount:    1,
	}
}

func TestRun_AssignsBestStudentAndPoolsTheRest(t *testing.T) {
	group := openGroup("G1", 1)
	repo := &fakeRepo{
		students: []types.Student{
			backendStudent(1),
			unmatchedStudent(2),
			unmatchedStudent(3),
			unmatchedStudent(4),
		},
		groups: []types.Group{group},
		policy: &types.SizePolicy{MinSize: 3, MaxSize: 5},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, studentID(1), result.Assignments[0].StudentID)
	assert.Equal(t, group.ID, result.Assignments[0].GroupID)
	assert.Equal(t, profile.RoleBackend, result.Assignments[0].SuggestedRole)
	assert.Equal(t, 1, result.StudentsAssigned)

	// The three unmatched students form one new group at MinSize.
	require.Len(t, result.NewGroups, 1)
	assert.Len(t, result.NewGroups[0].Members, 3)
	assert.Equal(t, majorID, result.NewGroups[0].MajorID)
	assert.Empty(t, result.StudentIssues)

	// G1 is now full with no topic and no topic exists.
	require.NotEmpty(t, result.GroupIssues)
	assert.Equal(t, group.ID, result.GroupIssues[0].GroupID)
	assert.Equal(t, "no eligible topic", result.GroupIssues[0].Reason)
}

func TestRun_InsufficientPoolIsNeverRelaxed(t *testing.T) {
	group := openGroup("G1", 1)
	repo := &fakeRepo{
		students: []types.Student{
			backendStudent(1),
			unmatchedStudent(2),
			unmatchedStudent(3),
			unmatchedStudent(4),
		},
		groups: []types.Group{group},
		policy: &types.SizePolicy{MinSize: 4, MaxSize: 5},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Empty(t, result.NewGroups)
	require.Len(t, result.StudentIssues, 3)
	for _, issue := range result.StudentIssues {
		assert.Equal(t, "insufficient pool", issue.Reason)
	}
}

func TestRun_NoStudentLost(t *testing.T) {
	repo := &fakeRepo{
		students: []types.Student{
			backendStudent(1),
			backendStudent(2),
			unmatchedStudent(3),
			unmatchedStudent(4),
			unmatchedStudent(5),
		},
		groups: []types.Group{openGroup("G1", 1)},
		policy: &types.SizePolicy{MinSize: 3, MaxSize: 5},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)

	placed := len(result.Assignments) + result.NewGroupMemberCount() + len(result.StudentIssues)
	assert.Equal(t, len(repo.students), placed)
}

func TestRun_CapacityInvariant(t *testing.T) {
	// One open slot, two students who both score well: only one may take it.
	group := openGroup("G1", 1)
	repo := &fakeRepo{
		students: []types.Student{backendStudent(1), backendStudent(2)},
		groups:   []types.Group{group},
		policy:   &types.SizePolicy{MinSize: 2, MaxSize: 4},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	// The loser pools but cannot reach MinSize alone.
	require.Len(t, result.StudentIssues, 1)
	assert.Equal(t, "insufficient pool", result.StudentIssues[0].Reason)
}

func TestRun_MissingPolicyIsFatal(t *testing.T) {
	repo := &fakeRepo{policy: nil}

	resolver := NewResolver(repo, nil, testScoring())
	_, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})

	var missing *MissingPolicyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, semesterID, missing.SemesterID)
}

func TestRun_UnknownSemesterIsFatal(t *testing.T) {
	repo := &fakeRepo{policyErr: &UnknownSemesterError{SemesterID: semesterID}}

	resolver := NewResolver(repo, nil, testScoring())
	_, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})

	var unknown *UnknownSemesterError
	require.ErrorAs(t, err, &unknown)
}

func TestRun_BatchLoadFailureIsFatal(t *testing.T) {
	repo := &fakeRepo{
		studentsErr: errors.New("connection refused"),
		policy:      &types.SizePolicy{MinSize: 3, MaxSize: 5},
	}

	resolver := NewResolver(repo, nil, testScoring())
	_, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})

	var load *LoadError
	require.ErrorAs(t, err, &load)
	assert.Equal(t, "unplaced students", load.Resource)
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	repo := &fakeRepo{
		students: []types.Student{backendStudent(1)},
		groups:   []types.Group{openGroup("G1", 1)},
		policy:   &types.SizePolicy{MinSize: 3, MaxSize: 5},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(ctx, Scope{SemesterID: semesterID})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Partial)
	assert.Empty(t, result.Assignments)
}

func fullGroup(name string, topicID *uuid.UUID) types.Group {
	return types.Group{
		ID:          uuid.New(),
		Name:        name,
		MajorID:     majorID,
		SemesterID:  semesterID,
		Status:      types.GroupStatusForming,
		MaxSize:     3,
		MemberCount: 3,
		TopicID:     topicID,
		MemberProfiles: []string{
			`{"primary_role": "backend", "skill_tags": ["sql", "go"]}`,
			`{"primary_role": "frontend", "skill_tags": ["react"]}`,
		},
	}
}

func TestRun_TopicAssignedOncePerRun(t *testing.T) {
	g1 := fullGroup("G1", nil)
	g2 := fullGroup("G2", nil)
	existing := uuid.New()
	g3 := fullGroup("G3", &existing)

	topic := types.Topic{
		ID:          uuid.New(),
		Title:       "Warehouse Analytics",
		Description: "sql database analytics with go services",
		MajorID:     majorID,
		SemesterID:  semesterID,
		Status:      types.TopicStatusOpen,
	}

	repo := &fakeRepo{
		groups: []types.Group{g1, g2, g3},
		topics: []types.Topic{topic},
		policy: &types.SizePolicy{MinSize: 3, MaxSize: 5},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)

	// G1 takes the only topic, G2 is left without, G3 already has one.
	require.Len(t, result.TopicAssignments, 1)
	assert.Equal(t, g1.ID, result.TopicAssignments[0].GroupID)
	assert.Equal(t, topic.ID, result.TopicAssignments[0].TopicID)
	assert.Equal(t, "Warehouse Analytics", result.TopicAssignments[0].TopicTitle)

	require.Len(t, result.GroupIssues, 1)
	assert.Equal(t, g2.ID, result.GroupIssues[0].GroupID)
	assert.Equal(t, 1, result.TopicsAssigned)
}

func TestRun_NewGroupGetsTopic(t *testing.T) {
	topic := types.Topic{
		ID:          uuid.New(),
		Title:       "Inventory Service",
		Description: "sql backed inventory project",
		MajorID:     majorID,
		SemesterID:  semesterID,
		Status:      types.TopicStatusOpen,
		SkillTags:   []string{"sql", "backend"},
	}

	repo := &fakeRepo{
		students: []types.Student{backendStudent(1), backendStudent(2), backendStudent(3)},
		topics:   []types.Topic{topic},
		policy:   &types.SizePolicy{MinSize: 3, MaxSize: 3},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)

	require.Len(t, result.NewGroups, 1)
	require.Len(t, result.TopicAssignments, 1)
	assert.Equal(t, result.NewGroups[0].GroupID, result.TopicAssignments[0].GroupID)
	require.NotNil(t, result.NewGroups[0].TopicID)
	assert.Equal(t, topic.ID, *result.NewGroups[0].TopicID)
}

func TestRun_ClosedTopicsAreNotEligible(t *testing.T) {
	g1 := fullGroup("G1", nil)
	topic := types.Topic{
		ID:         uuid.New(),
		Title:      "Archived Topic",
		MajorID:    majorID,
		SemesterID: semesterID,
		Status:     types.TopicStatusArchived,
	}

	repo := &fakeRepo{
		groups: []types.Group{g1},
		topics: []types.Topic{topic},
		policy: &types.SizePolicy{MinSize: 3, MaxSize: 5},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)

	assert.Empty(t, result.TopicAssignments)
	require.Len(t, result.GroupIssues, 1)
	assert.Equal(t, g1.ID, result.GroupIssues[0].GroupID)
}

func TestRun_BelowMinScorePoolsInsteadOfAssigning(t *testing.T) {
	// The group has a slot but shares no skills with the student; the
	// capacity term alone must not clear the threshold.
	group := openGroup("G1", 1)
	repo := &fakeRepo{
		students: []types.Student{unmatchedStudent(1)},
		groups:   []types.Group{group},
		policy:   &types.SizePolicy{MinSize: 3, MaxSize: 5},
	}

	resolver := NewResolver(repo, nil, testScoring())
	result, err := resolver.Run(context.Background(), Scope{SemesterID: semesterID})
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.StudentIssues, 1)
	assert.Equal(t, "insufficient pool", result.StudentIssues[0].Reason)
}
