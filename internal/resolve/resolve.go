package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/teamforge/engine/internal/config"
	"github.com/teamforge/engine/internal/llm"
	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/ranking"
	"github.com/teamforge/engine/internal/types"
)

// Scope selects the entities one batch run operates on. A nil MajorID
// spans every major in the semester.
type Scope struct {
	SemesterID uuid.UUID
	MajorID    *uuid.UUID
}

// Repository is the read side of persistence the resolver depends on.
// GetGroupSizePolicy returns *UnknownSemesterError when the semester does
// not exist and (nil, nil) when it exists without a policy.
type Repository interface {
	ListUnplacedStudents(ctx context.Context, semesterID uuid.UUID, majorID *uuid.UUID) ([]types.Student, error)
	ListOpenGroups(ctx context.Context, semesterID uuid.UUID, majorID *uuid.UUID) ([]types.Group, error)
	ListOpenTopics(ctx context.Context, semesterID uuid.UUID, majorID *uuid.UUID) ([]types.Topic, error)
	GetGroupSizePolicy(ctx context.Context, semesterID uuid.UUID) (*types.SizePolicy, error)
}

// Committer persists one planned entity at a time. Run never calls it: the
// caller walks the returned plan and must treat each commit failure
// independently instead of rolling back the whole plan.
type Committer interface {
	CommitAssignment(ctx context.Context, semesterID uuid.UUID, a types.StudentAssignment) error
	CommitNewGroup(ctx context.Context, semesterID uuid.UUID, g types.NewGroup) error
	CommitTopicAssignment(ctx context.Context, t types.TopicAssignment) error
}

// Resolver runs auto-resolve batches over a repository.
type Resolver struct {
	repo     Repository
	scorer   *ranking.BaselineScorer
	reranker *ranking.Reranker
	cfg      config.Scoring
}

// NewResolver creates a resolver. A nil LLM client disables reranking;
// every ranking then uses the deterministic baseline alone.
func NewResolver(repo Repository, client llm.Client, cfg config.Scoring) *Resolver {
	return &Resolver{
		repo:     repo,
		scorer:   ranking.NewBaselineScorer(cfg),
		reranker: ranking.NewReranker(client, cfg),
		cfg:      cfg,
	}
}

// groupState tracks one group's capacity and role mix for the duration of
// a run. The counters are the only mutable shared state of a batch and are
// touched exclusively by the single-threaded student pass, so no two
// students can take the same last slot.
type groupState struct {
	group     types.Group
	remaining int
	frontend  int
	backend   int
	other     int
}

// Run executes one auto-resolve batch and returns the resulting plan.
// Nothing is persisted. Cancellation mid-run returns the partial plan
// accumulated so far with Partial set, not an error.
func (r *Resolver) Run(ctx context.Context, scope Scope) (*types.AutoResolveResult, error) {
	var (
		students []types.Student
		groups   []types.Group
		topics   []types.Topic
		policy   *types.SizePolicy
	)

	// The four loads are read-only and independent.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if students, err = r.repo.ListUnplacedStudents(gCtx, scope.SemesterID, scope.MajorID); err != nil {
			return &LoadError{Resource: "unplaced students", Cause: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if groups, err = r.repo.ListOpenGroups(gCtx, scope.SemesterID, scope.MajorID); err != nil {
			return &LoadError{Resource: "open groups", Cause: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if topics, err = r.repo.ListOpenTopics(gCtx, scope.SemesterID, scope.MajorID); err != nil {
			return &LoadError{Resource: "open topics", Cause: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if policy, err = r.repo.GetGroupSizePolicy(gCtx, scope.SemesterID); err != nil {
			var unknown *UnknownSemesterError
			if errors.As(err, &unknown) {
				return err
			}
			return &LoadError{Resource: "size policy", Cause: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if policy == nil || !policy.Valid() {
		return nil, &MissingPolicyError{SemesterID: scope.SemesterID}
	}

	result := &types.AutoResolveResult{}

	states := make([]*groupState, 0, len(groups))
	for _, grp := range groups {
		states = append(states, &groupState{
			group:     grp,
			remaining: grp.OpenSlots(),
			frontend:  grp.FrontendCount,
			backend:   grp.BackendCount,
			other:     grp.OtherCount,
		})
	}

	// Stable id order keeps runs reproducible for the same inputs.
	sort.Slice(students, func(i, j int) bool {
		return students[i].ID.String() < students[j].ID.String()
	})

	pools := make(map[uuid.UUID][]types.Student)
	cancelled := false
	for _, stu := range students {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		r.placeStudent(ctx, stu, states, pools, result)
	}

	var formed []formedGroup
	if !cancelled {
		formed = r.formGroups(pools, *policy, result)
		cancelled = r.assignTopics(ctx, scope.SemesterID, states, formed, topics, result)
	}

	result.Partial = cancelled
	result.StudentsAssigned = len(result.Assignments)
	result.TopicsAssigned = len(result.TopicAssignments)
	result.GroupsCreated = len(result.NewGroups)
	return result, nil
}

// placeStudent ranks the eligible open groups for one student and either
// records an assignment or pools the student for new-group formation. A
// panic while scoring one student downgrades to a StudentIssue so the pass
// continues.
func (r *Resolver) placeStudent(ctx context.Context, stu types.Student, states []*groupState, pools map[uuid.UUID][]types.Student, result *types.AutoResolveResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result.StudentIssues = append(result.StudentIssues, types.StudentIssue{
				StudentID: stu.ID,
				Reason:    fmt.Sprintf("placement failed: %v", rec),
			})
		}
	}()

	query := stu.Profile()

	byID := make(map[uuid.UUID]*groupState, len(states))
	candidates := make([]types.Candidate, 0, len(states))
	for _, st := range states {
		if st.remaining <= 0 || st.group.Status != types.GroupStatusForming || st.group.MajorID != stu.MajorID {
			continue
		}
		byID[st.group.ID] = st
		candidates = append(candidates, types.Candidate{
			Key:                st.group.ID.String(),
			EntityID:           st.group.ID,
			Title:              st.group.Name,
			Text:               st.group.Description,
			NeededRole:         st.group.NeededRole,
			GroupFrontendCount: st.frontend,
			GroupBackendCount:  st.backend,
			GroupOtherCount:    st.other,
			OpenSlots:          st.remaining,
		})
	}
	if len(candidates) == 0 {
		pools[stu.MajorID] = append(pools[stu.MajorID], stu)
		return
	}

	ranked := r.scorer.Rank(query, candidates)
	results := r.reranker.Rerank(ctx, "group", studentQueryText(stu, query), query, ranked, nil)

	top := results[0]
	if top.FinalScore < ranking.NormalizeBaseline(r.cfg.MinScore) {
		pools[stu.MajorID] = append(pools[stu.MajorID], stu)
		return
	}

	state := byID[top.EntityID]
	role := query.PrimaryRole
	if role == profile.RoleUnknown {
		role = state.group.NeededRole
	}

	result.Assignments = append(result.Assignments, types.StudentAssignment{
		StudentID:     stu.ID,
		GroupID:       state.group.ID,
		GroupName:     state.group.Name,
		SuggestedRole: role,
		Score:         top.FinalScore,
		Reason:        top.Reason,
	})

	state.remaining--
	switch query.PrimaryRole {
	case profile.RoleFrontend:
		state.frontend++
	case profile.RoleBackend:
		state.backend++
	default:
		state.other++
	}
	if stu.ProfileJSON != "" {
		state.group.MemberProfiles = append(state.group.MemberProfiles, stu.ProfileJSON)
	}
}

// assignTopics ranks open topics for every group that is now fully staffed
// and has no topic, including groups formed this run. A topic assigned to
// one group is unavailable to the next. Reports true when cancelled.
func (r *Resolver) assignTopics(ctx context.Context, semesterID uuid.UUID, states []*groupState, formed []formedGroup, topics []types.Topic, result *types.AutoResolveResult) bool {
	type pending struct {
		groupID  uuid.UUID
		majorID  uuid.UUID
		query    profile.Profile
		teamCtx  *types.TeamContext
		newIndex int
	}

	var queue []pending
	for _, st := range states {
		if st.remaining != 0 || st.group.TopicID != nil {
			continue
		}
		query := st.group.CombinedProfile()
		queue = append(queue, pending{
			groupID: st.group.ID,
			majorID: st.group.MajorID,
			query:   query,
			teamCtx: &types.TeamContext{
				TeamName:        st.group.Name,
				PrimaryNeed:     st.group.NeededRole.String(),
				Skills:          query.Tags,
				CurrentMixFe:    st.frontend,
				CurrentMixBe:    st.backend,
				CurrentMixOther: st.other,
			},
			newIndex: -1,
		})
	}
	for _, fg := range formed {
		ng := result.NewGroups[fg.index]
		profiles := make([]profile.Profile, 0, len(fg.students))
		var fe, be, other int
		for _, stu := range fg.students {
			p := stu.Profile()
			profiles = append(profiles, p)
			switch p.PrimaryRole {
			case profile.RoleFrontend:
				fe++
			case profile.RoleBackend:
				be++
			default:
				other++
			}
		}
		query := profile.Combine(profiles)
		queue = append(queue, pending{
			groupID: ng.GroupID,
			majorID: ng.MajorID,
			query:   query,
			teamCtx: &types.TeamContext{
				TeamName:        ng.Name,
				Skills:          query.Tags,
				CurrentMixFe:    fe,
				CurrentMixBe:    be,
				CurrentMixOther: other,
			},
			newIndex: fg.index,
		})
	}

	taken := make(map[uuid.UUID]bool)
	for _, p := range queue {
		if ctx.Err() != nil {
			return true
		}

		candidates := make([]types.Candidate, 0, len(topics))
		for _, topic := range topics {
			if topic.Status != types.TopicStatusOpen || topic.SemesterID != semesterID ||
				topic.MajorID != p.majorID || taken[topic.ID] {
				continue
			}
			text := topic.Description
			if len(topic.SkillTags) > 0 {
				text = strings.TrimSpace(text + " " + strings.Join(topic.SkillTags, ", "))
			}
			candidates = append(candidates, types.Candidate{
				Key:      topic.ID.String(),
				EntityID: topic.ID,
				Title:    topic.Title,
				Text:     text,
			})
		}
		if len(candidates) == 0 {
			result.GroupIssues = append(result.GroupIssues, types.GroupIssue{
				GroupID: p.groupID,
				Reason:  "no eligible topic",
			})
			continue
		}

		ranked := r.scorer.Rank(p.query, candidates)
		results := r.reranker.Rerank(ctx, "topic", strings.Join(p.query.Tags, ", "), p.query, ranked, p.teamCtx)

		top := results[0]
		taken[top.EntityID] = true
		result.TopicAssignments = append(result.TopicAssignments, types.TopicAssignment{
			GroupID:    p.groupID,
			TopicID:    top.EntityID,
			TopicTitle: top.Title,
			Score:      top.FinalScore,
		})
		if p.newIndex >= 0 {
			topicID := top.EntityID
			result.NewGroups[p.newIndex].TopicID = &topicID
		}
	}
	return false
}

// studentQueryText prefers the student's own prose for the rerank query.
func studentQueryText(stu types.Student, query profile.Profile) string {
	if stu.FreeText != "" {
		return stu.FreeText
	}
	return strings.Join(query.Tags, ", ")
}
