package resolve

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/teamforge/engine/internal/profile"
	"github.com/teamforge/engine/internal/types"
)

// formedGroup links one planned NewGroup back to its member students so the
// topic pass can build the group's combined profile.
type formedGroup struct {
	index    int
	students []types.Student
}

// formGroups buckets each major's leftover pool into new groups within the
// size policy. Students that cannot form a policy-sized group become
// "insufficient pool" issues; an under-sized group is never created.
func (r *Resolver) formGroups(pools map[uuid.UUID][]types.Student, policy types.SizePolicy, result *types.AutoResolveResult) []formedGroup {
	majors := make([]uuid.UUID, 0, len(pools))
	for id := range pools {
		majors = append(majors, id)
	}
	sort.Slice(majors, func(i, j int) bool { return majors[i].String() < majors[j].String() })

	var formed []formedGroup
	seq := 1
	for _, majorID := range majors {
		buckets, leftover := bucketByRole(pools[majorID], policy)
		for _, bucket := range buckets {
			members := make([]uuid.UUID, len(bucket))
			for i, stu := range bucket {
				members[i] = stu.ID
			}
			result.NewGroups = append(result.NewGroups, types.NewGroup{
				GroupID: uuid.New(),
				Name:    fmt.Sprintf("Auto Group %d", seq),
				MajorID: majorID,
				Members: members,
			})
			formed = append(formed, formedGroup{
				index:    len(result.NewGroups) - 1,
				students: bucket,
			})
			seq++
		}
		for _, stu := range leftover {
			result.StudentIssues = append(result.StudentIssues, types.StudentIssue{
				StudentID: stu.ID,
				Reason:    "insufficient pool",
			})
		}
	}
	return formed
}

// bucketByRole deals one major's pool into buckets of at most MaxSize,
// interleaving the frontend/backend/other queues so every bucket gets a
// balanced role mix. A final bucket short of MinSize grows by taking
// members back from buckets that can spare them; if it still cannot reach
// MinSize its students are returned as leftovers.
func bucketByRole(pool []types.Student, policy types.SizePolicy) ([][]types.Student, []types.Student) {
	if len(pool) == 0 {
		return nil, nil
	}

	// Stable id order inside each role queue keeps runs reproducible.
	sorted := make([]types.Student, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.String() < sorted[j].ID.String() })

	var queues [3][]types.Student
	for _, stu := range sorted {
		switch stu.Profile().PrimaryRole {
		case profile.RoleFrontend:
			queues[0] = append(queues[0], stu)
		case profile.RoleBackend:
			queues[1] = append(queues[1], stu)
		default:
			queues[2] = append(queues[2], stu)
		}
	}

	order := make([]types.Student, 0, len(sorted))
	for len(order) < len(sorted) {
		for q := range queues {
			if len(queues[q]) > 0 {
				order = append(order, queues[q][0])
				queues[q] = queues[q][1:]
			}
		}
	}

	var buckets [][]types.Student
	for start := 0; start < len(order); start += policy.MaxSize {
		end := min(start+policy.MaxSize, len(order))
		buckets = append(buckets, order[start:end])
	}

	last := len(buckets) - 1
	if len(buckets[last]) >= policy.MinSize {
		return buckets, nil
	}

	// Donate only when the short bucket can actually reach MinSize;
	// otherwise shrinking valid buckets just grows the leftover.
	short := buckets[last]
	spare := 0
	for i := 0; i < last; i++ {
		spare += len(buckets[i]) - policy.MinSize
	}
	if len(short)+spare < policy.MinSize {
		return buckets[:last], short
	}

	for i := 0; i < last && len(short) < policy.MinSize; i++ {
		for len(buckets[i]) > policy.MinSize && len(short) < policy.MinSize {
			donor := buckets[i]
			short = append(short, donor[len(donor)-1])
			buckets[i] = donor[:len(donor)-1]
		}
	}
	buckets[last] = short
	return buckets, nil
}
