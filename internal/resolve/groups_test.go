package resolve

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamforge/engine/internal/types"
)

func roleStudent(n int, role string) types.Student {
	return types.Student{
		ID:          uuid.MustParse(fmt.Sprintf("44444444-4444-4444-4444-%012d", n)),
		MajorID:     majorID,
		ProfileJSON: fmt.Sprintf(`{"primary_role": %q, "skill_tags": ["go"]}`, role),
	}
}

func TestBucketByRole_EmptyPool(t *testing.T) {
	buckets, leftover := bucketByRole(nil, types.SizePolicy{MinSize: 3, MaxSize: 5})
	assert.Empty(t, buckets)
	assert.Empty(t, leftover)
}

func TestBucketByRole_PoolBelowMinSize(t *testing.T) {
	pool := []types.Student{roleStudent(1, "backend"), roleStudent(2, "frontend")}

	buckets, leftover := bucketByRole(pool, types.SizePolicy{MinSize: 3, MaxSize: 5})

	assert.Empty(t, buckets)
	assert.Len(t, leftover, 2)
}

func TestBucketByRole_ExactMaxSize(t *testing.T) {
	pool := []types.Student{
		roleStudent(1, "backend"),
		roleStudent(2, "frontend"),
		roleStudent(3, "backend"),
	}

	buckets, leftover := bucketByRole(pool, types.SizePolicy{MinSize: 2, MaxSize: 3})

	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0], 3)
	assert.Empty(t, leftover)
}

func TestBucketByRole_BalancesRolesAcrossBuckets(t *testing.T) {
	pool := []types.Student{
		roleStudent(1, "frontend"),
		roleStudent(2, "frontend"),
		roleStudent(3, "backend"),
		roleStudent(4, "backend"),
		roleStudent(5, "other"),
		roleStudent(6, "other"),
	}

	buckets, leftover := bucketByRole(pool, types.SizePolicy{MinSize: 3, MaxSize: 3})

	require.Len(t, buckets, 2)
	assert.Empty(t, leftover)

	// Round-robin dealing puts one of each role into every bucket.
	for _, bucket := range buckets {
		roles := make(map[string]int)
		for _, stu := range bucket {
			roles[stu.Profile().PrimaryRole.String()]++
		}
		assert.Equal(t, map[string]int{"frontend": 1, "backend": 1, "other": 1}, roles)
	}
}

func TestBucketByRole_GrowsShortFinalBucket(t *testing.T) {
	pool := make([]types.Student, 0, 6)
	for i := 1; i <= 6; i++ {
		pool = append(pool, roleStudent(i, "backend"))
	}

	// 6 students, max 4: a naive split gives 4+2, but 2 is under MinSize.
	buckets, leftover := bucketByRole(pool, types.SizePolicy{MinSize: 3, MaxSize: 4})

	require.Len(t, buckets, 2)
	assert.Empty(t, leftover)
	assert.Len(t, buckets[0], 3)
	assert.Len(t, buckets[1], 3)
}

func TestBucketByRole_KeepsValidBucketsWhenShortCannotGrow(t *testing.T) {
	pool := make([]types.Student, 0, 5)
	for i := 1; i <= 5; i++ {
		pool = append(pool, roleStudent(i, "backend"))
	}

	// 5 students, min 3 max 4: only one valid group fits; shrinking it to
	// feed the remainder would still leave the remainder under MinSize.
	buckets, leftover := bucketByRole(pool, types.SizePolicy{MinSize: 3, MaxSize: 4})

	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0], 4)
	assert.Len(t, leftover, 1)
}

func TestBucketByRole_NoStudentDuplicatedOrDropped(t *testing.T) {
	pool := make([]types.Student, 0, 11)
	for i := 1; i <= 11; i++ {
		role := []string{"frontend", "backend", "other"}[i%3]
		pool = append(pool, roleStudent(i, role))
	}

	buckets, leftover := bucketByRole(pool, types.SizePolicy{MinSize: 3, MaxSize: 4})

	seen := make(map[uuid.UUID]int)
	total := 0
	for _, bucket := range buckets {
		for _, stu := range bucket {
			seen[stu.ID]++
			total++
		}
	}
	for _, stu := range leftover {
		seen[stu.ID]++
		total++
	}

	assert.Equal(t, len(pool), total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "student %s appears %d times", id, count)
	}
}
