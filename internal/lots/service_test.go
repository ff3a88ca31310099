package lots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfline/shelfline/internal/shared"
)

type annotation struct {
	itemID  int64
	channel string
	note    string
}

type memoryRepo struct {
	members     map[int64]*Member
	annotations []annotation
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(seed ...Member) *memoryRepo {
	repo := &memoryRepo{members: make(map[int64]*Member)}
	for i := range seed {
		m := seed[i]
		repo.members[m.ItemID] = &m
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Members(ctx context.Context, lotNumber int64) ([]Member, error) {
	var out []Member
	for _, m := range r.members {
		if m.LotNumber == lotNumber {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memoryRepo) LotNumbers(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	for _, m := range r.members {
		if m.LotNumber != 0 && !seen[m.LotNumber] {
			seen[m.LotNumber] = true
			out = append(out, m.LotNumber)
		}
	}
	return out, nil
}

func (tx *memoryTx) MembersForUpdate(ctx context.Context, lotNumber int64) ([]Member, error) {
	return tx.repo.Members(ctx, lotNumber)
}

func (tx *memoryTx) ItemsForUpdate(ctx context.Context, ids []int64) ([]Member, error) {
	var out []Member
	for _, id := range ids {
		if m, ok := tx.repo.members[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (tx *memoryTx) SetLotNumber(ctx context.Context, itemID, lotNumber int64) error {
	tx.repo.members[itemID].LotNumber = lotNumber
	return nil
}

func (tx *memoryTx) ClearLotNumber(ctx context.Context, itemID int64) error {
	tx.repo.members[itemID].LotNumber = 0
	return nil
}

func (tx *memoryTx) InsertAnnotation(ctx context.Context, itemID int64, status, channel, note string, at time.Time) error {
	tx.repo.annotations = append(tx.repo.annotations, annotation{itemID: itemID, channel: channel, note: note})
	return nil
}

func (tx *memoryTx) CountMembers(ctx context.Context, lotNumber int64) (int, error) {
	count := 0
	for _, m := range tx.repo.members {
		if m.LotNumber == lotNumber {
			count++
		}
	}
	return count, nil
}

func fixedClock(t time.Time) shared.Clock {
	return func() time.Time { return t }
}

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, nil, nil, fixedClock(testNow))
}

func TestCreate(t *testing.T) {
	repo := newMemoryRepo(
		Member{ItemID: 1, Status: "STORED"},
		Member{ItemID: 2, Status: "INTAKE"},
	)
	svc := newTestService(repo)
	ctx := context.Background()

	members, err := svc.Create(ctx, 42, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.EqualValues(t, 42, repo.members[1].LotNumber)
	require.EqualValues(t, 42, repo.members[2].LotNumber)

	require.Len(t, repo.annotations, 2)
	require.Equal(t, ChannelCreation, repo.annotations[0].channel)
	require.Contains(t, repo.annotations[0].note, "added to lot 42")
}

func TestCreateAllOrNothing(t *testing.T) {
	repo := newMemoryRepo(
		Member{ItemID: 1, Status: "STORED"},
		Member{ItemID: 2, Status: "STORED", LotNumber: 9},
	)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, 42, []int64{1, 2})
	require.ErrorIs(t, err, shared.ErrConflict)
	// nothing was stamped
	require.EqualValues(t, 0, repo.members[1].LotNumber)
	require.EqualValues(t, 9, repo.members[2].LotNumber)
	require.Empty(t, repo.annotations)
}

func TestCreateRejectsExistingLot(t *testing.T) {
	repo := newMemoryRepo(
		Member{ItemID: 1, Status: "STORED", LotNumber: 42},
		Member{ItemID: 2, Status: "STORED"},
	)
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), 42, []int64{2})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateMissingItem(t *testing.T) {
	repo := newMemoryRepo(Member{ItemID: 1, Status: "STORED"})
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), 42, []int64{1, 99})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.EqualValues(t, 0, repo.members[1].LotNumber)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), 0, []int64{1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), 42, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDissolve(t *testing.T) {
	repo := newMemoryRepo(
		Member{ItemID: 1, Status: "STORED", LotNumber: 7},
		Member{ItemID: 2, Status: "LISTED", LotNumber: 7},
		Member{ItemID: 3, Status: "STORED", LotNumber: 8},
	)
	svc := newTestService(repo)

	released, err := svc.Dissolve(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 2, released)
	require.EqualValues(t, 0, repo.members[1].LotNumber)
	require.EqualValues(t, 0, repo.members[2].LotNumber)
	require.EqualValues(t, 8, repo.members[3].LotNumber)

	require.Len(t, repo.annotations, 2)
	require.Equal(t, ChannelDeletion, repo.annotations[0].channel)
}

func TestDissolveUnknownLot(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Dissolve(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveMember(t *testing.T) {
	repo := newMemoryRepo(
		Member{ItemID: 1, Status: "STORED", LotNumber: 7},
		Member{ItemID: 2, Status: "STORED", LotNumber: 7},
	)
	svc := newTestService(repo)

	result, err := svc.RemoveMember(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.Remaining)
	require.False(t, result.Empty)

	result, err = svc.RemoveMember(context.Background(), 7, 2)
	require.NoError(t, err)
	require.Equal(t, 0, result.Remaining)
	require.True(t, result.Empty)
}

func TestRemoveMemberWrongLot(t *testing.T) {
	repo := newMemoryRepo(Member{ItemID: 1, Status: "STORED", LotNumber: 7})
	svc := newTestService(repo)

	_, err := svc.RemoveMember(context.Background(), 8, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.EqualValues(t, 7, repo.members[1].LotNumber)

	_, err = svc.RemoveMember(context.Background(), 7, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMembersUnknownLot(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Members(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
