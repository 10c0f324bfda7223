package wishlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type memPersister struct {
	snap  Snapshot
	saves int
}

func (m *memPersister) Load(ctx context.Context) (Snapshot, error) {
	return m.snap, nil
}

func (m *memPersister) Save(ctx context.Context, snap Snapshot) error {
	m.saves++
	m.snap = snap
	return nil
}

func newTestStore(t *testing.T) (*Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	s, err := NewStore(context.Background(), p)
	assert.NoError(t, err)
	return s, p
}

func TestAdd_DuplicateReported(t *testing.T) {
	s, p := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, Entry{ProductID: 1, Name: "A"}))
	assert.ErrorIs(t, s.Add(ctx, Entry{ProductID: 1, Name: "A"}), ErrAlreadyExists)

	assert.Len(t, s.Entries(), 1)
	assert.Equal(t, 1, p.saves)
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	s, p := newTestStore(t)

	assert.NoError(t, s.Remove(context.Background(), 42))
	assert.Zero(t, p.saves)
}

func TestToggle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	e := Entry{ProductID: 1, Name: "A"}

	added, err := s.Toggle(ctx, e)
	assert.NoError(t, err)
	assert.True(t, added)
	assert.True(t, s.Contains(1))

	added, err = s.Toggle(ctx, e)
	assert.NoError(t, err)
	assert.False(t, added)
	assert.False(t, s.Contains(1))
}

func TestCleanup(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, Entry{ProductID: 1}))
	assert.NoError(t, s.Add(ctx, Entry{ProductID: 2}))
	assert.NoError(t, s.Add(ctx, Entry{ProductID: 3}))

	//カタログに残っているのは1と3だけ → 2が消える
	changed, err := s.Cleanup(ctx, []int64{1, 3})
	assert.NoError(t, err)
	assert.True(t, changed)

	entries := s.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ProductID)
	assert.Equal(t, int64(3), entries[1].ProductID)

	//同じ集合でもう一度呼んでも変化なし
	changed, err = s.Cleanup(ctx, []int64{1, 3})
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestOnChange(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var fired int
	s.OnChange(func() { fired++ })

	assert.NoError(t, s.Add(ctx, Entry{ProductID: 1}))
	_, _ = s.Toggle(ctx, Entry{ProductID: 1})
	assert.Equal(t, 2, fired)
}

func TestRehydrate(t *testing.T) {
	p := &memPersister{snap: Snapshot{Entries: []Entry{{ProductID: 7, Name: "saved"}}}}

	s, err := NewStore(context.Background(), p)
	assert.NoError(t, err)
	assert.True(t, s.Contains(7))
}
