package wishlist

import (
	"context"
	"errors"
)

// ウィッシュリストに保存する商品スナップショット。
// 同一性はProductIDのみ（バリアントは区別しない）。
type Entry struct {
	ProductID       int64  `json:"product_id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DiscountPercent int64  `json:"discount_percent"`
}

type Snapshot struct {
	Entries []Entry `json:"entries"`
}

type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// すでに同じ商品が入っている。
var ErrAlreadyExists = errors.New("already in wishlist")

// カートStoreの軽量版。追加順を保った商品集合を丸ごと永続化する。
type Store struct {
	persister Persister
	entries   []Entry
	listeners []func()
}

func NewStore(ctx context.Context, p Persister) (*Store, error) {
	snap, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Store{persister: p, entries: snap.Entries}, nil
}

func (s *Store) OnChange(fn func()) {
	s.listeners = append(s.listeners, fn)
}

func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Contains(productID int64) bool {
	return s.indexOf(productID) >= 0
}

// 追加。登録済みならErrAlreadyExists（状態は変えない）。
func (s *Store) Add(ctx context.Context, e Entry) error {
	if s.indexOf(e.ProductID) >= 0 {
		return ErrAlreadyExists
	}

	next := s.cloneEntries()
	next = append(next, e)
	return s.commit(ctx, next)
}

// 削除。無ければ何もしない。
func (s *Store) Remove(ctx context.Context, productID int64) error {
	i := s.indexOf(productID)
	if i < 0 {
		return nil
	}

	next := s.cloneEntries()
	next = append(next[:i], next[i+1:]...)
	return s.commit(ctx, next)
}

// 無ければ追加、あれば削除。追加したかどうかを返す。
func (s *Store) Toggle(ctx context.Context, e Entry) (bool, error) {
	if s.indexOf(e.ProductID) >= 0 {
		return false, s.Remove(ctx, e.ProductID)
	}
	return true, s.Add(ctx, e)
}

// カタログ側で消えた商品を取り除く。existingIDsが正のID集合。
// 変更があったかどうかを返す（2回目は必ずfalse）。
func (s *Store) Cleanup(ctx context.Context, existingIDs []int64) (bool, error) {
	valid := make(map[int64]bool, len(existingIDs))
	for _, id := range existingIDs {
		valid[id] = true
	}

	next := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if valid[e.ProductID] {
			next = append(next, e)
		}
	}

	if len(next) == len(s.entries) {
		return false, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) commit(ctx context.Context, next []Entry) error {
	if err := s.persister.Save(ctx, Snapshot{Entries: next}); err != nil {
		return err
	}
	s.entries = next
	for _, fn := range s.listeners {
		fn()
	}
	return nil
}

func (s *Store) cloneEntries() []Entry {
	next := make([]Entry, len(s.entries))
	copy(next, s.entries)
	return next
}

func (s *Store) indexOf(productID int64) int {
	for i, e := range s.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}
