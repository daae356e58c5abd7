package snippets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snipvault/snipvault/internal/apperrors"
	"github.com/snipvault/snipvault/internal/cache"
)

type storeStub struct {
	saveFn         func(ctx context.Context, s *Snippet) error
	getFn          func(ctx context.Context, id int64) (*Snippet, error)
	getByCloudFn   func(ctx context.Context, cloudID string) (*Snippet, error)
	listFn         func(ctx context.Context) ([]*Snippet, error)
	updateFieldsFn func(ctx context.Context, id int64, f Fields) error
	deleteFn       func(ctx context.Context, id int64) error
}

func (s *storeStub) Save(ctx context.Context, sn *Snippet) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, sn)
	}
	return nil
}

func (s *storeStub) GetByID(ctx context.Context, id int64) (*Snippet, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (s *storeStub) GetByCloudID(ctx context.Context, cloudID string) (*Snippet, error) {
	if s.getByCloudFn != nil {
		return s.getByCloudFn(ctx, cloudID)
	}
	return nil, ErrNotFound
}

func (s *storeStub) List(ctx context.Context) ([]*Snippet, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *storeStub) UpdateFields(ctx context.Context, id int64, f Fields) error {
	if s.updateFieldsFn != nil {
		return s.updateFieldsFn(ctx, id, f)
	}
	return nil
}

func (s *storeStub) Delete(ctx context.Context, id int64) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, appErr.Kind)
	}
}

func TestServiceCreateDefaults(t *testing.T) {
	store := &storeStub{}
	svc := &Service{Store: store}

	var got *Snippet
	store.saveFn = func(ctx context.Context, sn *Snippet) error {
		got = sn
		sn.ID = 1
		return nil
	}

	snippet, err := svc.Create(context.Background(), CreateSnippetRequest{
		Name: "  hello  ",
		Code: "echo 'hi';",
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if got == nil {
		t.Fatal("snippet not persisted")
	}
	if snippet.Name != "hello" {
		t.Fatalf("expected trimmed name, got %q", snippet.Name)
	}
	if snippet.Scope != ScopeGlobal {
		t.Fatalf("expected default scope, got %s", snippet.Scope)
	}
	if snippet.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", snippet.Revision)
	}
}

func TestServiceCreateInvalidScope(t *testing.T) {
	svc := &Service{Store: &storeStub{}}

	_, err := svc.Create(context.Background(), CreateSnippetRequest{
		Name:  "a",
		Code:  "b",
		Scope: Scope("everywhere"),
	})
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestServiceGetByIDNotFound(t *testing.T) {
	svc := &Service{Store: &storeStub{}}

	_, err := svc.GetByID(context.Background(), 99)
	assertKind(t, err, apperrors.KindNotFound)
}

func TestServiceGetByIDCaches(t *testing.T) {
	calls := 0
	store := &storeStub{
		getFn: func(ctx context.Context, id int64) (*Snippet, error) {
			calls++
			return &Snippet{ID: id, Name: "cached", Revision: 3}, nil
		},
	}
	svc := &Service{Store: store, Cache: cache.NewMemoryStore(), CacheTTL: time.Minute}

	for i := 0; i < 2; i++ {
		snippet, err := svc.GetByID(context.Background(), 7)
		if err != nil {
			t.Fatalf("get error: %v", err)
		}
		if snippet.Name != "cached" || snippet.Revision != 3 {
			t.Fatalf("unexpected snippet: %+v", snippet)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one store read, got %d", calls)
	}
}

func TestServiceUpdateBumpsRevisionAndInvalidates(t *testing.T) {
	store := &storeStub{
		getFn: func(ctx context.Context, id int64) (*Snippet, error) {
			return &Snippet{ID: id, Name: "old", Scope: ScopeGlobal, Revision: 2}, nil
		},
	}
	mem := cache.NewMemoryStore()
	_ = mem.Set(context.Background(), cacheKey(5), []byte(`{}`), time.Minute)

	svc := &Service{Store: store, Cache: mem, CacheTTL: time.Minute}
	updated, err := svc.Update(context.Background(), 5, CreateSnippetRequest{
		Name: "new",
		Code: "echo 'new';",
	})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.Revision != 3 {
		t.Fatalf("expected revision bump to 3, got %d", updated.Revision)
	}
	if _, ok, _ := mem.Get(context.Background(), cacheKey(5)); ok {
		t.Fatal("expected cache entry to be dropped")
	}
}

func TestServiceDeleteNotFound(t *testing.T) {
	store := &storeStub{
		deleteFn: func(ctx context.Context, id int64) error { return ErrNotFound },
	}
	svc := &Service{Store: store}

	assertKind(t, svc.Delete(context.Background(), 3), apperrors.KindNotFound)
}
