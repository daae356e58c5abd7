package cloud

import (
	"context"
	"testing"

	"github.com/snipvault/snipvault/internal/snippets"
)

func linked(id int64, identity string, revision int) *snippets.Snippet {
	return &snippets.Snippet{
		ID:       id,
		Name:     "snippet",
		Scope:    snippets.ScopeGlobal,
		CloudID:  &identity,
		Revision: revision,
	}
}

func TestLinksRebuild(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets: []Snippet{
			{ID: 42, Name: "remote", Revision: 3},
			{ID: 77, Name: "other", Revision: 1},
		},
		CloudIDRev: map[int64]int{42: 3, 77: 1},
		TotalPages: 1,
		Total:      2,
	})

	store := newFakeStore()
	store.Save(context.Background(), linked(0, "42_1", 2))
	store.Save(context.Background(), linked(0, "99_0", 1))
	store.Save(context.Background(), &snippets.Snippet{Name: "local only", Scope: snippets.ScopeGlobal})

	svc := newTestService(store, &fakeSettings{stored: Settings{CloudToken: "t", LocalToken: "l", TokenVerified: true}}, server.server.URL+"/")

	links, err := svc.Links(context.Background())
	if err != nil {
		t.Fatalf("links error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}

	first := links[0]
	if first.CloudID != 42 || !first.IsOwner || !first.InCodevault {
		t.Fatalf("unexpected first link: %+v", first)
	}
	if !first.UpdateAvailable {
		t.Fatal("local revision 2 behind remote 3 should report an update")
	}

	second := links[1]
	if second.CloudID != 99 || second.IsOwner {
		t.Fatalf("unexpected second link: %+v", second)
	}
	if second.InCodevault || second.UpdateAvailable {
		t.Fatal("a snippet absent from the cached page is outside the codevault and never updatable")
	}
}

func TestLinksIdempotentWithoutRemoteRefetch(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets:   []Snippet{{ID: 42, Revision: 1}},
		CloudIDRev: map[int64]int{42: 1},
		TotalPages: 1,
		Total:      1,
	})

	store := newFakeStore()
	store.Save(context.Background(), linked(0, "42_1", 1))

	svc := newTestService(store, &fakeSettings{stored: Settings{CloudToken: "t", TokenVerified: true}}, server.server.URL+"/")

	ctx := context.Background()
	first, err := svc.Links(ctx)
	if err != nil {
		t.Fatalf("first links call: %v", err)
	}
	fetches := server.requests.Load()

	second, err := svc.Links(ctx)
	if err != nil {
		t.Fatalf("second links call: %v", err)
	}
	if server.requests.Load() != fetches {
		t.Fatal("second links call should not hit the remote API")
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Fatalf("links changed between calls: %+v vs %+v", first, second)
	}
}

func TestInvalidationDropsPersistedMap(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets:   []Snippet{{ID: 42, Revision: 1}},
		CloudIDRev: map[int64]int{42: 1},
		TotalPages: 1,
		Total:      1,
	})

	store := newFakeStore()
	store.Save(context.Background(), linked(0, "42_0", 1))

	svc := newTestService(store, &fakeSettings{stored: Settings{CloudToken: "t", TokenVerified: true}}, server.server.URL+"/")

	ctx := context.Background()
	if _, err := svc.Links(ctx); err != nil {
		t.Fatalf("links: %v", err)
	}

	svc.InvalidateCaches(ctx)

	if _, ok, _ := svc.cache.Get(ctx, linkMapCacheKey); ok {
		t.Fatal("link map cache entry should be deleted, not just stale")
	}
	if _, ok, _ := svc.cache.Get(ctx, codevaultCacheKey); ok {
		t.Fatal("codevault cache entry should be deleted")
	}

	// The next read rebuilds, which needs a fresh remote fetch.
	before := server.requests.Load()
	if _, err := svc.Links(ctx); err != nil {
		t.Fatalf("links after invalidation: %v", err)
	}
	if server.requests.Load() == before {
		t.Fatal("rebuild after invalidation should hit the remote API")
	}
}

func TestFindLink(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets:   []Snippet{{ID: 42, Revision: 1}},
		CloudIDRev: map[int64]int{42: 1},
		TotalPages: 1,
		Total:      1,
	})

	store := newFakeStore()
	store.Save(context.Background(), linked(0, "42_1", 1))

	svc := newTestService(store, &fakeSettings{stored: Settings{CloudToken: "t", TokenVerified: true}}, server.server.URL+"/")
	ctx := context.Background()

	byLocal, err := svc.FindLinkByLocalID(ctx, 1)
	if err != nil || byLocal == nil {
		t.Fatalf("find by local id: link=%v err=%v", byLocal, err)
	}
	if byLocal.CloudID != 42 {
		t.Fatalf("unexpected cloud id %d", byLocal.CloudID)
	}

	byCloud, err := svc.FindLinkByCloudID(ctx, 42)
	if err != nil || byCloud == nil {
		t.Fatalf("find by cloud id: link=%v err=%v", byCloud, err)
	}
	if byCloud.LocalID != 1 {
		t.Fatalf("unexpected local id %d", byCloud.LocalID)
	}

	missing, err := svc.FindLinkByLocalID(ctx, 999)
	if err != nil || missing != nil {
		t.Fatalf("expected nil link for unknown id, got %v err=%v", missing, err)
	}
}

func TestCodevaultPageMismatchIsMiss(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets:   []Snippet{{ID: 1, Revision: 1}},
		CloudIDRev: map[int64]int{1: 1},
		TotalPages: 3,
		Total:      30,
	})

	svc := newTestService(newFakeStore(), &fakeSettings{stored: Settings{CloudToken: "t", TokenVerified: true}}, server.server.URL+"/")
	ctx := context.Background()

	if _, err := svc.CodevaultSnippets(ctx, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	fetches := server.requests.Load()

	if _, err := svc.CodevaultSnippets(ctx, 1); err != nil {
		t.Fatalf("page 1 again: %v", err)
	}
	if server.requests.Load() != fetches {
		t.Fatal("same page should be a cache hit")
	}

	if _, err := svc.CodevaultSnippets(ctx, 2); err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if server.requests.Load() == fetches {
		t.Fatal("different page index must be treated as a miss")
	}
}
