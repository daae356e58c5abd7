package cloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snipvault/snipvault/internal/snippets"
)

func verifiedSettings() *fakeSettings {
	return &fakeSettings{stored: Settings{CloudToken: "t", LocalToken: "l", TokenVerified: true}}
}

func TestDownloadThenUnsyncRoundTrip(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets:   []Snippet{},
		CloudIDRev: map[int64]int{},
		TotalPages: 1,
	})

	store := newFakeStore()
	svc := newTestService(store, verifiedSettings(), server.server.URL+"/")
	ctx := context.Background()

	remote := &Snippet{
		ID:       42,
		Name:     "remote snippet",
		Code:     "echo 'hi';",
		Scope:    "global",
		Revision: 5,
		IsOwner:  true,
	}

	result := svc.DownloadSnippetFromCloud(ctx, remote, true)
	if !result.Success {
		t.Fatalf("download failed: %s", result.Error)
	}
	if result.Action != "Single Downloaded" {
		t.Fatalf("unexpected action %q", result.Action)
	}
	if result.LinkID != 42 {
		t.Fatalf("unexpected link id %d", result.LinkID)
	}

	local, err := store.GetByID(ctx, result.SnippetID)
	if err != nil {
		t.Fatalf("downloaded snippet not stored: %v", err)
	}
	if local.CloudID == nil || *local.CloudID != "42_1" {
		t.Fatalf("unexpected stored identity %v", local.CloudID)
	}
	if local.Active {
		t.Fatal("downloaded snippets must start inactive")
	}
	if local.Revision != 5 {
		t.Fatalf("unexpected revision %d", local.Revision)
	}

	link, err := svc.FindLinkByLocalID(ctx, result.SnippetID)
	if err != nil || link == nil {
		t.Fatalf("link not registered: link=%v err=%v", link, err)
	}
	if link.CloudID != 42 || !link.IsOwner || !link.InCodevault || link.UpdateAvailable {
		t.Fatalf("unexpected link %+v", link)
	}

	unsync := svc.RemoveSnippetsFromCloud(ctx, []int64{result.SnippetID})
	if !unsync.Success {
		t.Fatalf("unsync failed: %s", unsync.Error)
	}

	local, err = store.GetByID(ctx, result.SnippetID)
	if err != nil {
		t.Fatalf("snippet deleted by unsync: %v", err)
	}
	if local.CloudID != nil {
		t.Fatalf("cloud id should be cleared, got %q", *local.CloudID)
	}

	gone, err := svc.FindLinkByLocalID(ctx, result.SnippetID)
	if err != nil {
		t.Fatalf("find after unsync: %v", err)
	}
	if gone != nil {
		t.Fatalf("link should be removed, got %+v", gone)
	}
}

func TestBulkDownloadAsymmetry(t *testing.T) {
	server := newCloudServer(t, SnippetPage{CloudIDRev: map[int64]int{}})

	store := newFakeStore()
	svc := newTestService(store, verifiedSettings(), server.server.URL+"/")
	ctx := context.Background()

	one := svc.StoreSnippetsFromCloudToLocal(ctx, []Snippet{{ID: 1, Name: "a", Scope: "global"}}, false)
	if !one.Success || one.Action != "Single Downloaded" {
		t.Fatalf("single-item batch must return the per-item shape, got %+v", one)
	}
	if one.SnippetID == 0 || one.LinkID != 1 {
		t.Fatalf("single-item result should carry ids, got %+v", one)
	}

	many := svc.StoreSnippetsFromCloudToLocal(ctx, []Snippet{
		{ID: 2, Name: "b", Scope: "global"},
		{ID: 3, Name: "c", Scope: "global"},
	}, false)
	if !many.Success || many.Action != "Downloaded" {
		t.Fatalf("multi-item batch must return the aggregate shape, got %+v", many)
	}
	if many.SnippetID != 0 || many.LinkID != 0 {
		t.Fatalf("aggregate result must not carry per-item ids, got %+v", many)
	}

	none := svc.StoreSnippetsFromCloudToLocal(ctx, nil, false)
	if none.Success {
		t.Fatalf("empty batch should fail, got %+v", none)
	}
}

func TestUpdatePullPreservesLocalMetadata(t *testing.T) {
	server := newCloudServer(t, SnippetPage{CloudIDRev: map[int64]int{}})

	store := newFakeStore()
	identity := "42_1"
	store.Save(context.Background(), &snippets.Snippet{
		Name:     "my local name",
		Desc:     "my local description",
		Code:     "old code",
		Scope:    snippets.ScopeGlobal,
		Active:   true,
		CloudID:  &identity,
		Revision: 1,
	})

	svc := newTestService(store, verifiedSettings(), server.server.URL+"/")
	ctx := context.Background()

	result := svc.UpdateSnippetFromCloud(ctx, &Snippet{
		ID:       42,
		Name:     "remote name",
		Code:     "new code",
		Revision: 7,
		IsOwner:  true,
	})
	if !result.Success || result.Action != "Updated" {
		t.Fatalf("update failed: %+v", result)
	}

	local, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("get updated snippet: %v", err)
	}
	if local.Name != "my local name" {
		t.Fatalf("pull must not overwrite the local name, got %q", local.Name)
	}
	if local.Desc != "my local description" {
		t.Fatalf("pull must not overwrite the local description, got %q", local.Desc)
	}
	if local.Code != "new code" {
		t.Fatalf("code not updated, got %q", local.Code)
	}
	if local.Active {
		t.Fatal("pulled snippets must be deactivated")
	}
	if local.Revision != 7 {
		t.Fatalf("revision not updated, got %d", local.Revision)
	}
}

func TestUpdatePullUnknownIdentity(t *testing.T) {
	server := newCloudServer(t, SnippetPage{CloudIDRev: map[int64]int{}})
	svc := newTestService(newFakeStore(), verifiedSettings(), server.server.URL+"/")

	result := svc.UpdateSnippetFromCloud(context.Background(), &Snippet{ID: 999})
	if result.Success {
		t.Fatalf("expected typed failure, got %+v", result)
	}
	if result.Error == "" {
		t.Fatal("failure result must carry a message")
	}
}

func TestDownloadOrUpdateInvalidArguments(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets:   []Snippet{{ID: 42, Name: "remote", Scope: "global", Revision: 1}},
		CloudIDRev: map[int64]int{42: 1},
		TotalPages: 1,
	})
	svc := newTestService(newFakeStore(), verifiedSettings(), server.server.URL+"/")
	ctx := context.Background()

	badSource := svc.DownloadOrUpdateSnippet(ctx, 42, "marketplace", "download", 1)
	if badSource.Success || badSource.Error != "Invalid source." {
		t.Fatalf("unexpected result for bad source: %+v", badSource)
	}

	badAction := svc.DownloadOrUpdateSnippet(ctx, 42, "codevault", "reinstall", 1)
	if badAction.Success || badAction.Error != "Invalid action." {
		t.Fatalf("unexpected result for bad action: %+v", badAction)
	}
}

func TestDownloadOrUpdateFromCodevault(t *testing.T) {
	server := newCloudServer(t, SnippetPage{
		Snippets:   []Snippet{{ID: 42, Name: "remote", Code: "x", Scope: "global", Revision: 1, IsOwner: true}},
		CloudIDRev: map[int64]int{42: 1},
		TotalPages: 1,
	})

	store := newFakeStore()
	svc := newTestService(store, verifiedSettings(), server.server.URL+"/")

	result := svc.DownloadOrUpdateSnippet(context.Background(), 42, "codevault", "download", 1)
	if !result.Success || result.Action != "Single Downloaded" {
		t.Fatalf("download via codevault failed: %+v", result)
	}

	local, err := store.GetByID(context.Background(), result.SnippetID)
	if err != nil {
		t.Fatalf("snippet not stored: %v", err)
	}
	if local.CloudID == nil || *local.CloudID != "42_1" {
		t.Fatalf("unexpected identity %v", local.CloudID)
	}
}

func TestStoreSnippetsInCloud(t *testing.T) {
	var uploadedDesc string
	mux := http.NewServeMux()
	mux.HandleFunc("/private/storesnippet", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		uploadedDesc = r.PostFormValue("desc")
		writeJSON(t, w, map[string]any{"cloud_id": 77, "revision": 2})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	store := newFakeStore()
	store.Save(context.Background(), &snippets.Snippet{
		Name:     "local",
		Desc:     "<b>tagged</b> description",
		Code:     "echo 1;",
		Scope:    snippets.ScopeGlobal,
		Revision: 1,
	})

	svc := newTestService(store, verifiedSettings(), server.URL+"/")

	result := svc.StoreSnippetsInCloud(context.Background(), []int64{1})
	if !result.Success {
		t.Fatalf("upload failed: %+v", result)
	}
	if uploadedDesc != "tagged description" {
		t.Fatalf("description not stripped before upload, got %q", uploadedDesc)
	}

	local, err := store.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("get after upload: %v", err)
	}
	// The remote id is stored verbatim, no ownership suffix.
	if local.CloudID == nil || *local.CloudID != "77" {
		t.Fatalf("unexpected stored cloud id %v", local.CloudID)
	}
	if local.Revision != 2 {
		t.Fatalf("revision not updated, got %d", local.Revision)
	}
}

func TestStripTags(t *testing.T) {
	cases := map[string]string{
		"plain text":                "plain text",
		"<b>bold</b> move":          "bold move",
		"a <span class='x'>b</span>": "a b",
		"":                          "",
		"< unclosed":                "",
	}
	for in, want := range cases {
		if got := stripTags(in); got != want {
			t.Fatalf("stripTags(%q) = %q, want %q", in, got, want)
		}
	}
}
