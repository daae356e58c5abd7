package cloud

import (
	"context"
	"strings"

	"github.com/snipvault/snipvault/internal/snippets"
	"github.com/snipvault/snipvault/internal/telemetry"
)

// stripTags removes HTML markup from a snippet description before it
// is sent to the cloud side, which renders descriptions as plain text.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// StoreSnippetsInCloud uploads local snippets to the codevault. Each
// snippet is processed independently; one failure does not roll back
// earlier uploads. The returned result reflects the last failure, if
// any.
func (s *Service) StoreSnippetsInCloud(ctx context.Context, ids []int64) SyncResult {
	result := SyncResult{Success: true, Action: "Uploaded"}

	for _, id := range ids {
		local, err := s.store.GetByID(ctx, id)
		if err != nil {
			telemetry.LogWarn(ctx, "skipping upload of unknown snippet",
				telemetry.LogInt64("snippet_id", id),
				telemetry.LogString("error", err.Error()))
			result = syncFailure("snippet not found")
			continue
		}

		stored, cerr := s.client.StoreSnippet(ctx, StoreSnippetRequest{
			Name:     local.Name,
			Desc:     stripTags(local.Desc),
			Code:     local.Code,
			Scope:    string(local.Scope),
			Revision: local.Revision,
		})
		if cerr != nil {
			telemetry.LogWarn(ctx, "cloud upload failed",
				telemetry.LogInt64("snippet_id", id),
				telemetry.LogString("error", cerr.Error()))
			result = syncFailure(cerr.Message)
			continue
		}

		// The remote id is stored verbatim, without an ownership
		// suffix, matching what the cloud side echoes back later.
		cloudID := stored.CloudID.String()
		revision := stored.Revision
		fields := snippets.Fields{
			CloudID:    &cloudID,
			SetCloudID: true,
			Revision:   &revision,
		}
		if err := s.store.UpdateFields(ctx, id, fields); err != nil {
			telemetry.LogError(ctx, "failed to record cloud id after upload",
				telemetry.LogInt64("snippet_id", id),
				telemetry.LogString("error", err.Error()))
			result = syncFailure("failed to record cloud id")
			continue
		}

		s.InvalidateCaches(ctx)
	}
	return result
}

// UpdateSnippetsInCloud pushes new content for snippets that already
// live in the codevault. Failures are logged and skipped so a bad item
// cannot block the rest of the batch.
func (s *Service) UpdateSnippetsInCloud(ctx context.Context, ids []int64) SyncResult {
	for _, id := range ids {
		local, err := s.store.GetByID(ctx, id)
		if err != nil || local.CloudID == nil {
			telemetry.LogWarn(ctx, "skipping cloud update of unlinked snippet",
				telemetry.LogInt64("snippet_id", id))
			continue
		}

		cloudID, _ := DecodeIdentity(*local.CloudID)
		ok, cerr := s.client.UpdateSnippet(ctx, cloudID, UpdateSnippetRequest{
			Name:     local.Name,
			Desc:     local.Desc,
			Code:     local.Code,
			Revision: local.Revision,
			LocalID:  local.ID,
		})
		if cerr != nil {
			telemetry.LogWarn(ctx, "cloud update failed",
				telemetry.LogInt64("snippet_id", id),
				telemetry.LogString("error", cerr.Error()))
			continue
		}
		if ok {
			s.InvalidateCaches(ctx)
		}
	}
	return SyncResult{Success: true, Action: "Updated"}
}

// DownloadSnippetFromCloud saves a cloud snippet as a brand-new local
// snippet, inactive, linked through its encoded identity.
func (s *Service) DownloadSnippetFromCloud(ctx context.Context, remote *Snippet, inCodevault bool) SyncResult {
	identity := EncodeIdentity(remote.ID, remote.IsOwner)

	local := &snippets.Snippet{
		Name:     remote.Name,
		Desc:     remote.Description,
		Code:     remote.Code,
		Scope:    snippets.Scope(remote.Scope),
		Active:   false,
		CloudID:  &identity,
		Revision: remote.Revision,
	}
	if !local.Scope.Valid() {
		local.Scope = snippets.ScopeGlobal
	}

	if err := s.store.Save(ctx, local); err != nil {
		telemetry.LogError(ctx, "failed to save downloaded snippet",
			telemetry.LogInt64("cloud_id", remote.ID),
			telemetry.LogString("error", err.Error()))
		return syncFailure("failed to save downloaded snippet")
	}

	link := Link{
		LocalID:         local.ID,
		CloudID:         remote.ID,
		IsOwner:         remote.IsOwner,
		InCodevault:     inCodevault,
		UpdateAvailable: false,
	}
	if err := s.AddLink(ctx, link); err != nil {
		telemetry.LogWarn(ctx, "failed to record cloud link",
			telemetry.LogInt64("cloud_id", remote.ID),
			telemetry.LogString("error", err.Error()))
	}

	return SyncResult{
		Success:   true,
		Action:    "Single Downloaded",
		SnippetID: local.ID,
		LinkID:    link.CloudID,
	}
}

// StoreSnippetsFromCloudToLocal downloads a batch of cloud snippets.
// A single-item batch returns that item's own result; larger batches
// return only an aggregate. Callers branch on the two shapes, so the
// asymmetry is part of the contract.
func (s *Service) StoreSnippetsFromCloudToLocal(ctx context.Context, remotes []Snippet, inCodevault bool) SyncResult {
	if len(remotes) == 1 {
		return s.DownloadSnippetFromCloud(ctx, &remotes[0], inCodevault)
	}

	for i := range remotes {
		s.DownloadSnippetFromCloud(ctx, &remotes[i], inCodevault)
	}

	if len(remotes) > 1 {
		return SyncResult{Success: true, Action: "Downloaded"}
	}
	return syncFailure("There was a problem saving or no snippets found to download.")
}

// UpdateSnippetFromCloud pulls new content onto an already-linked
// local snippet. Only the code, active flag and revision change; the
// local name, description and scope are kept so local customisation
// survives a pull.
func (s *Service) UpdateSnippetFromCloud(ctx context.Context, remote *Snippet) SyncResult {
	identity := EncodeIdentity(remote.ID, remote.IsOwner)

	local, err := s.store.GetByCloudID(ctx, identity)
	if err != nil {
		telemetry.LogWarn(ctx, "no local snippet for cloud update",
			telemetry.LogString("cloud_identity", identity))
		return syncFailure("no local snippet linked to that cloud snippet")
	}

	active := false
	revision := remote.Revision
	fields := snippets.Fields{
		Code:     &remote.Code,
		Active:   &active,
		Revision: &revision,
	}
	if err := s.store.UpdateFields(ctx, local.ID, fields); err != nil {
		telemetry.LogError(ctx, "failed to apply cloud update",
			telemetry.LogInt64("snippet_id", local.ID),
			telemetry.LogString("error", err.Error()))
		return syncFailure("failed to apply cloud update")
	}

	s.InvalidateCaches(ctx)
	return SyncResult{Success: true, Action: "Updated"}
}

// RemoveSnippetsFromCloud unsyncs local snippets. The snippet records
// stay, locally and remotely; only the identity field and the link go.
func (s *Service) RemoveSnippetsFromCloud(ctx context.Context, ids []int64) SyncResult {
	for _, id := range ids {
		fields := snippets.Fields{SetCloudID: true, CloudID: nil}
		if err := s.store.UpdateFields(ctx, id, fields); err != nil {
			telemetry.LogWarn(ctx, "failed to clear cloud id",
				telemetry.LogInt64("snippet_id", id),
				telemetry.LogString("error", err.Error()))
			continue
		}
		if err := s.RemoveLinkByLocalID(ctx, id); err != nil {
			telemetry.LogWarn(ctx, "failed to remove cloud link",
				telemetry.LogInt64("snippet_id", id),
				telemetry.LogString("error", err.Error()))
		}
	}
	return SyncResult{Success: true, Action: "Unsynced"}
}

// DownloadOrUpdateSnippet resolves a cloud snippet from the codevault
// cache or a direct fetch, then downloads it as new or pulls it onto
// the linked local snippet. Before dispatching it reports the full set
// of synced cloud ids to the remote side; that call is best-effort and
// never affects the outcome.
func (s *Service) DownloadOrUpdateSnippet(ctx context.Context, cloudID int64, source, action string, page int) SyncResult {
	var (
		remote      *Snippet
		inCodevault bool
	)

	switch source {
	case "codevault":
		inCodevault = true
		pageData, err := s.CodevaultSnippets(ctx, page)
		if err != nil {
			return syncFailure("failed to fetch codevault snippets")
		}
		for i := range pageData.Snippets {
			if pageData.Snippets[i].ID == cloudID {
				remote = &pageData.Snippets[i]
				break
			}
		}
		if remote == nil {
			return syncFailure("snippet not found in codevault")
		}
	case "search":
		inCodevault = false
		fetched, cerr := s.client.GetSnippet(ctx, cloudID)
		if cerr != nil {
			return syncFailure(cerr.Message)
		}
		remote = fetched
	default:
		return syncFailure("Invalid source.")
	}

	s.reportSyncedList(ctx)

	switch action {
	case "download":
		return s.StoreSnippetsFromCloudToLocal(ctx, []Snippet{*remote}, inCodevault)
	case "update":
		return s.UpdateSnippetFromCloud(ctx, remote)
	default:
		return syncFailure("Invalid action.")
	}
}

// reportSyncedList posts the cloud ids currently linked on this site.
// Fire-and-forget telemetry for the remote side.
func (s *Service) reportSyncedList(ctx context.Context) {
	links, err := s.Links(ctx)
	if err != nil {
		return
	}

	ids := make([]int64, 0, len(links))
	for _, link := range links {
		if link.CloudID != 0 {
			ids = append(ids, link.CloudID)
		}
	}

	if cerr := s.client.SetSyncedList(ctx, ids); cerr != nil {
		telemetry.LogWarn(ctx, "failed to report synced snippet list",
			telemetry.LogString("error", cerr.Error()))
	}
}

// CreateFromCloudPush saves a snippet pushed from the cloud side as a
// new, inactive local snippet. Pushed snippets are never owned, so the
// stored identity always carries the non-owner flag, and the link is
// registered outside the codevault.
func (s *Service) CreateFromCloudPush(ctx context.Context, remote *Snippet) SyncResult {
	pushed := *remote
	pushed.IsOwner = false
	return s.DownloadSnippetFromCloud(ctx, &pushed, false)
}
