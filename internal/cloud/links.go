package cloud

import (
	"context"
	"encoding/json"

	"github.com/snipvault/snipvault/internal/telemetry"
)

// Links returns the local-to-cloud link map. Lookup order is the
// in-memory copy, then the ephemeral store, then a full rebuild from
// the local snippets and the currently cached codevault page. A rebuilt
// map is persisted for a day.
//
// Membership in the codevault is judged against the cached page's
// cloud_id_rev only, so snippets living on unfetched pages report
// in_codevault=false. That matches how the rest of the system treats
// the map and is deliberate.
func (s *Service) Links(ctx context.Context) ([]Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linksLocked(ctx)
}

func (s *Service) linksLocked(ctx context.Context) ([]Link, error) {
	if s.links != nil {
		return s.links, nil
	}

	if raw, ok, err := s.cache.Get(ctx, linkMapCacheKey); err == nil && ok {
		var stored []Link
		if json.Unmarshal(raw, &stored) == nil {
			if stored == nil {
				stored = []Link{}
			}
			s.links = stored
			return s.links, nil
		}
	}

	links := []Link{}
	page, err := s.codevaultLocked(ctx, 1)
	if err != nil {
		// Without a codevault page there is nothing to reconcile
		// against. Leave the map empty and do not persist it.
		s.links = links
		return s.links, nil
	}

	locals, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, local := range locals {
		if local.CloudID == nil || *local.CloudID == "" {
			continue
		}

		cloudID, isOwner := DecodeIdentity(*local.CloudID)
		rev, inCodevault := page.CloudIDRev[cloudID]

		link := Link{
			LocalID:     local.ID,
			CloudID:     cloudID,
			IsOwner:     isOwner,
			InCodevault: inCodevault,
		}
		if inCodevault {
			link.UpdateAvailable = local.Revision < rev
		}
		links = append(links, link)
	}

	s.links = links
	s.persistLinksLocked(ctx, links)
	return s.links, nil
}

func (s *Service) persistLinksLocked(ctx context.Context, links []Link) {
	raw, err := json.Marshal(links)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, linkMapCacheKey, raw, cacheExpiry); err != nil {
		telemetry.LogWarn(ctx, "failed to persist cloud link map", telemetry.LogString("error", err.Error()))
	}
}

// FindLinkByLocalID returns the link for a local snippet id, or nil.
func (s *Service) FindLinkByLocalID(ctx context.Context, localID int64) (*Link, error) {
	links, err := s.Links(ctx)
	if err != nil {
		return nil, err
	}
	for i := range links {
		if links[i].LocalID == localID {
			link := links[i]
			return &link, nil
		}
	}
	return nil, nil
}

// FindLinkByCloudID returns the link for a cloud snippet id, or nil.
func (s *Service) FindLinkByCloudID(ctx context.Context, cloudID int64) (*Link, error) {
	links, err := s.Links(ctx)
	if err != nil {
		return nil, err
	}
	for i := range links {
		if links[i].CloudID == cloudID {
			link := links[i]
			return &link, nil
		}
	}
	return nil, nil
}

// AddLink appends one link to the persisted map. The mutex makes the
// read-modify-write single-writer within this process; cross-process
// writers can still race, which callers accept for this map.
func (s *Service) AddLink(ctx context.Context, link Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored []Link
	if raw, ok, err := s.cache.Get(ctx, linkMapCacheKey); err == nil && ok {
		_ = json.Unmarshal(raw, &stored)
	}
	stored = append(stored, link)

	if s.links != nil {
		s.links = append(s.links, link)
	}
	s.persistLinksLocked(ctx, stored)
	return nil
}

// RemoveLinkByLocalID drops the link for a local snippet and
// re-persists the remaining map.
func (s *Service) RemoveLinkByLocalID(ctx context.Context, localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links, err := s.linksLocked(ctx)
	if err != nil {
		return err
	}

	kept := links[:0]
	for _, link := range links {
		if link.LocalID != localID {
			kept = append(kept, link)
		}
	}

	s.links = kept
	s.persistLinksLocked(ctx, kept)
	return nil
}

// InvalidateCaches clears the in-memory copies and deletes both
// ephemeral entries. Every mutating sync operation calls this so the
// next read rebuilds from fresh state.
func (s *Service) InvalidateCaches(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateCachesLocked(ctx)
}

func (s *Service) invalidateCachesLocked(ctx context.Context) {
	s.links = nil
	s.codevault = nil

	if err := s.cache.Delete(ctx, linkMapCacheKey); err != nil {
		telemetry.LogWarn(ctx, "failed to delete cloud link map cache", telemetry.LogString("error", err.Error()))
	}
	if err := s.cache.Delete(ctx, codevaultCacheKey); err != nil {
		telemetry.LogWarn(ctx, "failed to delete codevault cache", telemetry.LogString("error", err.Error()))
	}
}

// CodevaultSnippets returns one page of the connected codevault,
// served from cache when the cached page index matches.
func (s *Service) CodevaultSnippets(ctx context.Context, page int) (*SnippetPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codevaultLocked(ctx, page)
}

func (s *Service) codevaultLocked(ctx context.Context, page int) (*SnippetPage, error) {
	if s.codevault != nil && s.codevault.Page == page {
		return s.codevault, nil
	}

	if raw, ok, err := s.cache.Get(ctx, codevaultCacheKey); err == nil && ok {
		var stored SnippetPage
		if json.Unmarshal(raw, &stored) == nil {
			s.codevault = &stored
			// A cached page with a different index is a miss.
			if stored.Page == page {
				return s.codevault, nil
			}
		}
	}

	fetched, cerr := s.client.CodevaultSnippets(ctx, page)
	if cerr != nil {
		return nil, cerr
	}

	s.codevault = fetched
	if raw, err := json.Marshal(fetched); err == nil {
		if err := s.cache.Set(ctx, codevaultCacheKey, raw, cacheExpiry); err != nil {
			telemetry.LogWarn(ctx, "failed to persist codevault cache", telemetry.LogString("error", err.Error()))
		}
	}
	return fetched, nil
}

// Search proxies the public cloud search, identified by this site's
// token and host.
func (s *Service) Search(ctx context.Context, method, query string, page int) (*SnippetPage, error) {
	result, cerr := s.client.Search(ctx, method, query, page, s.LocalToken(ctx), s.siteHost)
	if cerr != nil {
		return nil, cerr
	}
	return result, nil
}
