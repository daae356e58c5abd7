package cloud

import (
	"context"
)

// Bundles lists the bundles belonging to the connected codevault.
func (s *Service) Bundles(ctx context.Context) ([]Bundle, error) {
	bundles, cerr := s.client.Bundles(ctx)
	if cerr != nil {
		return nil, cerr
	}
	return bundles, nil
}

// BundleSnippets fetches the snippets of one of the account's bundles.
func (s *Service) BundleSnippets(ctx context.Context, bundleID int64) (*SnippetPage, error) {
	page, cerr := s.client.BundleSnippets(ctx, bundleID)
	if cerr != nil {
		return nil, cerr
	}
	return page, nil
}

// SharedBundleSnippets fetches a bundle another account has shared.
func (s *Service) SharedBundleSnippets(ctx context.Context, shareName string) (*SnippetPage, error) {
	page, cerr := s.client.SharedBundleSnippets(ctx, shareName)
	if cerr != nil {
		return nil, cerr
	}
	return page, nil
}

// ImportBundle downloads every snippet of a bundle that is not already
// stored locally. Either the bundle id or the share name selects the
// bundle; the share name wins when both are set. Bundle snippets are
// imported as non-codevault links since a shared bundle can come from
// any account.
func (s *Service) ImportBundle(ctx context.Context, bundleID int64, shareName string) SyncResult {
	var (
		page *SnippetPage
		err  error
	)
	if shareName != "" {
		page, err = s.SharedBundleSnippets(ctx, shareName)
	} else {
		page, err = s.BundleSnippets(ctx, bundleID)
	}
	if err != nil {
		return syncFailure("failed to fetch bundle snippets")
	}

	fresh := make([]Snippet, 0, len(page.Snippets))
	for _, remote := range page.Snippets {
		identity := EncodeIdentity(remote.ID, remote.IsOwner)
		if _, lookupErr := s.store.GetByCloudID(ctx, identity); lookupErr == nil {
			continue
		}
		fresh = append(fresh, remote)
	}

	if len(fresh) == 0 {
		return syncFailure("There was a problem saving or no snippets found to download.")
	}
	return s.StoreSnippetsFromCloudToLocal(ctx, fresh, false)
}
