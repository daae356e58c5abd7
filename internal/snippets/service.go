package snippets

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/snipvault/snipvault/internal/apperrors"
	"github.com/snipvault/snipvault/internal/cache"
)

type Store interface {
	Save(ctx context.Context, s *Snippet) error
	GetByID(ctx context.Context, id int64) (*Snippet, error)
	GetByCloudID(ctx context.Context, cloudID string) (*Snippet, error)
	List(ctx context.Context) ([]*Snippet, error)
	UpdateFields(ctx context.Context, id int64, f Fields) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	Store    Store
	Cache    cache.Store
	CacheTTL time.Duration
}

func cacheKey(id int64) string {
	return "snippet:" + strconv.FormatInt(id, 10)
}

func (s *Service) Create(ctx context.Context, req CreateSnippetRequest) (*Snippet, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "name is required")
	}
	scope := req.Scope
	if scope == "" {
		scope = ScopeGlobal
	}
	if !scope.Valid() {
		return nil, apperrors.New(apperrors.KindInvalidInput, "invalid scope")
	}

	snippet := &Snippet{
		Name:     name,
		Desc:     req.Desc,
		Code:     req.Code,
		Scope:    scope,
		Revision: 1,
	}

	if err := s.Store.Save(ctx, snippet); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create snippet", err)
	}
	return snippet, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Snippet, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	if id <= 0 {
		return nil, apperrors.New(apperrors.KindInvalidInput, "id is required")
	}

	if s.Cache != nil {
		if raw, ok, err := s.Cache.Get(ctx, cacheKey(id)); err == nil && ok {
			var cached Snippet
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	snippet, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load snippet", err)
	}

	if s.Cache != nil && s.CacheTTL > 0 {
		if raw, err := json.Marshal(snippet); err == nil {
			_ = s.Cache.Set(ctx, cacheKey(id), raw, s.CacheTTL)
		}
	}

	return snippet, nil
}

func (s *Service) List(ctx context.Context) ([]*Snippet, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}

	list, err := s.Store.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list snippets", err)
	}
	return list, nil
}

func (s *Service) Update(ctx context.Context, id int64, req CreateSnippetRequest) (*Snippet, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	if id <= 0 {
		return nil, apperrors.New(apperrors.KindInvalidInput, "id is required")
	}

	existing, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to load snippet", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "name is required")
	}
	scope := req.Scope
	if scope == "" {
		scope = existing.Scope
	}
	if !scope.Valid() {
		return nil, apperrors.New(apperrors.KindInvalidInput, "invalid scope")
	}

	existing.Name = name
	existing.Desc = req.Desc
	existing.Code = req.Code
	existing.Scope = scope
	existing.Revision++

	if err := s.Store.Save(ctx, existing); err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to update snippet", err)
	}

	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, cacheKey(id))
	}

	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.Store == nil {
		return apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	if id <= 0 {
		return apperrors.New(apperrors.KindInvalidInput, "id is required")
	}

	if err := s.Store.Delete(ctx, id); err != nil {
		if IsNotFound(err) {
			return apperrors.New(apperrors.KindNotFound, "not found")
		}
		return apperrors.Wrap(apperrors.KindInternal, "failed to delete snippet", err)
	}

	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, cacheKey(id))
	}
	return nil
}
