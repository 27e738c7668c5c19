package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"imagebatch/internal/cache"
	"imagebatch/internal/logger"
	"imagebatch/internal/models"
)

// CachedStore answers status reads from a cache and refreshes it on every
// status write. Cache failures are logged and never fail the call.
type CachedStore struct {
	Store
	cache cache.Client
	ttl   time.Duration
}

func NewCachedStore(inner Store, c cache.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: inner, cache: c, ttl: ttl}
}

func (s *CachedStore) CreateRequest(ctx context.Context, id string, status models.RequestStatus) error {
	if err := s.Store.CreateRequest(ctx, id, status); err != nil {
		return err
	}
	s.remember(ctx, id, status)
	return nil
}

func (s *CachedStore) SetRequestStatus(ctx context.Context, id string, status models.RequestStatus) error {
	if err := s.Store.SetRequestStatus(ctx, id, status); err != nil {
		s.forget(ctx, id)
		return err
	}
	s.remember(ctx, id, status)
	return nil
}

func (s *CachedStore) GetRequestStatus(ctx context.Context, id string) (models.Request, error) {
	val, err := s.cache.Get(ctx, cache.StatusKey(id))
	if err == nil {
		return models.Request{ID: id, Status: models.RequestStatus(val)}, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Log.Warn("status cache read failed", zap.String("request_id", id), zap.Error(err))
	}

	req, err := s.Store.GetRequestStatus(ctx, id)
	if err != nil {
		return models.Request{}, err
	}
	s.remember(ctx, id, req.Status)
	return req, nil
}

func (s *CachedStore) Close() {
	if err := s.cache.Close(); err != nil {
		logger.Log.Warn("status cache close failed", zap.Error(err))
	}
	s.Store.Close()
}

func (s *CachedStore) remember(ctx context.Context, id string, status models.RequestStatus) {
	if err := s.cache.Set(ctx, cache.StatusKey(id), []byte(status), s.ttl); err != nil {
		logger.Log.Warn("status cache write failed", zap.String("request_id", id), zap.Error(err))
	}
}

func (s *CachedStore) forget(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cache.StatusKey(id)); err != nil {
		logger.Log.Warn("status cache delete failed", zap.String("request_id", id), zap.Error(err))
	}
}
