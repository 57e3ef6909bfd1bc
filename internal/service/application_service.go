package service

import (
	"context"
	"errors"
	"ithakabot/internal/model"
	"ithakabot/internal/repository"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrUnknownPath         = errors.New("unknown application path")
)

// ApplicationService serves completed applications to staff
type ApplicationService struct {
	applications repository.ApplicationStore
}

// NewApplicationService creates a new application service
func NewApplicationService(applications repository.ApplicationStore) *ApplicationService {
	return &ApplicationService{applications: applications}
}

// List returns the newest applications matching filter
func (s *ApplicationService) List(ctx context.Context, filter model.ApplicationFilter) ([]*model.ApplicationRecord, error) {
	switch filter.Path {
	case "", model.PathBasic, model.PathFull:
	default:
		return nil, ErrUnknownPath
	}
	return s.applications.List(ctx, filter)
}

// Get returns one application
func (s *ApplicationService) Get(ctx context.Context, id string) (*model.ApplicationRecord, error) {
	record, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrApplicationNotFound
	}
	return record, nil
}
