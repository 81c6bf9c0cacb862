package garminconnect

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

// ServiceID identifies this adapter to the sync platform.
const ServiceID = "garminconnect"

// Service is the account-level face of the adapter: every call takes an
// Account and resolves its session through the cache.
type Service struct {
	client *Client
}

// NewService loads the activity hierarchy unless the client already has one.
func NewService(ctx context.Context, client *Client) (*Service, error) {
	if client.Taxonomy() == nil {
		if err := client.RefreshTaxonomy(ctx); err != nil {
			return nil, err
		}
	}
	return &Service{client: client}, nil
}

// Client exposes the underlying client.
func (s *Service) Client() *Client { return s.client }

// Authorize verifies the credentials and returns the remote username, the
// public profile (always empty) and the encrypted credential bundle to store.
func (s *Service) Authorize(ctx context.Context, email, password string) (string, map[string]any, map[string]string, error) {
	if s.client.credentials == nil {
		return "", nil, nil, errors.New("no credential store configured")
	}
	username, _, err := s.client.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, nil, err
	}
	encEmail, err := s.client.credentials.Encrypt(email)
	if err != nil {
		return "", nil, nil, fmt.Errorf("encrypt email: %w", err)
	}
	encPassword, err := s.client.credentials.Encrypt(password)
	if err != nil {
		return "", nil, nil, fmt.Errorf("encrypt password: %w", err)
	}
	bundle := map[string]string{AuthEmail: encEmail, AuthPassword: encPassword}
	return username, map[string]any{}, bundle, nil
}

func (s *Service) ListActivities(ctx context.Context, account Account, exhaustive bool) ([]*activity.Activity, []*ExcludeActivityError, error) {
	session, err := s.client.GetSession(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	acts, excluded, err := s.client.ListActivities(ctx, session, exhaustive)
	if err != nil {
		s.client.dropRejected(account, err)
	}
	return acts, excluded, err
}

func (s *Service) FetchDetail(ctx context.Context, account Account, act *activity.Activity) (*activity.Activity, error) {
	session, err := s.client.GetSession(ctx, account)
	if err != nil {
		return nil, err
	}
	detailed, err := s.client.FetchDetail(ctx, session, act)
	if err != nil {
		s.client.dropRejected(account, err)
	}
	return detailed, err
}

func (s *Service) Upload(ctx context.Context, account Account, act *activity.Activity) (*UploadResult, error) {
	session, err := s.client.GetSession(ctx, account)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Upload(ctx, session, act)
	if err != nil {
		s.client.dropRejected(account, err)
	}
	return res, err
}

// RevokeAuthorization has nothing to release remotely.
func (s *Service) RevokeAuthorization(ctx context.Context, account Account) error {
	return nil
}

// PurgeCachedState has nothing cached beyond the session, which expires on its own.
func (s *Service) PurgeCachedState(ctx context.Context, account Account) error {
	return nil
}
