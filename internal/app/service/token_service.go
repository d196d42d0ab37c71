package service

import (
	"context"
	"fmt"

	"accounts_api/internal/common"
	"accounts_api/internal/common/security"
	"accounts_api/internal/domain/model"
	"accounts_api/internal/platform/config"
	"accounts_api/internal/platform/tokenstore"
)

// TokenService mints the refresh+access pair on login and rotates it on
// refresh. Refresh tokens are single-use: the jti of a live refresh token is
// tracked in the token store and consumed when redeemed.
type TokenService struct {
	store tokenstore.Store
}

func NewTokenService(store tokenstore.Store) *TokenService {
	return &TokenService{store: store}
}

// IssueSession is called only after a successful Authenticate.
func (s *TokenService) IssueSession(ctx context.Context, account *model.Account) (*security.TokenPair, error) {
	return s.issuePair(ctx, account.ID)
}

// Refresh redeems a refresh token for a new pair. The old token is consumed;
// replaying it fails like any other bad credential.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*security.TokenPair, error) {
	claims, err := security.ParseToken(ctx, refreshToken)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	tokenType, err := security.GetTokenTypeFromClaims(claims)
	if err != nil || tokenType != security.TokenTypeRefresh {
		return nil, common.ErrInvalidCredentials
	}

	jti, err := security.GetJTIFromClaims(claims)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	live, err := s.store.Consume(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if !live {
		return nil, common.ErrInvalidCredentials
	}

	return s.issuePair(ctx, userID)
}

// RevokeSession invalidates the session's refresh token so it can never be
// redeemed again. Revoking an already-consumed token is a no-op success.
func (s *TokenService) RevokeSession(ctx context.Context, refreshToken string) error {
	claims, err := security.ParseToken(ctx, refreshToken)
	if err != nil {
		return common.ErrInvalidCredentials
	}

	tokenType, err := security.GetTokenTypeFromClaims(claims)
	if err != nil || tokenType != security.TokenTypeRefresh {
		return common.ErrInvalidCredentials
	}

	jti, err := security.GetJTIFromClaims(claims)
	if err != nil {
		return common.ErrInvalidCredentials
	}

	if err := s.store.Revoke(ctx, jti); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *TokenService) issuePair(ctx context.Context, userID string) (*security.TokenPair, error) {
	access, err := security.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, jti, err := security.GenerateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.store.Save(ctx, jti, config.AppConfig.RefreshTokenExp); err != nil {
		return nil, fmt.Errorf("failed to record refresh token: %w", err)
	}

	return &security.TokenPair{Refresh: refresh, Access: access}, nil
}
