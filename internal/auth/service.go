// Package auth はDiscord OAuthによるログインとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Name           string
	Avatar         string // アバター画像のURL
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int          // セッション有効期間（秒）
	Logger        *slog.Logger // nilの場合はslog.Default()
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// Discordユーザーに対応するusersレコードがなければ作成し、
// あればDiscord側で変更された表示名とアバターを反映する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	userID, err := s.resolveUser(ctx, userInfo)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// resolveUser はOAuthユーザー情報に対応するユーザーIDを返す。
// 同じDiscordユーザーの初回ログインが同時に走りidentityの作成が一意制約で失敗した場合は、
// 先に作成されたidentityを引き直してそのユーザーとしてログインさせる。
func (s *Service) resolveUser(ctx context.Context, info *OAuthUserInfo) (string, error) {
	actor, err := s.identRepo.FindActorByProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return "", fmt.Errorf("failed to find identity: %w", err)
	}

	if actor == nil {
		userID, err := s.createUser(ctx, info)
		if err == nil {
			return userID, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", fmt.Errorf("failed to create user and identity: %w", err)
		}

		actor, err = s.identRepo.FindActorByProviderUserID(ctx, info.Provider, info.ProviderUserID)
		if err != nil {
			return "", fmt.Errorf("failed to find identity: %w", err)
		}
		if actor == nil {
			return "", fmt.Errorf("identity for %s user %s vanished after duplicate insert", info.Provider, info.ProviderUserID)
		}
	}

	// Discord側で表示名もアバターも変わっていなければ書き込まない
	if actor.Name != info.Name || actor.Avatar != info.Avatar {
		if err := s.userRepo.UpdateProfile(ctx, actor.UserID, info.Name, info.Avatar); err != nil {
			return "", fmt.Errorf("failed to update user profile: %w", err)
		}
	}
	s.logger.Info("existing user logged in",
		slog.String("user_id", actor.UserID),
		slog.String("provider", info.Provider),
	)
	return actor.UserID, nil
}

// createUser はusersレコードとidentitiesレコードを同一トランザクションで作成する。
func (s *Service) createUser(ctx context.Context, info *OAuthUserInfo) (string, error) {
	now := s.now()
	user := &model.User{
		ID:        uuid.New().String(),
		Name:      info.Name,
		Avatar:    info.Avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, user, identity); err != nil {
		return "", err
	}

	s.logger.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user.ID, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("user logged out")
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが空・期限切れ・ユーザー削除済みの場合は(nil, nil)を返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
