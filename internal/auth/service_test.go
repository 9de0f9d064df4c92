package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
	updateProfileFn      func(ctx context.Context, id, name, avatar string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, name, avatar string) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, name, avatar)
	}
	return nil
}

type mockIdentityRepo struct {
	findActorFn func(ctx context.Context, provider, providerUserID string) (*model.Actor, error)
}

func (m *mockIdentityRepo) FindActorByProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Actor, error) {
	if m.findActorFn != nil {
		return m.findActorFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) FindActor(ctx context.Context, sessionID string) (*model.Actor, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://discord.com/oauth2/authorize?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	url := svc.GetLoginURL("test-state")

	if url == "" {
		t.Fatal("expected non-empty URL")
	}
	expected := "https://discord.com/oauth2/authorize?state=test-state"
	if url != expected {
		t.Errorf("GetLoginURL() = %q, want %q", url, expected)
	}
}

func TestHandleCallback_NewUser_CreatesUserAndIdentityAndSession(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdIdentity *model.Identity
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "80351110224678912",
				Name:           "Test User",
				Avatar:         "https://cdn.discordapp.com/avatars/80351110224678912/abc.png",
				Provider:       "discord",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findActorFn: func(ctx context.Context, provider, providerUserID string) (*model.Actor, error) {
			// ユーザーが見つからない（新規ユーザー）
			return nil, nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, identityRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-123")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	// セッションが返されること
	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if session.ID == "" {
		t.Error("expected non-empty session ID")
	}
	if session.UserID == "" {
		t.Error("expected non-empty user ID in session")
	}

	// ユーザーが作成されること
	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Avatar != "https://cdn.discordapp.com/avatars/80351110224678912/abc.png" {
		t.Errorf("user avatar = %q", createdUser.Avatar)
	}
	if createdUser.Name != "Test User" {
		t.Errorf("user name = %q, want %q", createdUser.Name, "Test User")
	}

	// identityが作成されること
	if createdIdentity == nil {
		t.Fatal("expected identity to be created")
	}
	if createdIdentity.Provider != "discord" {
		t.Errorf("identity provider = %q, want %q", createdIdentity.Provider, "discord")
	}
	if createdIdentity.ProviderUserID != "80351110224678912" {
		t.Errorf("identity providerUserID = %q, want %q", createdIdentity.ProviderUserID, "80351110224678912")
	}

	// セッションが作成されること
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if createdSession.UserID != createdUser.ID {
		t.Errorf("session userID = %q, want %q", createdSession.UserID, createdUser.ID)
	}
	if createdSession.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}
}

func TestHandleCallback_ExistingUser_LogsInAndCreatesSession(t *testing.T) {
	ctx := context.Background()

	existingUserID := "existing-user-id-456"
	var createdSession *model.Session
	var updatedName, updatedAvatar string

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "175928847299117063",
				Name:           "Renamed User",
				Avatar:         "https://cdn.discordapp.com/avatars/175928847299117063/new.png",
				Provider:       "discord",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id, name, avatar string) error {
			if id != existingUserID {
				t.Errorf("UpdateProfile id = %q, want %q", id, existingUserID)
			}
			updatedName, updatedAvatar = name, avatar
			return nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findActorFn: func(ctx context.Context, provider, providerUserID string) (*model.Actor, error) {
			// 既存ユーザーのidentityが見つかる
			return &model.Actor{
				UserID:    existingUserID,
				DiscordID: "175928847299117063",
				Name:      "Old Name",
				Avatar:    "https://cdn.discordapp.com/avatars/175928847299117063/old.png",
			}, nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, identityRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-existing")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if session.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", session.UserID, existingUserID)
	}

	// Discord側の表示名とアバターが反映されること
	if updatedName != "Renamed User" {
		t.Errorf("updated name = %q, want %q", updatedName, "Renamed User")
	}
	if updatedAvatar != "https://cdn.discordapp.com/avatars/175928847299117063/new.png" {
		t.Errorf("updated avatar = %q", updatedAvatar)
	}

	// セッションが作成されること
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if createdSession.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", createdSession.UserID, existingUserID)
	}
}

func TestHandleCallback_UnchangedProfile_SkipsUpdate(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "175928847299117063",
				Name:           "Same User",
				Avatar:         "https://cdn.discordapp.com/avatars/175928847299117063/same.png",
				Provider:       "discord",
			}, nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findActorFn: func(ctx context.Context, provider, providerUserID string) (*model.Actor, error) {
			if provider != "discord" || providerUserID != "175928847299117063" {
				t.Errorf("lookup = (%q, %q)", provider, providerUserID)
			}
			return &model.Actor{
				UserID:    "existing-user-id-456",
				DiscordID: providerUserID,
				Name:      "Same User",
				Avatar:    "https://cdn.discordapp.com/avatars/175928847299117063/same.png",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id, name, avatar string) error {
			t.Error("UpdateProfile should not be called when the profile is unchanged")
			return nil
		},
	}

	svc := NewService(provider, userRepo, identityRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(context.Background(), "auth-code-same")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session.UserID != "existing-user-id-456" {
		t.Errorf("session userID = %q, want existing-user-id-456", session.UserID)
	}
}

func TestHandleCallback_OAuthError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return nil, errors.New("oauth exchange failed")
		},
	}

	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "bad-code")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestHandleCallback_UserCreationError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "999999999999999999",
				Name:           "Error User",
				Provider:       "discord",
			}, nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findActorFn: func(ctx context.Context, provider, providerUserID string) (*model.Actor, error) {
			return nil, nil // 新規ユーザー
		},
	}

	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			return errors.New("db error")
		},
	}

	svc := NewService(provider, userRepo, identityRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code-err")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	ctx := context.Background()

	var deletedSessionID string

	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}

	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(ctx, "session-to-delete")
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	ctx := context.Background()

	svc := NewService(nil, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(ctx, "")
	if err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	ctx := context.Background()

	userID := "user-id-123"

	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-valid",
				UserID:    userID,
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:   userID,
				Name: "Test User",
			}, nil
		},
	}

	svc := NewService(nil, userRepo, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(ctx, "session-valid")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}

	if user == nil {
		t.Fatal("expected non-nil user")
	}
	if user.ID != userID {
		t.Errorf("user ID = %q, want %q", user.ID, userID)
	}
}

// 期限切れ・空のセッション・削除済みユーザーは未認証として(nil, nil)を返す。
func TestGetCurrentUser_Unauthenticated_ReturnsNil(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		session   *model.Session
	}{
		{name: "空のセッションID", sessionID: ""},
		{name: "期限切れセッション", sessionID: "expired-session"},
		{name: "ユーザー削除済み", sessionID: "orphan-session", session: &model.Session{ID: "orphan-session", UserID: "gone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessionRepo := &mockSessionRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
					return tt.session, nil
				},
			}
			svc := NewService(nil, &mockUserRepo{}, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

			user, err := svc.GetCurrentUser(context.Background(), tt.sessionID)
			if err != nil {
				t.Fatalf("GetCurrentUser() error = %v", err)
			}
			if user != nil {
				t.Errorf("expected nil user, got %+v", user)
			}
		})
	}
}

func TestGetCurrentUser_StoreError_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.GetCurrentUser(context.Background(), "session-1"); err == nil {
		t.Fatal("expected error when session store fails")
	}
}

// 同じDiscordユーザーの初回ログインが同時に走った場合、
// 後発は一意制約違反のあと既存identityのユーザーとしてログインする。
func TestHandleCallback_ConcurrentFirstLogin_UsesExistingIdentity(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "80351110224678912",
				Name:           "Nelly",
				Provider:       "discord",
			}, nil
		},
	}

	lookups := 0
	identityRepo := &mockIdentityRepo{
		findActorFn: func(ctx context.Context, provider, providerUserID string) (*model.Actor, error) {
			lookups++
			if lookups == 1 {
				return nil, nil
			}
			return &model.Actor{UserID: "winner-user", DiscordID: providerUserID}, nil
		},
	}

	var updatedID string
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			return repository.ErrDuplicate
		},
		updateProfileFn: func(ctx context.Context, id, name, avatar string) error {
			updatedID = id
			return nil
		},
	}

	var sessionUserID string
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			sessionUserID = session.UserID
			return nil
		},
	}

	svc := NewService(provider, userRepo, identityRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.HandleCallback(context.Background(), "code"); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if lookups != 2 {
		t.Errorf("identity lookups = %d, want 2", lookups)
	}
	if updatedID != "winner-user" || sessionUserID != "winner-user" {
		t.Errorf("updated=%q session=%q, want winner-user", updatedID, sessionUserID)
	}
}

func TestCreateSession_UsesMaxAge(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var saved *model.Session
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			saved = session
			return nil
		},
	}
	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 3600})
	svc.now = func() time.Time { return fixed }

	if _, err := svc.createSession(context.Background(), "user-1"); err != nil {
		t.Fatalf("createSession() error = %v", err)
	}
	if !saved.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", saved.ExpiresAt, fixed.Add(time.Hour))
	}
	if len(saved.ID) != 64 {
		t.Errorf("session ID length = %d, want 64 hex chars", len(saved.ID))
	}
}
