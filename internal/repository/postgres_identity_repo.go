package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/botdir/internal/model"
)

// discordProvider はDiscordログインのidentityのprovider値。
const discordProvider = "discord"

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
// Discordログインではprovider="discord"、provider_user_idにDiscordユーザーIDを保持する。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindActorByProviderUserID はidentityと紐付くユーザーを結合し、ログイン中のActorとして返す。
// 表示名とアバターは前回ログイン時に保存した値。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindActorByProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Actor, error) {
	actor := &model.Actor{}
	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, i.provider_user_id, u.name, u.avatar
		 FROM identities i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.provider = $1 AND i.provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&actor.UserID, &actor.DiscordID, &actor.Name, &actor.Avatar)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s identity: %w", provider, err)
	}

	return actor, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
