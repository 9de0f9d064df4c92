package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/lib/pq"
)

// botColumns はbotsテーブル（別名b）から取得するカラム。scanBotの引数順と一致させる。
const botColumns = `b.id, b.application_id, b.name, b.description, b.tags, b.prefix,
	b.website, b.support, b.github, b.avatar, b.invite_url, b.votes, b.server_count,
	b.status, b.approved, b.featured, b.submitted_by, b.approved_at, b.created_at, b.updated_at`

// botDetailSelect は投稿者の概要を結合したBot取得クエリの共通部分。
const botDetailSelect = `SELECT ` + botColumns + `, u.id, u.name, u.avatar
	FROM bots b
	JOIN users u ON u.id = b.submitted_by`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBot はbotColumnsの順でBotを読み取る。extraはその後ろに続くカラムの格納先。
func scanBot(s rowScanner, b *model.Bot, extra ...any) error {
	var (
		serverCount sql.NullInt64
		approvedAt  sql.NullTime
		status      string
	)
	dest := []any{
		&b.ID, &b.ApplicationID, &b.Name, &b.Description, pq.Array(&b.Tags), &b.Prefix,
		&b.Website, &b.Support, &b.GitHub, &b.Avatar, &b.InviteURL, &b.Votes, &serverCount,
		&status, &b.Approved, &b.Featured, &b.SubmittedBy, &approvedAt, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	b.Status = model.BotStatus(status)
	if serverCount.Valid {
		n := int(serverCount.Int64)
		b.ServerCount = &n
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		b.ApprovedAt = &t
	}
	return nil
}

func scanBotDetail(s rowScanner) (*model.BotDetail, error) {
	d := &model.BotDetail{}
	if err := scanBot(s, &d.Bot, &d.Submitter.ID, &d.Submitter.Name, &d.Submitter.Image); err != nil {
		return nil, err
	}
	return d, nil
}

// PostgresBotRepo はPostgreSQLを使用したBotリポジトリ。
type PostgresBotRepo struct {
	db *sql.DB
}

// NewPostgresBotRepo はPostgresBotRepoを生成する。
func NewPostgresBotRepo(db *sql.DB) *PostgresBotRepo {
	return &PostgresBotRepo{db: db}
}

// FindByApplicationID はDiscordアプリケーションIDでBotを検索する。見つからない場合はnilを返す。
func (r *PostgresBotRepo) FindByApplicationID(ctx context.Context, applicationID string) (*model.BotDetail, error) {
	row := r.db.QueryRowContext(ctx, botDetailSelect+` WHERE b.application_id = $1`, applicationID)

	d, err := scanBotDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bot by application ID: %w", err)
	}
	return d, nil
}

// ListApproved は承認済みBotを投票数の多い順（同数は新しい順）に返す。
func (r *PostgresBotRepo) ListApproved(ctx context.Context) ([]model.BotDetail, error) {
	return r.listDetails(ctx,
		botDetailSelect+` WHERE b.approved = true ORDER BY b.votes DESC, b.created_at DESC`,
	)
}

// ListBySubmitter は指定ユーザーのBotを承認状態に関わらず新しい順に返す。
func (r *PostgresBotRepo) ListBySubmitter(ctx context.Context, userID string) ([]model.BotDetail, error) {
	return r.listDetails(ctx,
		botDetailSelect+` WHERE b.submitted_by = $1 ORDER BY b.created_at DESC`,
		userID,
	)
}

func (r *PostgresBotRepo) listDetails(ctx context.Context, query string, args ...any) ([]model.BotDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	defer rows.Close()

	bots := []model.BotDetail{}
	for rows.Next() {
		d, err := scanBotDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		bots = append(bots, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bots: %w", err)
	}
	return bots, nil
}

// ListRecentlyApproved は承認日時の新しい順に最大limit件の承認済みBotを返す。
func (r *PostgresBotRepo) ListRecentlyApproved(ctx context.Context, limit int) ([]model.Bot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+botColumns+`
		 FROM bots b
		 WHERE b.approved = true
		 ORDER BY b.approved_at DESC NULLS LAST, b.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently approved bots: %w", err)
	}
	defer rows.Close()

	bots := []model.Bot{}
	for rows.Next() {
		var b model.Bot
		if err := scanBot(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		bots = append(bots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bots: %w", err)
	}
	return bots, nil
}

// Create はBotを作成する。application_idが重複する場合はErrDuplicateを返す。
func (r *PostgresBotRepo) Create(ctx context.Context, bot *model.Bot) error {
	var serverCount any
	if bot.ServerCount != nil {
		serverCount = *bot.ServerCount
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bots (id, application_id, name, description, tags, prefix,
		   website, support, github, avatar, invite_url, votes, server_count,
		   status, approved, featured, submitted_by, approved_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		bot.ID, bot.ApplicationID, bot.Name, bot.Description, pq.Array(bot.Tags), bot.Prefix,
		bot.Website, bot.Support, bot.GitHub, bot.Avatar, bot.InviteURL, bot.Votes, serverCount,
		string(bot.Status), bot.Approved, bot.Featured, bot.SubmittedBy, bot.ApprovedAt, bot.CreatedAt, bot.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert bot %s: %w", bot.ApplicationID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert bot: %w", err)
	}
	return nil
}

// Update は説明系のフィールドを更新する。
// application_id、投票数、承認状態は変更しない。
func (r *PostgresBotRepo) Update(ctx context.Context, bot *model.Bot) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bots
		 SET name = $2, description = $3, tags = $4, prefix = $5,
		     website = $6, support = $7, github = $8, updated_at = $9
		 WHERE id = $1`,
		bot.ID, bot.Name, bot.Description, pq.Array(bot.Tags), bot.Prefix,
		bot.Website, bot.Support, bot.GitHub, bot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}
	return requireOneRow(result, "bot", bot.ID)
}

// Delete は指定IDのBotを削除する。
func (r *PostgresBotRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	return requireOneRow(result, "bot", id)
}

// Approve は未承認のBotを承認済みにする。既に承認済みの場合はfalseを返す。
func (r *PostgresBotRepo) Approve(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bots SET approved = true, approved_at = $2, updated_at = $2
		 WHERE id = $1 AND approved = false`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve bot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// SetFeatured はおすすめフラグを設定する。
func (r *PostgresBotRepo) SetFeatured(ctx context.Context, id string, featured bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bots SET featured = $2, updated_at = now() WHERE id = $1`,
		id, featured,
	)
	if err != nil {
		return fmt.Errorf("failed to set featured: %w", err)
	}
	return requireOneRow(result, "bot", id)
}

// requireOneRow は更新・削除の対象が存在したかを確認する。
func requireOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %s", kind, id)
	}
	return nil
}

// compile-time interface check
var _ BotRepository = (*PostgresBotRepo)(nil)
