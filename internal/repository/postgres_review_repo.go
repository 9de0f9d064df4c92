package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/lib/pq"
)

// reviewDetailSelect は投稿者の概要を結合したレビュー取得クエリの共通部分。
const reviewDetailSelect = `SELECT r.id, r.bot_id, r.user_id, r.rating, r.comment, r.created_at,
	u.id, u.name, u.avatar
	FROM reviews r
	JOIN users u ON u.id = r.user_id`

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// FindByBotAndUser はBotとユーザーの組でレビューを検索する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByBotAndUser(ctx context.Context, botID, userID string) (*model.Review, error) {
	review := &model.Review{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, bot_id, user_id, rating, comment, created_at
		 FROM reviews
		 WHERE bot_id = $1 AND user_id = $2`,
		botID, userID,
	).Scan(&review.ID, &review.BotID, &review.UserID, &review.Rating, &review.Comment, &review.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return review, nil
}

// CreateWithVote はレビューを作成し、同一トランザクションでBotの投票数を1加算する。
// 一意制約違反の場合はロールバックしてErrDuplicateを返す。
func (r *PostgresReviewRepo) CreateWithVote(ctx context.Context, review *model.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reviews (id, bot_id, user_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.BotID, review.UserID, review.Rating, review.Comment, review.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert review: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE bots SET votes = votes + 1 WHERE id = $1`,
		review.BotID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment votes: %w", err)
	}
	if err := requireOneRow(result, "bot", review.BotID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByBot はBotのレビューを新しい順に返す。
func (r *PostgresReviewRepo) ListByBot(ctx context.Context, botID string) ([]model.ReviewDetail, error) {
	byBot, err := r.list(ctx,
		reviewDetailSelect+` WHERE r.bot_id = $1 ORDER BY r.created_at DESC`,
		botID,
	)
	if err != nil {
		return nil, err
	}
	if reviews, ok := byBot[botID]; ok {
		return reviews, nil
	}
	return []model.ReviewDetail{}, nil
}

// ListByBots は複数Botのレビューを1回のクエリで取得し、Bot IDごとに新しい順で返す。
func (r *PostgresReviewRepo) ListByBots(ctx context.Context, botIDs []string) (map[string][]model.ReviewDetail, error) {
	if len(botIDs) == 0 {
		return map[string][]model.ReviewDetail{}, nil
	}
	return r.list(ctx,
		reviewDetailSelect+` WHERE r.bot_id = ANY($1) ORDER BY r.created_at DESC`,
		pq.Array(botIDs),
	)
}

func (r *PostgresReviewRepo) list(ctx context.Context, query string, args ...any) (map[string][]model.ReviewDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	byBot := make(map[string][]model.ReviewDetail)
	for rows.Next() {
		var d model.ReviewDetail
		if err := rows.Scan(
			&d.ID, &d.BotID, &d.UserID, &d.Rating, &d.Comment, &d.CreatedAt,
			&d.User.ID, &d.User.Name, &d.User.Image,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		byBot[d.BotID] = append(byBot[d.BotID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return byBot, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
