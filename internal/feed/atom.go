// Package feed は承認済みBotの新着をAtomフィードとして配信する。
package feed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/hitoshi/botdir/internal/model"
	"github.com/hitoshi/botdir/internal/repository"
)

// DefaultSize はフィードに含める既定の件数。
const DefaultSize = 50

const feedTitle = "Discord Bot Directory - Newly approved bots"

// Builder は承認済みBotの一覧からフィードを組み立てる。
type Builder struct {
	baseURL string
}

// NewBuilder はBuilderを生成する。baseURLは各エントリのリンクの起点となる。
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Build はbotsを順序を保ったままフィードのエントリに変換する。
// フィードの更新日時は最も新しい承認日時で、承認済みBotがない場合はnow。
func (b *Builder) Build(bots []model.Bot, now time.Time) *feeds.Feed {
	f := &feeds.Feed{
		Title:       feedTitle,
		Link:        &feeds.Link{Href: b.baseURL + "/bots"},
		Description: "Discord bots recently approved for the directory",
		Id:          b.baseURL + "/feeds/bots.atom",
		Created:     now,
		Updated:     now,
	}

	var latest time.Time
	for i := range bots {
		bot := &bots[i]
		updated := bot.CreatedAt
		if bot.ApprovedAt != nil {
			updated = *bot.ApprovedAt
		}
		if updated.After(latest) {
			latest = updated
		}

		f.Items = append(f.Items, &feeds.Item{
			Title:       bot.Name,
			Link:        &feeds.Link{Href: b.baseURL + "/bots/" + bot.ApplicationID},
			Description: bot.Description,
			Id:          bot.InviteURL,
			Created:     bot.CreatedAt,
			Updated:     updated,
		})
	}
	if !latest.IsZero() {
		f.Updated = latest
	}
	return f
}

// Service はストアから新着の承認済みBotを取得してフィードを書き出す。
type Service struct {
	bots    repository.BotRepository
	builder *Builder
	size    int
	now     func() time.Time
}

// NewService はServiceを生成する。sizeが0以下の場合はDefaultSizeを使う。
func NewService(bots repository.BotRepository, builder *Builder, size int) *Service {
	if size <= 0 {
		size = DefaultSize
	}
	return &Service{bots: bots, builder: builder, size: size, now: time.Now}
}

// WriteAtom は承認日時の新しい順に最大size件のBotをAtom 1.0で書き出す。
func (s *Service) WriteAtom(ctx context.Context, w io.Writer) error {
	bots, err := s.bots.ListRecentlyApproved(ctx, s.size)
	if err != nil {
		return fmt.Errorf("承認済みBotの取得に失敗しました: %w", err)
	}

	if err := s.builder.Build(bots, s.now()).WriteAtom(w); err != nil {
		return fmt.Errorf("Atomフィードの書き出しに失敗しました: %w", err)
	}
	return nil
}
