package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hitoshi/botdir/internal/model"
)

// Moderator はモデレーションサブコマンドが必要とするサービスインターフェース。
type Moderator interface {
	Approve(ctx context.Context, applicationID string) (*model.Bot, error)
	SetFeatured(ctx context.Context, applicationID string, featured bool) (*model.Bot, error)
	Delete(ctx context.Context, applicationID string) error
}

// errUsage はサブコマンドの引数が不正な場合のエラー。
var errUsage = errors.New("invalid arguments")

// runModeration はapprove/feature/deleteサブコマンドを実行し、結果を1行でoutに書き出す。
// argsにはサブコマンド名を除いた引数を渡す。
//
//	approve <applicationId>
//	feature <applicationId> [true|false]
//	delete  <applicationId>
func runModeration(ctx context.Context, m Moderator, cmd Command, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "" {
		return fmt.Errorf("%w: usage: botdir %s <applicationId>", errUsage, cmd)
	}
	applicationID := args[0]

	switch cmd {
	case CommandApprove:
		bot, err := m.Approve(ctx, applicationID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "approved %s (%s)\n", bot.ApplicationID, bot.Name)
		return nil

	case CommandFeature:
		featured := true
		if len(args) > 1 {
			v, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("%w: featured flag must be true or false: %q", errUsage, args[1])
			}
			featured = v
		}
		bot, err := m.SetFeatured(ctx, applicationID, featured)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "featured=%t %s (%s)\n", bot.Featured, bot.ApplicationID, bot.Name)
		return nil

	case CommandDelete:
		if err := m.Delete(ctx, applicationID); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", applicationID)
		return nil

	default:
		return fmt.Errorf("%w: %q is not a moderation command", errUsage, cmd)
	}
}
