// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/botdir/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// actorContextKey はリクエストコンテキストに実行者を格納するためのキー。
var actorContextKey = contextKey("actor")

// actorLookupErrKey はセッション解決に失敗したことを記録するためのキー。
var actorLookupErrKey = contextKey("actor_lookup_err")

// ActorFinder はセッションIDから実行者を解決するインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type ActorFinder interface {
	FindActor(ctx context.Context, sessionID string) (*model.Actor, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効なセッションであれば実行者をリクエストコンテキストに注入する。
// 公開エンドポイントと共用するため、未認証でもリクエストは拒否しない。
// セッションストアの障害も公開エンドポイントでは匿名として扱い、
// 障害はコンテキストに記録してRequireActorが503を返す。
// 認証必須のルートにはRequireActorを併用する。
func NewSessionMiddleware(finder ActorFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := finder.FindActor(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorLookupErrKey, err)))
				return
			}
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequireActor は実行者が解決されていないリクエストに401を返すミドルウェア。
// セッションストアに到達できなかった場合は503を返す。
// NewSessionMiddlewareの内側に配置する。
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFromContext(r.Context()) == nil {
			if _, failed := r.Context().Value(actorLookupErrKey).(error); failed {
				WriteUpstreamUnavailable(w)
				return
			}
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext はリクエストコンテキストから実行者を取得する。未認証の場合はnil。
func ActorFromContext(ctx context.Context) *model.Actor {
	actor, _ := ctx.Value(actorContextKey).(*model.Actor)
	return actor
}

// ContextWithActor はコンテキストに実行者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor *model.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// UserIDFromContext はリクエストコンテキストから実行者のユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	actor := ActorFromContext(ctx)
	if actor == nil || actor.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return actor.UserID, nil
}
