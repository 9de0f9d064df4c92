// Command botdir はDiscord Botディレクトリのサーバー・ワーカー・管理コマンドを提供する。
//
//	botdir [serve]                        APIサーバーを起動する
//	botdir worker                         期限切れセッションを定期削除する
//	botdir migrate                        マイグレーションを適用する
//	botdir approve <applicationId>        Botを承認する
//	botdir feature <applicationId> [bool] おすすめ表示を切り替える
//	botdir delete <applicationId>         Botを削除する
//	botdir healthcheck                    /healthを確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/botdir/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
