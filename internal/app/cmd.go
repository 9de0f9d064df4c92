package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの定期削除を実行するワーカーモードを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandApprove は掲載待ちのBotを承認することを示す。
	CommandApprove Command = "approve"
	// CommandFeature はBotのおすすめ表示を切り替えることを示す。
	CommandFeature Command = "feature"
	// CommandDelete はBotを掲載から削除することを示す。
	CommandDelete Command = "delete"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "approve":
		return CommandApprove
	case "feature":
		return CommandFeature
	case "delete":
		return CommandDelete
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// IsModeration はコマンドがモデレーション操作かどうかを返す。
func (c Command) IsModeration() bool {
	return c == CommandApprove || c == CommandFeature || c == CommandDelete
}
