package app

import "strings"

// Command はinterviewerバイナリのサブコマンド。
type Command string

const (
	// CommandServe は面接APIサーバーを起動する。引数なしの既定値。
	CommandServe Command = "serve"
	// CommandWorker は保存済みのクライアント状態を掃除するスイーパーを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はclient_statesテーブルのマイグレーションを適用する。
	// ファイル保存の場合は何もしない。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーの/healthを確認して終了する。
	// シェルのないdistrolessイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は最初の引数からサブコマンドを決める。
// 大文字小文字と前後の空白は無視し、未知の値や引数なしはCommandServeとする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[strings.ToLower(strings.TrimSpace(args[0]))]; ok {
		return cmd
	}
	return CommandServe
}

// NeedsConfig は実行前に設定の読み込みとロガーの初期化が必要かを返す。
// healthcheckはSERVER_PORTだけを見るため、LLMや保存先の設定が不完全でも動く。
func (c Command) NeedsConfig() bool {
	return c != CommandHealthcheck
}
