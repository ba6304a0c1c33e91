// hisho は会話型のタスク・日誌秘書サービス。
// serve / worker / migrate / healthcheck のサブコマンドで起動する。
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hitoshi/hisho/internal/app"
)

func main() {
	// .envがあれば読み込む。なくてもエラーにしない（本番は環境変数直指定）。
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
