package main

import (
	"os"

	cmd "github.com/webitel/bot-report-exporter/cmd/main"
)

func main() {
	os.Exit(cmd.Run())
}
