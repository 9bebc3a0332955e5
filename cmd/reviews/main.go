// Command reviews browses storefront reviews from the terminal.
//
// Usage:
//
//	reviews browse <appid> [--reveal N] [--format text|json|html] [--interactive]
//	reviews page <appid> [--cursor C] [--num-per-page N]
//	reviews version
package main

import (
	"os"

	"steam_reviews/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
