// Command feedclip はRSS/Atom購読の同期とタイムライン配信を行う。
//
//	feedclip [serve|sync|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/feedclip/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
