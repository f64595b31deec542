// shopctl reads and edits shop records from the command line.
//
// Usage:
//
//	shopctl get <resource> <id>               Fetch one record
//	shopctl list <resource> [--ids] [--limit] List records
//	shopctl count <resource>                  Count records
//	shopctl delete <resource> <id>            Delete a record
//	shopctl set <resource> <id> key=value...  Update attributes
//	shopctl scopes [list]                     Print access scopes
//	shopctl twin health|reset|seed <file>     Drive a local twin
//
// Assets need --theme <id>. Credentials come from ~/.shopkit/config.yaml
// or SHOPIFY_SHOP and SHOPIFY_ACCESS_TOKEN.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wondertwin-ai/shopkit/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shopctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
