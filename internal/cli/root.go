// Package cli implements the shopctl command tree.
package cli

import (
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/wondertwin-ai/shopkit/internal/config"
	"github.com/wondertwin-ai/shopkit/pkg/shopify"
)

// Version is set at build time via -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	theme      string
}

// NewRootCommand builds shopctl. Results go to out as JSON; logs and
// errors go to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Inspect and edit a shop through the Admin REST API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.shopkit/config.yaml)")
	root.PersistentFlags().StringVar(&a.theme, "theme", "", "owning theme id, required for assets")

	root.AddCommand(
		a.newGetCommand(),
		a.newListCommand(),
		a.newCountCommand(),
		a.newDeleteCommand(),
		a.newSetCommand(),
		a.newScopesCommand(),
		a.newTwinCommand(),
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.Load(a.configPath)
}

func (a *app) newClient() (*shopify.Client, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	opts := []shopify.Option{
		shopify.WithLogger(logger),
		shopify.WithAPIVersion(cfg.APIVersion),
		shopify.WithUserAgent("shopctl/" + Version),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, shopify.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, shopify.WithBaseURL(cfg.BaseURL))
	}
	return shopify.New(cfg.Shop, cfg.AccessToken, opts...)
}

// resource selects a resource client by name. Assets are bound to --theme.
func (a *app) resource(name string) (*shopify.ResourceClient[shopify.Record], error) {
	client, err := a.newClient()
	if err != nil {
		return nil, err
	}
	var params []string
	if shopify.ResourceType(name) == shopify.ResourceAssets {
		params = append(params, a.theme)
	}
	d, err := client.Dynamic().Call(name, params...)
	if err != nil {
		return nil, err
	}
	return d.Resource()
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
