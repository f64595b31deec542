package cli

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/wondertwin-ai/shopkit/pkg/shopify"
)

func resourceNames() string {
	names := make([]string, 0, 4)
	for _, t := range shopify.ResourceTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func (a *app) newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Fetch one record (" + resourceNames() + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.resource(args[0])
			if err != nil {
				return err
			}
			rec, err := rc.Find(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s %s: empty response", args[0], args[1])
			}
			return a.print(rec)
		},
	}
}

func (a *app) newListCommand() *cobra.Command {
	var opts shopify.ListOptions
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List records of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.resource(args[0])
			if err != nil {
				return err
			}
			records, err := rc.All(cmd.Context(), opts, "")
			if err != nil {
				return err
			}
			return a.print(records)
		},
	}
	cmd.Flags().StringVar(&opts.IDs, "ids", "", "comma separated ids")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, fmt.Sprintf("page size (1-%d)", shopify.MaxLimit))
	cmd.Flags().Int64Var(&opts.SinceID, "since-id", 0, "only records with a greater id")
	cmd.Flags().StringVar(&opts.Fields, "fields", "", "comma separated attributes to return")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status filter")
	return cmd
}

func (a *app) newCountCommand() *cobra.Command {
	var opts shopify.CountOptions
	cmd := &cobra.Command{
		Use:   "count <resource>",
		Short: "Count records of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.resource(args[0])
			if err != nil {
				return err
			}
			n, err := rc.Count(cmd.Context(), opts, "")
			if err != nil {
				return err
			}
			return a.print(map[string]any{"count": n})
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "status filter")
	return cmd
}

func (a *app) newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.resource(args[0])
			if err != nil {
				return err
			}
			rec, err := rc.Find(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s %s: empty response", args[0], args[1])
			}
			ok, err := rc.Destroy(cmd.Context(), rec)
			if err != nil {
				return err
			}
			return a.print(map[string]any{"deleted": ok})
		},
	}
}

// setter is satisfied by every model through the embedded Model.
type setter interface {
	Set(key string, value any)
}

func (a *app) newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <resource> <id> key=value...",
		Short: "Update attributes of one record",
		Long: "Update attributes of one record. Values are parsed as JSON when they can be, " +
			"so note=hi sets a string and inventory=3 sets a number. Only changed attributes are sent.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			rc, err := a.resource(args[0])
			if err != nil {
				return err
			}
			rec, err := rc.Find(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s %s: empty response", args[0], args[1])
			}
			s, ok := rec.(setter)
			if !ok {
				return fmt.Errorf("%s records are read-only", args[0])
			}
			for k, v := range attrs {
				s.Set(k, v)
			}
			saved, err := rc.Save(cmd.Context(), rec, "")
			if err != nil {
				return err
			}
			return a.print(saved)
		},
	}
}

// parseAssignments turns key=value pairs into attributes. A value that is
// not valid JSON is kept as a plain string.
func parseAssignments(pairs []string) (map[string]any, error) {
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		attrs[strings.TrimSpace(key)] = v
	}
	return attrs, nil
}

func (a *app) newScopesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scopes [list]",
		Short: "Print known access scopes, or normalize a comma separated list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scopes := shopify.AllScopes()
			if len(args) == 1 {
				parsed, err := shopify.ParseScopes(args[0])
				if err != nil {
					return err
				}
				scopes = parsed
			}
			return a.print(scopes)
		},
	}
}
