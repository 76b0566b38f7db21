package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-roomsync/settings"
)

type settingsOptions struct {
	describe bool
	explain  string
	format   string
	bridge   bridgeFlags
}

func newSettingsCommand(global *globalOptions) *cobra.Command {
	opts := &settingsOptions{}
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the effective settings or explain where a value came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettings(cmd, global, opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.describe, "describe", false, "list every setting with its environment variable and default")
	flags.StringVar(&opts.explain, "explain", "", "trace a path such as bridge.poll_interval_ms")
	flags.StringVar(&opts.format, "format", "yaml", "output format: yaml or json")
	opts.bridge.bind(flags)

	cmd.AddCommand(newSettingsSetCommand(global))
	return cmd
}

func runSettings(cmd *cobra.Command, global *globalOptions, opts *settingsOptions) error {
	out := cmd.OutOrStdout()
	if opts.describe {
		for _, field := range settings.Describe() {
			fmt.Fprintf(out, "%-36s %-7s %-40s %v\n", field.Path, field.Type, field.Env, field.Default)
		}
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	resolved, err := global.resolve(ctx, opts.bridge.layer(cmd.Flags()))
	if err != nil {
		return err
	}

	if opts.explain != "" {
		trace, err := resolved.Trace(opts.explain)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", trace.Path)
		for _, layer := range trace.Layers {
			marker := " "
			if winner, ok := trace.Winner(); ok && winner.Scope.Name == layer.Scope.Name {
				marker = "*"
			}
			value := "-"
			if layer.Found {
				value = fmt.Sprint(layer.Value)
			}
			fmt.Fprintf(out, "%s %-8s %4d  %s\n", marker, layer.Scope.Name, layer.Scope.Priority, value)
		}
		return nil
	}

	format := settings.Format(strings.ToLower(opts.format))
	if format == settings.FormatJSON {
		data, err := json.MarshalIndent(resolved.Effective, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}
	data, err := settings.Encode(resolved.Merged, format)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func newSettingsSetCommand(global *globalOptions) *cobra.Command {
	var etag string
	cmd := &cobra.Command{
		Use:   "set path=value...",
		Short: "Update the stored settings snapshot in redis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, closeStore, err := global.store()
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return fmt.Errorf("settings set requires --redis")
			}
			_, meta, err := settings.Mutate[settings.Settings](ctx, store, global.storeKey, settings.Meta{ETag: etag}, func(s *settings.Settings) error {
				for _, arg := range args {
					if err := assign(s, arg); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s etag=%s\n", global.storeKey, meta.ETag)
			return nil
		},
	}
	cmd.Flags().StringVar(&etag, "etag", "", "fail unless the stored snapshot has this etag")
	return cmd
}

// assign applies one path=value pair to s.
func assign(s *settings.Settings, pair string) error {
	path, raw, ok := strings.Cut(pair, "=")
	if !ok {
		return fmt.Errorf("expected path=value, got %q", pair)
	}
	path = strings.TrimSpace(path)
	raw = strings.TrimSpace(raw)

	parseBool := func() (*bool, error) {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &v, nil
	}

	var err error
	switch path {
	case "bridge.namespace":
		s.Bridge.Namespace = settings.String(raw)
	case "bridge.accessor":
		s.Bridge.Accessor = settings.String(raw)
	case "bridge.notifier_key":
		s.Bridge.NotifierKey = settings.String(raw)
	case "bridge.poll_when":
		s.Bridge.PollWhen = settings.String(raw)
	case "bridge.rule_engine":
		s.Bridge.RuleEngine = settings.String(raw)
	case "bridge.push":
		s.Bridge.Push, err = parseBool()
	case "bridge.poll_fallback":
		s.Bridge.PollFallback, err = parseBool()
	case "extension.roboscape_beep":
		s.Extension.Beeps, err = parseBool()
	case "extension.roboscape_id_billboards":
		s.Extension.IDBillboards, err = parseBool()
	case "bridge.poll_interval_ms":
		v, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			return fmt.Errorf("%s: %w", path, perr)
		}
		s.Bridge.PollIntervalMS = &v
	default:
		return fmt.Errorf("unknown settings path %q (known: %s)", path, strings.Join(settings.Paths(), ", "))
	}
	return err
}
