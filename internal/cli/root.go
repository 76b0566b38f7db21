// Package cli implements the roomsync command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/goliatone/go-roomsync/settings"
	"github.com/goliatone/go-roomsync/settings/redisstore"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	redisAddr  string
	storeKey   string
	debug      bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "roomsync",
		Short: "Keep a room id in sync with an asynchronously loaded global API",
		Long: `roomsync runs a room bridge against a JavaScript host. Loader scripts
install a global namespace at any time; the bridge reads its room accessor on
push notifications and on a poll timer.`,
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "settings file (.yaml, .yml, .json, .jsonc)")
	flags.StringVar(&opts.redisAddr, "redis", "", "redis address holding stored settings")
	flags.StringVar(&opts.storeKey, "store-key", "extension", "key of the stored settings snapshot")
	flags.BoolVar(&opts.debug, "debug", false, "development logging")

	root.AddCommand(newWatchCommand(opts))
	root.AddCommand(newSettingsCommand(opts))
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (o *globalOptions) logger() (*zap.Logger, error) {
	if o.debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (o *globalOptions) store() (*redisstore.Store[settings.Settings], func(), error) {
	if o.redisAddr == "" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: o.redisAddr})
	return redisstore.New[settings.Settings](client), func() { _ = client.Close() }, nil
}

// bridgeFlags binds the flags layer. Only flags the user changed become set
// fields.
type bridgeFlags struct {
	namespace    string
	accessor     string
	notifierKey  string
	push         bool
	pollFallback bool
	interval     time.Duration
	pollWhen     string
	engine       string
}

func (f *bridgeFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.namespace, "namespace", settings.DefaultNamespace, "global namespace installed by the loader")
	flags.StringVar(&f.accessor, "accessor", settings.DefaultAccessor, "zero-argument room accessor on the namespace")
	flags.StringVar(&f.notifierKey, "notifier-key", settings.DefaultNotifierKey, "global key for the push callback")
	flags.BoolVar(&f.push, "push", true, "publish the push notifier")
	flags.BoolVar(&f.pollFallback, "poll-fallback", true, "poll even when push is enabled")
	flags.DurationVar(&f.interval, "interval", time.Duration(settings.DefaultPollInterval)*time.Millisecond, "poll interval")
	flags.StringVar(&f.pollWhen, "poll-when", settings.DefaultPollWhen, "polling policy expression")
	flags.StringVar(&f.engine, "engine", settings.DefaultRuleEngine, "policy engine: expr, cel or js")
}

func (f *bridgeFlags) layer(flags *pflag.FlagSet) settings.Settings {
	var s settings.Settings
	if flags.Changed("namespace") {
		s.Bridge.Namespace = settings.String(f.namespace)
	}
	if flags.Changed("accessor") {
		s.Bridge.Accessor = settings.String(f.accessor)
	}
	if flags.Changed("notifier-key") {
		s.Bridge.NotifierKey = settings.String(f.notifierKey)
	}
	if flags.Changed("push") {
		s.Bridge.Push = settings.Bool(f.push)
	}
	if flags.Changed("poll-fallback") {
		s.Bridge.PollFallback = settings.Bool(f.pollFallback)
	}
	if flags.Changed("interval") {
		s.Bridge.PollIntervalMS = settings.Int64(f.interval.Milliseconds())
	}
	if flags.Changed("poll-when") {
		s.Bridge.PollWhen = settings.String(f.pollWhen)
	}
	if flags.Changed("engine") {
		s.Bridge.RuleEngine = settings.String(f.engine)
	}
	return s
}

// resolve stacks file, stored, env and flag layers over the defaults.
func (o *globalOptions) resolve(ctx context.Context, flagsLayer settings.Settings) (*settings.Resolved, error) {
	var layers []settings.Layer[settings.Settings]

	if o.configPath != "" {
		file, err := settings.LoadFile(o.configPath)
		if err != nil {
			return nil, err
		}
		layers = append(layers, settings.FileLayer(file))
	}

	store, closeStore, err := o.store()
	if err != nil {
		return nil, err
	}
	defer closeStore()
	if store != nil {
		stored, ok, err := settings.LoadLayer(ctx, store, o.storeKey)
		if err != nil {
			return nil, err
		}
		if ok {
			layers = append(layers, stored)
		}
	}

	env, err := settings.FromEnv()
	if err != nil {
		return nil, err
	}
	layers = append(layers, settings.EnvLayer(env), settings.FlagsLayer(flagsLayer))
	return settings.Resolve(layers...)
}

// lockedWriter serialises writes coming from the event loop and the command
// goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}
