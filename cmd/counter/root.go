package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/on-the-ground/saga_ive_go/binding"
	"github.com/on-the-ground/saga_ive_go/config"
	"github.com/on-the-ground/saga_ive_go/lens"
	"github.com/on-the-ground/saga_ive_go/log"
	"github.com/on-the-ground/saga_ive_go/saga"
	"github.com/on-the-ground/saga_ive_go/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions holds the command line flags.
type rootOptions struct {
	Debug      bool
	ConfigPath string
	Ops        string
	Ticks      bool
	LogFormat  string
}

var (
	ErrInvalidOp        = errors.New("invalid op")
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// newLogger builds the console logger for humans or the production JSON
// logger for log collectors.
func newLogger(format string, cfg config.Config) (*zap.Logger, error) {
	switch format {
	case "console":
		return log.NewConsole(cfg), nil
	case "json":
		return log.New(cfg)
	default:
		return nil, fmt.Errorf("%w %q: must be console or json", ErrInvalidLogFormat, format)
	}
}

var (
	increment = store.NewActionCreator("increment", func(args ...any) store.Update {
		return func(v any) any {
			return map[string]any{"count": count(v) + 1}
		}
	})
	decrement = store.NewActionCreator("decrement", func(args ...any) store.Update {
		return func(v any) any {
			return map[string]any{"count": count(v) - 1}
		}
	})
)

func count(v any) int {
	n, _ := lens.ViewAs[int](lens.Make("count"), v)
	return n
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Run the counter example",
		Long: "Binds a counter at defaultCounter, applies the given increments (+) and " +
			"decrements (-), and prints the final count, the number of change " +
			"notifications and the increments seen by the watching saga.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.ConfigPath != "" {
				loaded, err := config.Load(opts.ConfigPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			cfg.Debug = cfg.Debug || opts.Debug

			logger, err := newLogger(opts.LogFormat, cfg)
			if err != nil {
				return err
			}
			defer log.Sync(logger)

			ops, err := parseOps(opts.Ops)
			if err != nil {
				return err
			}
			return runCounter(cmd.Context(), cmd.OutOrStdout(), cfg, logger, ops, opts.Ticks)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, config.KeyDebug, false, "log every dispatched action and committed state")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&opts.Ops, "ops", "", "comma separated ops, + to increment and - to decrement")
	cmd.Flags().BoolVar(&opts.Ticks, "ticks", false, "dispatch every op in its own tick instead of one batch")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "console", "log output format (console|json)")

	return cmd
}

func parseOps(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ops []string
	for _, op := range strings.Split(s, ",") {
		switch op = strings.TrimSpace(op); op {
		case "+", "inc", "increment":
			ops = append(ops, increment.Name)
		case "-", "dec", "decrement":
			ops = append(ops, decrement.Name)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidOp, op)
		}
	}
	return ops, nil
}

// countIncrements spawns a child for every increment; the children count.
func countIncrements(seen *atomic.Int64) saga.Saga {
	return func(fx *saga.Effects) error {
		_, err := fx.TakeEvery(increment, func(fx *saga.Effects) error {
			seen.Add(1)
			return nil
		})
		return err
	}
}

func runCounter(ctx context.Context, out io.Writer, cfg config.Config, logger *zap.Logger, ops []string, ticks bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, endStore := store.New(ctx, map[string]any{},
		store.WithConfig(cfg),
		store.WithLogger(logger),
	)
	defer endStore()

	var renders, increments atomic.Int64
	b, err := binding.New(ctx, st, binding.Options{
		Path:    []lens.Key{"defaultCounter"},
		Initial: map[string]any{"count": 0},
		Actions: map[string]*store.ActionCreator{
			increment.Name: increment,
			decrement.Name: decrement,
		},
		Saga:    countIncrements(&increments),
		Renders: &renders,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	actions := b.Actions()
	if ticks {
		for _, op := range ops {
			if err := st.Await(ctx, func() { actions[op]() }); err != nil {
				return err
			}
		}
	} else if err := st.Await(ctx, func() {
		for _, op := range ops {
			actions[op]()
		}
	}); err != nil {
		return err
	}
	if err := st.Drain(ctx); err != nil {
		return err
	}

	n, _ := b.View("count")
	logger.Debug("counter finished", log.Fields(map[string]any{
		"count":         n,
		"notifications": renders.Load(),
		"increments":    increments.Load(),
		"commits":       st.Commits(),
	})...)

	_, err = fmt.Fprintf(out, "count: %v\nnotifications: %d\nincrements seen: %d\n",
		n, renders.Load(), increments.Load())
	return err
}
