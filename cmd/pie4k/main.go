// Command pie4k drives the asset re-mastering pipeline from the command
// line: batch phase runners, a final transfer step, and an override
// sync, all against one configured installation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pie4k/pie4k/internal/app"
	"github.com/pie4k/pie4k/internal/config"
	"github.com/pie4k/pie4k/internal/restype"
)

func main() {
	cliApp := &cli.App{
		Name:  "pie4k",
		Usage: "re-master Infinity Engine game assets to a higher resolution",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file path",
				Value:   config.DefaultConfigPath,
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "bypass the operations tracker and reprocess every resource",
			},
		},
		Commands: []*cli.Command{
			batchCommand(),
			transferCommand(),
			syncCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// startApp loads configuration and wires every collaborator for one CLI
// invocation: one App per process run.
func startApp(c *cli.Context) (*app.App, error) {
	a, err := app.New(c.String("config"), os.Args[1:])
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := a.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	a.WaitArchiveReady()
	return a, nil
}

// exitCode turns a batch/transfer/sync boolean outcome into the
// process's exit code: 0 iff the invoked operation succeeded.
func exitCode(ok bool) error {
	if ok {
		return nil
	}
	return cli.Exit("operation reported failure, see logs", 1)
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "run an extract/upscale/assemble phase",
		Subcommands: []*cli.Command{
			{Name: "extractAll", Action: runAll(func(ctx context.Context, a *app.App) bool { return a.Orchestrator.ExtractAll(ctx) })},
			{Name: "upscaleAll", Action: runAll(func(ctx context.Context, a *app.App) bool { return a.Orchestrator.UpscaleAll(ctx) })},
			{Name: "assembleAll", Action: runAll(func(ctx context.Context, a *app.App) bool { return a.Orchestrator.AssembleAll(ctx) })},
			{Name: "complete", Action: runAll(func(ctx context.Context, a *app.App) bool { return a.Orchestrator.CompleteAll(ctx) })},
			{
				Name:      "extractType",
				Usage:     "extractType T",
				ArgsUsage: "T",
				Action:    runType(func(ctx context.Context, a *app.App, t restype.Type) bool { return a.Orchestrator.ExtractType(ctx, t) }),
			},
			{
				Name:      "upscaleType",
				Usage:     "upscaleType T",
				ArgsUsage: "T",
				Action:    runType(func(ctx context.Context, a *app.App, t restype.Type) bool { return a.Orchestrator.UpscaleType(ctx, t) }),
			},
			{
				Name:      "assembleType",
				Usage:     "assembleType T",
				ArgsUsage: "T",
				Action:    runType(func(ctx context.Context, a *app.App, t restype.Type) bool { return a.Orchestrator.AssembleType(ctx, t) }),
			},
			{
				Name:      "completeType",
				Usage:     "completeType T",
				ArgsUsage: "T",
				Action:    runType(func(ctx context.Context, a *app.App, t restype.Type) bool { return a.Orchestrator.CompleteType(ctx, t) }),
			},
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "copy assembled output into the final override tree",
		Subcommands: []*cli.Command{
			{Name: "all", Action: runAll(func(_ context.Context, a *app.App) bool { return a.Orchestrator.TransferAll() })},
			{
				Name:      "type",
				Usage:     "type T",
				ArgsUsage: "T",
				Action:    runType(func(_ context.Context, a *app.App, t restype.Type) bool { return a.Orchestrator.TransferType(t) }),
			},
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "copy the game's override directory into the target override tree",
		Subcommands: []*cli.Command{
			{
				Name: "override",
				Action: func(c *cli.Context) error {
					a, err := startApp(c)
					if err != nil {
						return err
					}
					defer a.Close()
					return exitCode(a.Orchestrator.SyncOverride() == nil)
				},
			},
		},
	}
}

func runAll(fn func(ctx context.Context, a *app.App) bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := startApp(c)
		if err != nil {
			return err
		}
		defer a.Close()
		return exitCode(fn(c.Context, a))
	}
}

func runType(fn func(ctx context.Context, a *app.App, t restype.Type) bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("usage: pie4k batch <phase>Type T", 1)
		}
		typ, ok := restype.ParseName(c.Args().First())
		if !ok {
			return cli.Exit(fmt.Sprintf("unknown resource type %q", c.Args().First()), 1)
		}
		a, err := startApp(c)
		if err != nil {
			return err
		}
		defer a.Close()
		return exitCode(fn(c.Context, a, typ))
	}
}
