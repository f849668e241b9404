package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/born-ml/born-prune/internal/importance"
	"github.com/born-ml/born-prune/internal/logging"
	"github.com/born-ml/born-prune/internal/parallel"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-dev"
	commit  = ""
)

// Flag names.
const (
	debugFlag    = "debug"
	workersFlag  = "workers"
	formatFlag   = "format"
	manifestFlag = "manifest"
	weightsFlag  = "weights"
	outFlag      = "out"
)

func formatOption() cli.Flag {
	return &cli.StringFlag{
		Name:  formatFlag,
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
}

func inputOptions() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     manifestFlag,
			Aliases:  []string{"m"},
			Usage:    "Path to the pruning manifest (YAML)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     weightsFlag,
			Aliases:  []string{"w"},
			Usage:    "Path to the safetensors state dict",
			Required: true,
		},
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "born-prune",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Usage:   "Structured pruning of parameter groups by importance",
		Writer:  out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  debugFlag,
				Usage: "Prints verbose logs",
			},
			&cli.IntFlag{
				Name:  workersFlag,
				Usage: "Groups scored concurrently (0: one per CPU)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := "info"
			if cmd.Bool(debugFlag) {
				level = "debug"
			}
			logging.SetDefaultCLILogger(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			scoreCmd(out),
			pruneCmd(out),
			criteriaCmd(out),
		},
	}
}

func scoreCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Compute importance scores and report the units that would be pruned",
		Flags: append(inputOptions(), formatOption()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			job, err := load(cmd.String(manifestFlag), cmd.String(weightsFlag))
			if err != nil {
				return err
			}
			rep, err := job.score(ctx, workers(cmd))
			if err != nil {
				return err
			}
			return encode(out, cmd.String(formatFlag), rep)
		},
	}
}

func pruneCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Zero the least important units and write the pruned state dict",
		Flags: append(inputOptions(), formatOption(), &cli.StringFlag{
			Name:     outFlag,
			Aliases:  []string{"o"},
			Usage:    "Path of the pruned safetensors file",
			Required: true,
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			job, err := load(cmd.String(manifestFlag), cmd.String(weightsFlag))
			if err != nil {
				return err
			}
			rep, err := job.score(ctx, workers(cmd))
			if err != nil {
				return err
			}
			if err := job.apply(rep, cmd.String(outFlag)); err != nil {
				return err
			}
			return encode(out, cmd.String(formatFlag), rep)
		},
	}
}

func criteriaCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "criteria",
		Usage: "List the supported importance criteria",
		Action: func(_ context.Context, _ *cli.Command) error {
			for _, c := range importance.Criteria() {
				if _, err := fmt.Fprintln(out, c); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func workers(cmd *cli.Command) parallel.Config {
	return parallel.DefaultConfig().WithWorkers(int(cmd.Int(workersFlag)))
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML, "yml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case formatJSON, "":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
