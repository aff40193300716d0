package main

import (
	"errors"

	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

var errNegative = errors.New("must not be negative")

func nonNegative(v int) error {
	if v < 0 {
		return errNegative
	}
	return nil
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tagsync",
		Usage:   "Read and write audio file tags",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default: XDG config, then ./config.toml)",
			},
			&cli.BoolFlag{
				Name:  "in-place",
				Usage: "Write tags directly into the file instead of replacing it",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Before:   r.Setup,
		After:    r.Close,
		Commands: []*cli.Command{showCommand(r), setCommand(r)},
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print the tags of audio files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-cover",
				Usage: "Do not read embedded cover art",
			},
		},
		Action: r.Show,
	}
}

// setFlags are the tag fields settable from the command line.
func setFlags() []cli.Flag {
	flags := []cli.Flag{}
	for _, f := range stringFields {
		flags = append(flags, &cli.StringFlag{
			Name:  f.name,
			Usage: "Set the " + f.name + " tag (empty clears it)",
		})
	}
	for _, f := range intFields {
		flags = append(flags, &cli.IntFlag{
			Name:      f.name,
			Usage:     "Set the " + f.name + " tag (0 clears it)",
			Validator: nonNegative,
		})
	}
	return flags
}

func setCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Update tags of audio files",
		ArgsUsage: "FILE...",
		Flags:     setFlags(),
		Action:    r.Set,
	}
}
