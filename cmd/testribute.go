package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"testribute/model"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const (
	version           = "0.2.0"
	defaultConfigPath = "~/.testribute/config.yaml"
)

func expandConfigPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errors.Wrap(err, "cannot expand config path")
	}

	err = os.MkdirAll(filepath.Dir(expanded), 0o755)
	if err != nil {
		return "", errors.Wrap(err, "cannot create config directory")
	}

	return expanded, nil
}

func configFlag(destination *string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "path to the config file",
		Value:       defaultConfigPath,
		Destination: destination,
	}
}

func requestFromFlags(c *cli.Context) (model.Request, error) {
	mode, err := model.ParseMode(c.String("mode"))
	if err != nil {
		return model.Request{}, err
	}

	return model.Request{
		ResourceRequirements: &model.ResourceRequirements{
			CPUCores:         c.Int("cpu-cores"),
			RAMGb:            c.Float64("ram-gb"),
			DiskGb:           c.Float64("disk-gb"),
			ExecutionTimeSec: c.Int("execution-time-sec"),
		},
		TesURIs:   c.StringSlice("tes-uri"),
		ObjectIDs: c.StringSlice("object-id"),
		DrsURIs:   c.StringSlice("drs-uri"),
		Mode:      &mode,
		AuthToken: c.String("jwt"),
	}, nil
}

//nolint:funlen
func newApp(ctx context.Context) *cli.App {
	var configPath string

	return &cli.App{
		Name:    "testribute",
		Usage:   "rank combinations of task execution and data access services",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the ranking api",
				Flags: []cli.Flag{configFlag(&configPath)},
				Action: func(c *cli.Context) error {
					path, err := expandConfigPath(configPath)
					if err != nil {
						return err
					}

					return run(ctx, path)
				},
			},
			{
				Name:  "rank",
				Usage: "rank service combinations once and print the result as JSON",
				Flags: []cli.Flag{
					configFlag(&configPath),
					&cli.StringSliceFlag{Name: "tes-uri", Usage: "TES instance root URI", Required: true},
					&cli.IntFlag{Name: "cpu-cores", Usage: "requested CPU cores", Value: 1},
					&cli.Float64Flag{Name: "ram-gb", Usage: "requested memory in GB", Value: 1},
					&cli.Float64Flag{Name: "disk-gb", Usage: "requested disk space in GB", Value: 1},
					&cli.IntFlag{Name: "execution-time-sec", Usage: "expected execution time in seconds", Required: true},
					&cli.StringSliceFlag{Name: "object-id", Usage: "DRS object id of an input"},
					&cli.StringSliceFlag{Name: "drs-uri", Usage: "DRS instance root URI"},
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "cost, time, random or a weight between 0 (cost) and 1 (time)",
						Value:   "0.5",
					},
					&cli.StringFlag{Name: "jwt", Usage: "bearer token forwarded to TES and DRS instances"},
				},
				Action: func(c *cli.Context) error {
					path, err := expandConfigPath(configPath)
					if err != nil {
						return err
					}

					request, err := requestFromFlags(c)
					if err != nil {
						return err
					}

					response, err := rankOnce(ctx, path, request)
					if err != nil {
						return err
					}

					out, err := json.MarshalIndent(response, "", "  ")
					if err != nil {
						return errors.Wrap(err, "cannot marshal response")
					}

					// nolint:forbidigo
					fmt.Println(string(out))
					return nil
				},
			},
		},
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(ctx).Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
