package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namask/internal/logger"
	"github.com/samcharles93/namask/internal/ndarray"
)

func acquireCmd() *cli.Command {
	var (
		file   string
		own    bool
		format string
	)

	return &cli.Command{
		Name:  "acquire",
		Usage: "Load an array descriptor, acquire its NA mask and print the result",
		Flags: append(maskFlags(),
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "array descriptor (.json, .yaml)",
				Required:    true,
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "own",
				Usage:       "take ownership of a borrowed mask",
				Value:       true,
				Destination: &own,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output format (json, yaml)",
				Value:       "json",
				Destination: &format,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyMaskConfig(cmd, appConfig)

			desc, err := ndarray.LoadDescriptor(file)
			if err != nil {
				return err
			}
			a, err := ndarray.FromDescriptor(desc)
			if err != nil {
				return err
			}
			acq, err := newAcquirer(log)
			if err != nil {
				return err
			}
			if err := acq.Acquire(a, own, multiValued); err != nil {
				return err
			}
			log.Debug("mask ready", "file", file, "state", a.MaskState().String(), "mask_strides", a.MaskStrides())

			data, err := a.Describe().Encode(format)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			_, err = fmt.Fprintln(output(cmd), string(data))
			return err
		},
	}
}
