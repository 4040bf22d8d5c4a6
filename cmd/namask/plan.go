package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namask/internal/ndarray"
	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

type planOutput struct {
	Shape       []int  `json:"shape"`
	Strides     []int  `json:"strides"`
	Order       []int  `json:"order"`
	MaskDType   string `json:"mask_dtype"`
	MaskStrides []int  `json:"mask_strides"`
	MaskBytes   int    `json:"mask_bytes"`
}

func planCmd() *cli.Command {
	var (
		shapeArg   string
		stridesArg string
		dtypeName  string
		multi      bool
	)

	return &cli.Command{
		Name:  "plan",
		Usage: "Print the mask layout an array of the given shape and strides would get",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "shape",
				Usage:       "comma separated dimensions, empty for a scalar",
				Destination: &shapeArg,
			},
			&cli.StringFlag{
				Name:        "strides",
				Usage:       "comma separated byte strides (default C order)",
				Destination: &stridesArg,
			},
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "element type used for default strides",
				Value:       "float64",
				Destination: &dtypeName,
			},
			&cli.BoolFlag{
				Name:        "multi",
				Aliases:     []string{"multi-valued"},
				Usage:       "plan a multi-valued mask",
				Destination: &multi,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			shape, err := parseInts(shapeArg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("shape: %v", err), 2)
			}
			if err := strided.CheckShape(shape); err != nil {
				return cli.Exit(err.Error(), 2)
			}
			strides, err := parseInts(stridesArg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("strides: %v", err), 2)
			}
			if !cmd.IsSet("strides") {
				dt, err := dtype.Parse(dtypeName)
				if err != nil {
					return cli.Exit(err.Error(), 2)
				}
				if err := strided.CheckExtent(shape, dt.Size()); err != nil {
					return cli.Exit(err.Error(), 2)
				}
				strides = strided.ContiguousStrides(shape, dt.Size())
			}

			l, err := ndarray.PlanLayout(shape, strides, multi)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(planOutput{
				Shape:       shape,
				Strides:     strides,
				Order:       l.Order,
				MaskDType:   l.MaskType.String(),
				MaskStrides: l.MaskStrides,
				MaskBytes:   l.MaskBytes,
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(output(cmd), string(data))
			return err
		},
	}
}

// parseInts parses a comma separated list such as "3,4". An empty string
// is an empty list.
func parseInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
