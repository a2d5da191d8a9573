package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kestrel-ml/qgemm/internal/logger"
	"github.com/kestrel-ml/qgemm/pkg/gemm"
	"github.com/kestrel-ml/qgemm/pkg/packfile"
)

func packCmd() *cli.Command {
	var (
		inPath  string
		outPath string
		n, k    int64
		multis  int64
		aOffset int64
		bOffset int64
	)

	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "in",
			Aliases:     []string{"i"},
			Usage:       "raw signed 8-bit weights, row-major K x N per multi",
			Required:    true,
			Destination: &inPath,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output weight pack path",
			Required:    true,
			Destination: &outPath,
		},
		&cli.Int64Flag{Name: "n", Usage: "weight columns", Required: true, Destination: &n},
		&cli.Int64Flag{Name: "k", Usage: "weight rows (reduction depth)", Required: true, Destination: &k},
		&cli.Int64Flag{Name: "multis", Usage: "independent weight matrices", Value: 1, Destination: &multis},
		&cli.Int64Flag{Name: "a-offset", Usage: "activation zero point baked into the bias segment", Destination: &aOffset},
		&cli.Int64Flag{Name: "b-offset", Usage: "weight zero point", Destination: &bOffset},
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "Repack raw weights into a memory-mappable weight pack",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			ctx = logger.WithContext(ctx, newLogger())
			log := logger.FromContext(ctx)

			if n <= 0 || k <= 0 || multis <= 0 {
				return cli.Exit("error: n, k and multis must be positive", 1)
			}

			raw, err := os.ReadFile(inPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read weights: %v", err), 1)
			}
			want := int(k) * int(n) * int(multis)
			if len(raw) != want {
				return cli.Exit(fmt.Sprintf("error: %q is %d bytes, want k*n*multis = %d",
					inPath, len(raw), want), 1)
			}
			weights := make([]int8, len(raw))
			for i, v := range raw {
				weights[i] = int8(v)
			}

			qp := quantParams(int32(aOffset), int32(bOffset))
			e := gemm.NewHybridQuantized[int8, int8](gemm.DotInt8Kernel{}, gemm.Args{
				M: 1, N: int(n), K: int(k), Multis: int(multis),
			}, qp)

			buf := make([]byte, e.BPretransposedArraySize())
			e.PretransposeB(buf, weights, int(n), int(k)*int(n), false)

			strat := gemm.DotInt8Kernel{}
			cfg := e.Config()
			g := packfile.Geometry{
				N:          int(n),
				K:          int(k),
				Multis:     int(multis),
				OutWidth:   strat.OutWidth(),
				KUnroll:    strat.KUnroll(),
				InnerBlock: cfg.InnerBlockSize,
				OuterBlock: cfg.OuterBlockSize,
				AOffset:    int32(aOffset),
				BOffset:    int32(bOffset),
			}
			if err := packfile.Write(outPath, g, buf); err != nil {
				return cli.Exit(fmt.Sprintf("error: write pack: %v", err), 1)
			}

			log.Info("weights packed",
				"in", inPath, "out", outPath,
				"n", n, "k", k, "multis", multis,
				"payload_bytes", len(buf))
			return nil
		},
	}
}
