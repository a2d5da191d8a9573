package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/kestrel-ml/qgemm/internal/logger"
	"github.com/kestrel-ml/qgemm/pkg/gemm"
	"github.com/kestrel-ml/qgemm/pkg/packfile"
	"github.com/kestrel-ml/qgemm/pkg/requant"
)

type benchShape struct {
	M       int `yaml:"m" json:"m"`
	N       int `yaml:"n" json:"n"`
	K       int `yaml:"k" json:"k"`
	Batches int `yaml:"batches" json:"batches,omitempty"`
	Multis  int `yaml:"multis" json:"multis,omitempty"`
}

type benchRun struct {
	Duration time.Duration `json:"duration_ns"`
	GOPS     float64       `json:"gops"`
}

type benchResult struct {
	Shape   benchShape        `json:"shape"`
	Threads int               `json:"threads"`
	Config  gemm.Config       `json:"config"`
	Runs    []benchRun        `json:"runs"`
	AvgGOPS float64           `json:"avg_gops"`
	Phases  []gemm.PhaseStats `json:"phases,omitempty"`
}

type benchReport struct {
	RunID     string        `json:"run_id"`
	CreatedAt time.Time     `json:"created_at"`
	CPU       cpuReport     `json:"cpu"`
	Results   []benchResult `json:"results"`
}

// quantParams builds the requantization configuration the tools use: a
// fixed output scale with the given operand zero points.
func quantParams(aOffset, bOffset int32) requant.Params {
	mul, lshift, rshift := requant.QuantizeMultiplier(0.02)
	return requant.Params{
		AOffset:            aOffset,
		BOffset:            bOffset,
		PerLayerMul:        mul,
		PerLayerLeftShift:  lshift,
		PerLayerRightShift: rshift,
		MinVal:             -128,
		MaxVal:             127,
	}
}

// runBench times the engine over one problem shape. When packed is
// non-nil its payload is adopted directly instead of repacking the
// weights, after checking that it was packed for this exact problem.
func runBench(shape benchShape, nthreads, runs, warmup int, profile bool, packed *packfile.File) (benchResult, error) {
	if shape.M <= 0 || shape.N <= 0 || shape.K <= 0 {
		return benchResult{}, fmt.Errorf("invalid shape %dx%dx%d", shape.M, shape.N, shape.K)
	}
	if shape.Batches <= 0 {
		shape.Batches = 1
	}
	if shape.Multis <= 0 {
		shape.Multis = 1
	}
	if nthreads <= 0 {
		nthreads = runtime.GOMAXPROCS(0)
	}

	qp := quantParams(3, -2)
	if packed != nil {
		g := packed.Geometry()
		qp = quantParams(g.AOffset, g.BOffset)
	}

	args := gemm.Args{
		M:          shape.M,
		N:          shape.N,
		K:          shape.K,
		Batches:    shape.Batches,
		Multis:     shape.Multis,
		MaxThreads: nthreads,
	}
	e := gemm.NewHybridQuantized[int8, int8](gemm.DotInt8Kernel{}, args, qp)

	rng := rand.New(rand.NewSource(42))
	a := make([]int8, shape.Multis*shape.Batches*shape.M*shape.K)
	b := make([]int8, shape.Multis*shape.K*shape.N)
	c := make([]int8, shape.Multis*shape.Batches*shape.M*shape.N)
	for i := range a {
		a[i] = int8(rng.Intn(256) - 128)
	}
	for i := range b {
		b[i] = int8(rng.Intn(256) - 128)
	}

	e.SetArrays(
		a, shape.K, shape.M*shape.K, shape.Batches*shape.M*shape.K,
		c, shape.N, shape.M*shape.N, shape.Batches*shape.M*shape.N,
	)
	e.SetWorkingSpace(make([]int32, e.WorkingSize()/4))

	if packed != nil {
		if err := checkPackedGeometry(packed.Geometry(), shape, e.Config()); err != nil {
			return benchResult{}, err
		}
		if got, want := len(packed.Payload()), e.BPretransposedArraySize(); got != want {
			return benchResult{}, fmt.Errorf("packed payload is %d bytes, engine needs %d", got, want)
		}
		e.SetPretransposedBData(packed.Payload())
	} else {
		buf := make([]byte, e.BPretransposedArraySize())
		e.PretransposeB(buf, b, shape.N, shape.K*shape.N, false)
	}

	for i := 0; i < warmup; i++ {
		gemm.Run[int8, int8](e, nthreads)
	}

	var rec *gemm.Recorder
	if profile {
		rec = &gemm.Recorder{}
		e.SetProfiler(rec)
	}

	ops := 2 * float64(shape.M) * float64(shape.N) * float64(shape.K) *
		float64(shape.Batches) * float64(shape.Multis)

	res := benchResult{
		Shape:   shape,
		Threads: nthreads,
		Config:  e.Config(),
		Runs:    make([]benchRun, 0, runs),
	}
	var sum float64
	for i := 0; i < runs; i++ {
		start := time.Now()
		gemm.Run[int8, int8](e, nthreads)
		dur := time.Since(start)

		gops := ops / dur.Seconds() / 1e9
		sum += gops
		res.Runs = append(res.Runs, benchRun{Duration: dur, GOPS: gops})
	}
	if runs > 0 {
		res.AvgGOPS = sum / float64(runs)
	}
	if rec != nil {
		res.Phases = rec.Stats()
	}
	return res, nil
}

func checkPackedGeometry(g packfile.Geometry, shape benchShape, cfg gemm.Config) error {
	strat := gemm.DotInt8Kernel{}
	switch {
	case g.N != shape.N || g.K != shape.K || g.Multis != shape.Multis:
		return fmt.Errorf("pack is for n=%d k=%d multis=%d, problem is n=%d k=%d multis=%d",
			g.N, g.K, g.Multis, shape.N, shape.K, shape.Multis)
	case g.OutWidth != strat.OutWidth() || g.KUnroll != strat.KUnroll():
		return fmt.Errorf("pack kernel layout %dx%d does not match %dx%d",
			g.OutWidth, g.KUnroll, strat.OutWidth(), strat.KUnroll())
	case g.InnerBlock != cfg.InnerBlockSize || g.OuterBlock != cfg.OuterBlockSize:
		return fmt.Errorf("pack blocking %d/%d does not match engine %d/%d",
			g.InnerBlock, g.OuterBlock, cfg.InnerBlockSize, cfg.OuterBlockSize)
	}
	return nil
}

func loadShapes(path string) ([]benchShape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var shapes []benchShape
	if err := yaml.Unmarshal(data, &shapes); err != nil {
		return nil, fmt.Errorf("parse shapes file %q: %w", path, err)
	}
	if len(shapes) == 0 {
		return nil, fmt.Errorf("shapes file %q is empty", path)
	}
	return shapes, nil
}

func benchCmd() *cli.Command {
	var (
		m, n, k    int64
		batches    int64
		multis     int64
		runs       int64
		warmupRuns int64
		shapesPath string
		packedPath string
		outPath    string
		profile    bool
	)

	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags, threadsFlag(),
		&cli.Int64Flag{Name: "m", Usage: "output rows", Value: 256, Destination: &m},
		&cli.Int64Flag{Name: "n", Usage: "output columns", Value: 256, Destination: &n},
		&cli.Int64Flag{Name: "k", Usage: "reduction depth", Value: 256, Destination: &k},
		&cli.Int64Flag{Name: "batches", Usage: "activation batches", Value: 1, Destination: &batches},
		&cli.Int64Flag{Name: "multis", Usage: "independent problems", Value: 1, Destination: &multis},
		&cli.Int64Flag{Name: "runs", Usage: "number of timed runs", Value: 5, Destination: &runs},
		&cli.Int64Flag{Name: "warmup", Usage: "number of warmup runs", Value: 1, Destination: &warmupRuns},
		&cli.StringFlag{
			Name:        "shapes",
			Usage:       "YAML file with a list of shapes to sweep",
			Destination: &shapesPath,
		},
		&cli.StringFlag{
			Name:        "packed",
			Usage:       "reuse a weight pack file instead of packing in-process",
			Destination: &packedPath,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "write the JSON report to this path instead of stdout",
			Destination: &outPath,
		},
		&cli.BoolFlag{
			Name:        "profile",
			Usage:       "record per-phase timings",
			Destination: &profile,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Benchmark the engine over one or more problem shapes",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			ctx = logger.WithContext(ctx, newLogger())
			log := logger.FromContext(ctx)

			shapes := []benchShape{{
				M: int(m), N: int(n), K: int(k),
				Batches: int(batches), Multis: int(multis),
			}}
			if shapesPath != "" {
				var err error
				shapes, err = loadShapes(shapesPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			var packed *packfile.File
			if packedPath != "" {
				if len(shapes) != 1 {
					return cli.Exit("error: --packed requires a single shape", 1)
				}
				pf, err := packfile.Open(packedPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: open pack %q: %v", packedPath, err), 1)
				}
				defer func() { _ = pf.Close() }()
				packed = pf
			}

			report := benchReport{
				RunID:     "bench_" + uuid.NewString(),
				CreatedAt: time.Now().UTC(),
				CPU:       newCPUReport(),
			}
			for _, shape := range shapes {
				log.Info("benchmarking",
					"m", shape.M, "n", shape.N, "k", shape.K,
					"batches", shape.Batches, "multis", shape.Multis)
				res, err := runBench(shape, int(threads), int(runs), int(warmupRuns), profile, packed)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				log.Info("result", "avg_gops", fmt.Sprintf("%.2f", res.AvgGOPS))
				report.Results = append(report.Results, res)
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: encode report: %v", err), 1)
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
					return cli.Exit(fmt.Sprintf("error: write report: %v", err), 1)
				}
				log.Info("report written", "path", outPath)
				return nil
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
