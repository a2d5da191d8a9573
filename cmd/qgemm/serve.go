package main

import (
	"context"
	"io"
	"net/http"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/kestrel-ml/qgemm/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags, threadsFlag(),
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the benchmark REST API",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, LoadConfig(), &addr)
			ctx = logger.WithContext(ctx, newLogger())
			log := logger.FromContext(ctx)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.GET("/v1/cpuinfo", handleCPUInfo)
			e.POST("/v1/bench", handleBench)

			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

func handleCPUInfo(c *echo.Context) error {
	return c.JSON(http.StatusOK, newCPUReport())
}

type benchRequest struct {
	benchShape
	Runs    int  `json:"runs"`
	Warmup  int  `json:"warmup"`
	Threads int  `json:"threads"`
	Profile bool `json:"profile"`
}

func handleBench(c *echo.Context) error {
	req, err := decodeJSON[benchRequest](c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	if req.Runs <= 0 {
		req.Runs = 3
	}
	if req.Threads <= 0 {
		req.Threads = int(threads)
	}
	if req.Threads <= 0 {
		req.Threads = runtime.GOMAXPROCS(0)
	}

	res, err := runBench(req.benchShape, req.Threads, req.Runs, req.Warmup, req.Profile, nil)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
