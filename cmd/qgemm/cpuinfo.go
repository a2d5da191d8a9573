package main

import (
	"context"
	"fmt"
	"runtime"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/kestrel-ml/qgemm/pkg/cpuinfo"
)

type cpuReport struct {
	Arch     string `json:"arch"`
	CPUs     int    `json:"cpus"`
	MaxProcs int    `json:"max_procs"`

	HasAVX2   bool `json:"has_avx2"`
	HasAVX512 bool `json:"has_avx512"`
	HasNEON   bool `json:"has_neon"`

	L1CacheBytes int `json:"l1_cache_bytes"`
	L2CacheBytes int `json:"l2_cache_bytes"`
}

func newCPUReport() cpuReport {
	info := cpuinfo.Detect()
	return cpuReport{
		Arch:         runtime.GOARCH,
		CPUs:         runtime.NumCPU(),
		MaxProcs:     runtime.GOMAXPROCS(0),
		HasAVX2:      info.HasAVX2,
		HasAVX512:    info.HasAVX512,
		HasNEON:      info.HasNEON,
		L1CacheBytes: info.L1Size(),
		L2CacheBytes: info.L2Size(),
	}
}

func cpuInfoCmd() *cli.Command {
	return &cli.Command{
		Name:  "cpuinfo",
		Usage: "Print detected CPU features and cache sizes as JSON",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := json.MarshalIndent(newCPUReport(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
