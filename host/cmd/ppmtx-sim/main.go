//go:build !tinygo

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"ppmtx/config"
	"ppmtx/core"
	"ppmtx/host/sim"
)

var (
	configPath = flag.String("config", "", "Model configuration JSON (default: built-in 3 channel car)")
	scale      = flag.Int("scale", 2, "Window scale factor")
	debug      = flag.Bool("debug", false, "Print debug output and dump the timing ring on exit")
)

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read config: %v\n", err)
			os.Exit(1)
		}
		if cfg, err = config.LoadConfig(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to parse config: %v\n", err)
			os.Exit(1)
		}
	}

	if *debug {
		core.SetDebugWriter(func(s string) {
			fmt.Println(s)
		})
		core.SetDebugEnabled(true)
		core.InitAsyncDebug()
	}

	s, err := sim.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s.Start()

	g := newGame(s)
	ebiten.SetWindowTitle("ppmtx sim - " + cfg.Model.Name)
	ebiten.SetWindowSize(screenWidth*(*scale), screenHeight*(*scale))
	ebiten.SetTPS(60)
	err = ebiten.RunGame(g)

	s.Stop()
	if *debug {
		core.DumpTimingRing()
	}
	if err != nil && err != errQuit {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
