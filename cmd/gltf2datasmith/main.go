package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	datasmith "github.com/flywave/go-datasmith"
)

func main() {
	config := flag.String("config", "", "export options (toml)")
	out := flag.String("out", ".", "output directory")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] input.gltf\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	opts := datasmith.DefaultOptions()
	if *config != "" {
		var err error
		if opts, err = datasmith.LoadOptions(*config); err != nil {
			log.Fatal("load options", "err", err)
		}
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "gltf2datasmith",
		Level:           opts.Level(),
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	datasmith.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scene, err := datasmith.GltfToScene(flag.Arg(0))
	if err != nil {
		logger.Fatal("convert", "input", flag.Arg(0), "err", err)
	}
	if err := scene.Export(ctx, *out, opts); err != nil {
		logger.Fatal("export", "scene", scene.Name, "err", err)
	}
	logger.Info("done", "scene", scene.Name, "meshes", len(scene.Meshes), "textures", len(scene.Textures))
}
