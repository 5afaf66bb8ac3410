package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	datasmith "github.com/flywave/go-datasmith"
)

func main() {
	out := flag.String("o", "", "output .glb (default: first input with .glb extension)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] mesh.udsmesh...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "udsmesh2gltf",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	datasmith.SetLogger(logger)

	meshes := make([]*datasmith.Mesh, 0, flag.NArg())
	for _, in := range flag.Args() {
		m, err := datasmith.MeshReadFrom(in)
		if err != nil {
			logger.Fatal("read mesh", "input", in, "err", err)
		}
		logger.Debug("read mesh", "name", m.Name, "triangles", m.TriangleCount(), "uvs", len(m.UVs))
		meshes = append(meshes, m)
	}

	doc, err := datasmith.MeshToGltf(meshes)
	if err != nil {
		logger.Fatal("build gltf", "err", err)
	}
	bt, err := datasmith.GetGltfBinary(doc, 8)
	if err != nil {
		logger.Fatal("encode gltf", "err", err)
	}
	dst := *out
	if dst == "" {
		first := flag.Arg(0)
		dst = strings.TrimSuffix(first, filepath.Ext(first)) + ".glb"
	}
	if err := os.WriteFile(dst, bt, 0o644); err != nil {
		logger.Fatal("write", "path", dst, "err", err)
	}
	logger.Info("done", "path", dst, "meshes", len(meshes))
}
