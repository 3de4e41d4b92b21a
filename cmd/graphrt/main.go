// Package main provides the graphrt CLI: load a compiled graph, feed it
// input, run it, and print its output.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/graphrt-go/graphrt/executor"
	"github.com/graphrt-go/graphrt/internal/backend"
	"github.com/graphrt-go/graphrt/internal/backend/cpu"
	webgpubackend "github.com/graphrt-go/graphrt/internal/backend/webgpu"
	"github.com/graphrt-go/graphrt/internal/kernel"
	"github.com/graphrt-go/graphrt/internal/tensor"
	"github.com/graphrt-go/graphrt/internal/textenc"
)

const version = "v0.1.0-dev"

func main() {
	var (
		device      = flag.String("device", "cpu", "target device: cpu or webgpu")
		paramsPath  = flag.String("params", "", "path to a binary parameter blob to load")
		text        = flag.String("text", "", "tokenize this text with tiktoken and feed it as the named input")
		inputName   = flag.String("input-name", "", "input name to bind -text's tokens to (required with -text)")
		outputIndex = flag.Int("output-index", 0, "output index to print")
		debug       = flag.Bool("debug", false, "scan intermediate tensors for NaN/Inf while running")
		showVersion = flag.Bool("version", false, "show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("graphrt %s (%s)\n", version, runtime.Version())
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <graph.json>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	graphText, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("graphrt: read graph file: %v", err)
	}

	be, dev, err := selectBackend(*device)
	if err != nil {
		log.Fatalf("graphrt: %v", err)
	}
	if closer, ok := be.(interface{ Close() }); ok {
		defer closer.Close()
	}

	ex, err := executor.New(graphText, kernel.NewRegistry(), be, dev, 0, *debug)
	if err != nil {
		log.Fatalf("graphrt: construct executor: %v", err)
	}
	defer func() { _ = ex.Close() }()

	if *paramsPath != "" {
		blob, err := os.ReadFile(*paramsPath)
		if err != nil {
			log.Fatalf("graphrt: read params file: %v", err)
		}
		if err := ex.LoadParams(blob); err != nil {
			log.Fatalf("graphrt: load params: %v", err)
		}
	}

	if *text != "" {
		if *inputName == "" {
			log.Fatalf("graphrt: -text requires -input-name")
		}
		enc, err := textenc.New("cl100k_base")
		if err != nil {
			log.Fatalf("graphrt: %v", err)
		}
		if err := ex.SetInput(*inputName, enc.Encode(*text)); err != nil {
			log.Fatalf("graphrt: set input %q: %v", *inputName, err)
		}
	}

	if *debug {
		err = ex.DebugRun(executor.CheckNaN|executor.CheckInf, func(entryID int, dtype tensor.DType, shape tensor.Shape, ptr uintptr) {
			fmt.Fprintf(os.Stderr, "entry %d: %s%s\n", entryID, dtype, shape)
		})
	} else {
		err = ex.Run()
	}
	if err != nil {
		log.Fatalf("graphrt: run: %v", err)
	}

	fmt.Printf("outputs: %s\n", ex.GetOutputNames())

	shape, dtype, err := ex.OutputShape(*outputIndex)
	if err != nil {
		log.Fatalf("graphrt: %v", err)
	}
	dst := tensor.NewView(&tensor.Buffer{Data: make([]byte, tensor.ByteSize(shape, dtype)), Device: tensor.CPU}, 0, shape, dtype)
	if err := ex.GetOutput(*outputIndex, dst); err != nil {
		log.Fatalf("graphrt: get output: %v", err)
	}
	fmt.Printf("output[%d] %s%s: %v\n", *outputIndex, dtype, shape, previewBytes(dst))
}

func previewBytes(v tensor.View) any {
	if v.DType.Code == tensor.CodeFloat && v.DType.Bits == 32 {
		return v.AsFloat32()
	}
	return v.Bytes()
}

func selectBackend(name string) (backend.Backend, tensor.Device, error) {
	switch name {
	case "cpu", "":
		return cpu.New(), tensor.CPU, nil
	case "webgpu":
		b, err := webgpubackend.New()
		if err != nil {
			return nil, tensor.WebGPU, err
		}
		return b, tensor.WebGPU, nil
	default:
		return nil, tensor.CPU, fmt.Errorf("unknown device %q: want cpu or webgpu", name)
	}
}
