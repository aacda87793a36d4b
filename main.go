package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwsl/sstv-martinm1/audio_extensions/sstv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("sstv: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sstvcli <encode|decode|serve> [flags]")
}

// runEncode reads a PNG image and writes a Martin M1 WAV file.
func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	in := fs.String("in", "", "input PNG image path")
	out := fs.String("out", "out.wav", "output WAV path")
	mode := fs.String("mode", "martinm1", "sstv mode name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	src, err := readSourceImage(*in)
	if err != nil {
		return err
	}

	m, ok := sstv.DefaultRegistry.New(*mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", *mode)
	}
	signal := m.Encode(src)
	samples := signal.RenderSamples()

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating output WAV: %w", err)
	}
	defer f.Close()

	if err := WriteWAV(f, samples, sstv.SampleRate); err != nil {
		return fmt.Errorf("writing WAV: %w", err)
	}
	log.Printf("encoded %s -> %s (%d samples, %s)", *in, *out, len(samples), *mode)
	return nil
}

// runDecode reads a WAV file and writes the decoded PNG image, once
// Decode returns something other than NoneFound.
func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	in := fs.String("in", "", "input WAV path")
	out := fs.String("out", "out.png", "output PNG path")
	mode := fs.String("mode", "martinm1", "sstv mode name")
	chunkFrames := fs.Int("chunk", 4096, "samples fed to Decode per call")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	f, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("opening input WAV: %w", err)
	}
	defer f.Close()

	pcm, sampleRate, err := ReadWAV(f)
	if err != nil {
		return fmt.Errorf("reading WAV: %w", err)
	}
	if sampleRate != sstv.SampleRate {
		log.Printf("warning: WAV sample rate %d does not match decoder's %d", sampleRate, sstv.SampleRate)
	}

	m, ok := sstv.DefaultRegistry.New(*mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", *mode)
	}

	var result sstv.DecodeResult
	for start := 0; start < len(pcm); start += *chunkFrames {
		end := start + *chunkFrames
		if end > len(pcm) {
			end = len(pcm)
		}
		chunk := make([]float32, end-start)
		for i, s := range pcm[start:end] {
			chunk[i] = float32(s) / 32768
		}
		result = m.Decode(chunk)
		if result.State == sstv.Finished {
			break
		}
	}

	if result.Image == nil {
		return fmt.Errorf("no image recovered (final state: %v)", result.State)
	}

	outFile, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating output PNG: %w", err)
	}
	defer outFile.Close()

	if err := png.Encode(outFile, imageToRGBA(result.Image)); err != nil {
		return fmt.Errorf("writing PNG: %w", err)
	}
	log.Printf("decoded %s -> %s (final state: %v)", *in, *out, result.State)
	return nil
}

// runServe starts the live-decode websocket server and (optionally)
// the Prometheus metrics endpoint and MQTT publisher described by the
// YAML config.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var metrics *DecodeMetrics
	if cfg.Prometheus.Enabled {
		metrics = NewDecodeMetrics()
		path := cfg.Prometheus.Path
		if path == "" {
			path = "/metrics"
		}
		metricsMux := http.NewServeMux()
		metricsMux.Handle(path, metrics.Handler())
		go func() {
			log.Printf("prometheus: listening on %s%s", cfg.Prometheus.ListenAddr, path)
			if err := http.ListenAndServe(cfg.Prometheus.ListenAddr, metricsMux); err != nil {
				log.Printf("prometheus: server stopped: %v", err)
			}
		}()
	}

	var publisher *MQTTPublisher
	if cfg.MQTT.Enabled {
		p, err := NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("starting mqtt publisher: %w", err)
		}
		publisher = p
		defer publisher.Close()
	}

	decodeServer := NewDecodeServer(cfg.Server.Mode, metrics, publisher)
	mux := http.NewServeMux()
	mux.Handle("/decode", decodeServer)

	httpServer := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("sstv: listening on %s (mode %s)", cfg.Server.ListenAddr, cfg.Server.Mode)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("sstv: server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("sstv: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// readSourceImage decodes any image format the standard library supports
// and flattens it into an sstv.SourceImage.
func readSourceImage(path string) (*sstv.SourceImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding input image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			pix[i] = uint8(r >> 8)
			pix[i+1] = uint8(g >> 8)
			pix[i+2] = uint8(b >> 8)
		}
	}
	return &sstv.SourceImage{Width: w, Height: h, Pix: pix}, nil
}

// imageToRGBA converts a decoded sstv.Image into a standard library image
// ready for PNG encoding.
func imageToRGBA(img *sstv.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, sstv.ImageWidth, sstv.ImageHeight))
	for y := 0; y < sstv.ImageHeight; y++ {
		for x := 0; x < sstv.ImageWidth; x++ {
			r, g, b := img.At(x, y)
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}
