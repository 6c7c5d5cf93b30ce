// Command scanitems runs the recognition pipeline over a screenshot file and
// prints the detections.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/conf"
	"bonk-scanner/internal/ensemble"
	"bonk-scanner/internal/scan"
	"bonk-scanner/internal/screenshot"
	"bonk-scanner/internal/template"
)

func main() {
	imagePath := flag.String("image", "", "Path to screenshot (PNG, JPEG, or WebP)")
	dataDir := flag.String("data", "data", "Catalog data directory")
	templateDir := flag.String("templates", "assets", "Template image directory")
	corpusPath := flag.String("corpus", "training/templates.json", "Training corpus JSON")
	algorithm := flag.String("algorithm", "ncc", "Match algorithm: ncc, ssd or ssim")
	parallel := flag.Bool("parallel", false, "Use the legacy worker-pool matching path")
	useEnsemble := flag.Bool("ensemble", false, "Use the ensemble strategy combiner")
	verbose := flag.Bool("verbose", false, "Print progress updates")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: scanitems -image <path> [-algorithm ncc|ssd|ssim] [-ensemble] [-parallel]")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read screenshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded screenshot: %s (%d bytes)\n", *imagePath, len(raw))

	cat, err := catalog.LoadDir(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Catalog: %d entities\n", len(cat.Entities()))

	store := template.NewStore(cat, *templateDir)
	if corpus, err := template.LoadCorpus(*corpusPath); err == nil && corpus.Count() > 0 {
		store.SetCorpus(corpus)
		fmt.Printf("Training corpus: %d samples\n", corpus.Count())
	}
	loaded, failed := store.LoadAll()
	fmt.Printf("Templates: %d loaded, %d failed\n", loaded, failed)

	cfg := conf.Defaults().Scan
	cfg.Algorithm = *algorithm

	blob := base64.StdEncoding.EncodeToString(raw)

	if *useEnsemble {
		frame, err := screenshot.Decode(blob)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to decode screenshot: %v\n", err)
			os.Exit(1)
		}
		combiner := ensemble.NewCombiner(store, cfg)
		dets, err := combiner.Scan(context.Background(), frame)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
			os.Exit(1)
		}
		printDetections(dets)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	session := scan.New(store, cat, cfg, log)

	req := scan.Request{ImageData: blob, Parallel: *parallel}
	if *verbose {
		req.Progress = func(pct int, phase string) {
			fmt.Printf("  [%3d%%] %s\n", pct, phase)
		}
	}

	dets, err := session.Scan(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		os.Exit(1)
	}
	printDetections(dets)
}

func printDetections(dets []scan.Detection) {
	fmt.Printf("\nDetections: %d\n", len(dets))
	if len(dets) == 0 {
		return
	}
	fmt.Printf("%3s  %-20s %-7s %-6s %-15s %-16s %s\n",
		"#", "ENTITY", "TYPE", "CONF", "METHOD", "POSITION", "COUNT")
	for i, d := range dets {
		count := "-"
		if d.StackCount > 0 {
			count = strconv.Itoa(d.StackCount)
		}
		fmt.Printf("%3d  %-20s %-7s %.3f  %-15s (%4d,%4d) %3dx%-3d  %s\n",
			i+1, d.Entity.ID, string(d.Type), d.Confidence, string(d.Method),
			d.Position.X, d.Position.Y, d.Position.Width, d.Position.Height, count)
	}
}
