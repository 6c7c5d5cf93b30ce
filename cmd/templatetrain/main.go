// Command templatetrain ingests labeled icon crops into the training corpus.
// It accepts a single labeled crop or a directory of crops named after their
// entity ids, validates the labels against the catalog, and appends the
// samples to the corpus JSON used by the scanner at runtime.
//
// Usage: templatetrain -image <crop> -entity <id> [-source ground_truth]
//        templatetrain -dir <labeled-dir>
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	_ "golang.org/x/image/webp"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/template"
)

func main() {
	imagePath := flag.String("image", "", "Path to one labeled icon crop")
	entityID := flag.String("entity", "", "Entity id the crop shows (with -image)")
	dir := flag.String("dir", "", "Directory of crops named <entity_id>.png or <entity_id>_NNN.png")
	dataDir := flag.String("data", "data", "Catalog data directory")
	corpusPath := flag.String("corpus", "training/templates.json", "Training corpus JSON")
	source := flag.String("source", string(template.ProvenanceGroundTruth),
		"Sample provenance: ground_truth, corrected, verified or unreviewed")
	flag.Parse()

	if *imagePath == "" && *dir == "" {
		fmt.Println("Usage: templatetrain -image <crop> -entity <id> [-source ground_truth]")
		fmt.Println("       templatetrain -dir <labeled-dir>")
		os.Exit(1)
	}

	cat, err := catalog.LoadDir(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	corpus, err := template.LoadCorpus(*corpusPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load corpus: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Corpus: %s (%d existing samples)\n", *corpusPath, corpus.Count())

	prov := template.ParseProvenance(*source)
	added := 0

	if *imagePath != "" {
		if *entityID == "" {
			fmt.Fprintln(os.Stderr, "-image requires -entity")
			os.Exit(1)
		}
		if ingest(corpus, cat, *imagePath, *entityID, prov) {
			added++
		}
	}

	if *dir != "" {
		entries, err := os.ReadDir(*dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read directory: %v\n", err)
			os.Exit(1)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isImageFile(entry.Name()) {
				continue
			}
			id := entityIDFromFile(entry.Name())
			if ingest(corpus, cat, filepath.Join(*dir, entry.Name()), id, prov) {
				added++
			}
		}
	}

	if added == 0 {
		fmt.Println("No samples added.")
		return
	}

	if err := corpus.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save corpus: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nAdded %d samples (%s). Corpus now holds %d.\n", added, prov, corpus.Count())
	printCounts(corpus, cat)
}

func ingest(corpus *template.Corpus, cat *catalog.Catalog, path, entityID string, prov template.Provenance) bool {
	if _, ok := cat.Get(entityID); !ok {
		fmt.Printf("  skip %s: %q is not a catalog entity\n", filepath.Base(path), entityID)
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("  skip %s: %v\n", filepath.Base(path), err)
		return false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		fmt.Printf("  skip %s: %v\n", filepath.Base(path), err)
		return false
	}

	sample, err := corpus.AddSample(entityID, img, prov)
	if err != nil {
		fmt.Printf("  skip %s: %v\n", filepath.Base(path), err)
		return false
	}
	fmt.Printf("  %s -> %s (%s)\n", filepath.Base(path), entityID, sample.ID)
	return true
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

var trailingIndex = regexp.MustCompile(`_[0-9]+$`)

// entityIDFromFile maps "dragonfire_003.png" to "dragonfire".
func entityIDFromFile(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return trailingIndex.ReplaceAllString(base, "")
}

func printCounts(corpus *template.Corpus, cat *catalog.Catalog) {
	type row struct {
		id string
		n  int
	}
	var rows []row
	for _, e := range cat.Entities() {
		if n := corpus.CountFor(e.ID); n > 0 {
			rows = append(rows, row{e.ID, n})
		}
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].id < rows[b].id })

	fmt.Println("\nSamples by entity:")
	for _, r := range rows {
		fmt.Printf("  %-24s %d\n", r.id, r.n)
	}
}
