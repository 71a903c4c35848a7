// Command slimtree-cli ingests CSV feature vectors into a Slim-Tree index
// and answers range and k-nearest-neighbour queries against it, backed by
// any of the package's four PageManager implementations.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/arboretum-go/slimtree"
	"github.com/arboretum-go/slimtree/distancefuncs"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ingest":
		runIngest(os.Args[2:])
	case "range":
		runRange(os.Args[2:])
	case "knn":
		runKNN(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: slimtree-cli <ingest|range|knn> [flags]")
}

func openTree(path, backend string, pivots int) (*slimtree.MetricTree[*distancefuncs.Vector], error) {
	pm, err := openBackend(path, backend)
	if err != nil {
		return nil, err
	}
	cfg := slimtree.DefaultConfig
	cfg.PivotCount = pivots
	return slimtree.Open[*distancefuncs.Vector](pm, &distancefuncs.Euclidean{}, func() *distancefuncs.Vector { return &distancefuncs.Vector{} }, cfg)
}

func openBackend(path, backend string) (slimtree.PageManager, error) {
	switch backend {
	case "mmap", "":
		return slimtree.OpenFile(path, slimtree.DefaultPageSize)
	case "bbolt":
		return slimtree.OpenBbolt(path, slimtree.DefaultPageSize)
	case "rocksdb":
		return slimtree.OpenRocksDB(path, slimtree.DefaultPageSize)
	case "mdbx":
		return slimtree.OpenMDBX(path, slimtree.DefaultPageSize)
	default:
		return nil, fmt.Errorf("unknown backend %q (want mmap, bbolt, rocksdb, or mdbx)", backend)
	}
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := fs.String("db", "vectors.db", "index file path")
	backend := fs.String("backend", "mmap", "page manager backend: mmap, bbolt, rocksdb, mdbx")
	csvPath := fs.String("csv", "", "CSV file of feature vectors, one row per object")
	pivots := fs.Int("pivots", 0, "STFOCUS global pivot count (0 disables)")
	fs.Parse(args)

	if *csvPath == "" {
		log.Fatal("ingest: -csv is required")
	}

	tree, err := openTree(*path, *backend, *pivots)
	if err != nil {
		log.Fatalf("ingest: open tree: %v", err)
	}
	defer tree.Close()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	count := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("ingest: row %d: %v", count+1, err)
		}
		features := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				log.Fatalf("ingest: row %d: %v", count+1, err)
			}
			features[i] = v
		}
		if err := tree.Add(distancefuncs.NewVector(features)); err != nil {
			log.Fatalf("ingest: row %d: %v", count+1, err)
		}
		count++
	}

	fmt.Printf("ingested %d vectors into %s (height %d)\n", count, *path, tree.Height())
}

func runRange(args []string) {
	fs := flag.NewFlagSet("range", flag.ExitOnError)
	path := fs.String("db", "vectors.db", "index file path")
	backend := fs.String("backend", "mmap", "page manager backend: mmap, bbolt, rocksdb, mdbx")
	sample := fs.String("sample", "", "comma-separated query vector")
	radius := fs.Float64("radius", 0, "query radius")
	fs.Parse(args)

	tree, err := openTree(*path, *backend, 0)
	if err != nil {
		log.Fatalf("range: open tree: %v", err)
	}
	defer tree.Close()

	q := parseVector(*sample)
	result, err := tree.RangeQuery(q, *radius)
	if err != nil {
		log.Fatalf("range: %v", err)
	}
	printResult(result)
}

func runKNN(args []string) {
	fs := flag.NewFlagSet("knn", flag.ExitOnError)
	path := fs.String("db", "vectors.db", "index file path")
	backend := fs.String("backend", "mmap", "page manager backend: mmap, bbolt, rocksdb, mdbx")
	sample := fs.String("sample", "", "comma-separated query vector")
	k := fs.Int("k", 5, "number of nearest neighbours")
	ties := fs.Bool("ties", false, "include ties at the k-th distance")
	fs.Parse(args)

	tree, err := openTree(*path, *backend, 0)
	if err != nil {
		log.Fatalf("knn: open tree: %v", err)
	}
	defer tree.Close()

	q := parseVector(*sample)
	result, err := tree.NearestQuery(q, *k, *ties)
	if err != nil {
		log.Fatalf("knn: %v", err)
	}
	printResult(result)
}

func parseVector(spec string) *distancefuncs.Vector {
	parts := strings.Split(spec, ",")
	features := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			log.Fatalf("invalid sample vector %q: %v", spec, err)
		}
		features[i] = v
	}
	return distancefuncs.NewVector(features)
}

func printResult(result *slimtree.Result[*distancefuncs.Vector]) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "distance", "vector"})
	for i, pair := range result.Pairs() {
		table.Append([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(pair.Distance, 'f', 6, 64),
			fmt.Sprint(pair.Object.Features),
		})
	}
	table.Render()
}
