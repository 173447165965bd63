// Command kdtreedemo builds a random k-d tree and runs a box query and a
// nearest-neighbor query against it, in the style of Orizon's small,
// one-tool-per-directory cmd/orizon-* demo binaries.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/johnarobinson77/kdtree/kdtree"
)

// demoConfig mirrors Orizon's JSON-tagged config structs (see
// cmd/orizon-config/main.go) instead of a bare set of package-level flags.
type demoConfig struct {
	Points     int `json:"points"`
	Dimensions int `json:"dimensions"`
	Threads    int `json:"threads"`
	K          int `json:"k"`
}

func main() {
	cfg := demoConfig{}
	flag.IntVar(&cfg.Points, "points", 10000, "number of random points to build the tree from")
	flag.IntVar(&cfg.Dimensions, "dimensions", 3, "tuple dimensionality")
	flag.IntVar(&cfg.Threads, "threads", 4, "worker pool size for fork/join recursion")
	flag.IntVar(&cfg.K, "k", 5, "number of nearest neighbors to report")
	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("kdtreedemo: %v", err)
	}
}

func run(cfg demoConfig) error {
	tree := kdtree.New[int](cfg.Points, cfg.Dimensions)
	tree.SetNumThreads(cfg.Threads)

	for i := 0; i < cfg.Points; i++ {
		point := make(kdtree.Tuple, cfg.Dimensions)
		for d := range point {
			point[d] = rand.Int63n(1_000_000)
		}
		if tree.Add(point, i) < 0 {
			return fmt.Errorf("add rejected at point %d", i)
		}
	}

	if err := tree.Build(); err != nil {
		return err
	}

	query := make(kdtree.Tuple, cfg.Dimensions)
	for d := range query {
		query[d] = 500_000
	}

	inBox, err := tree.SearchTree(query, 50_000)
	if err != nil {
		return err
	}

	neighbors, err := tree.NearestNeighborSearch(query, cfg.K, nil)
	if err != nil {
		return err
	}

	summary := struct {
		Size       int   `json:"size"`
		BoxHits    int   `json:"box_hits"`
		NearestIDs []int `json:"nearest_ids"`
	}{
		Size:       tree.Size(),
		BoxHits:    len(inBox),
		NearestIDs: neighbors,
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
