package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"geost/pkg/geost"
)

func main() {
	path := flag.String("path", ".geost-bench", "database path")
	batchSize := flag.Int("batch", 50000, "batch size")
	totalFeatures := flag.Int("features", 1_000_000, "total features to write")
	flag.Parse()

	os.RemoveAll(*path)

	schema := &geost.Schema{
		Name:    "tracks",
		Points:  true,
		HasTime: true,
		Attributes: []geost.Attribute{
			{Name: "vessel", Indexed: true, Cardinality: geost.CardinalityHigh},
			{Name: "flag", Indexed: true, Cardinality: geost.CardinalityLow},
		},
	}

	store, err := geost.OpenStore(schema, geost.DefaultStoreOptions(*path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}

	r := rand.New(rand.NewSource(42))
	flags := []string{"US", "FR", "DE", "JP", "PA", "LR", "MT", "SG", "GR", "NO"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var peakMem uint64
	updatePeakMem := func() {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		if m.HeapAlloc > peakMem {
			peakMem = m.HeapAlloc
		}
	}

	start := time.Now()
	written := 0

	printInterval := *totalFeatures / 10
	if printInterval < 1000 {
		printInterval = 1000
	}

	batch := store.NewBatchWriter()
	batchCount := 0

	for i := 0; i < *totalFeatures; i++ {
		// drifting positions over a month of track data
		vessel := i % 5000
		f := &geost.Feature{
			ID: fmt.Sprintf("t-%09d", i),
			Bounds: geost.Box{
				MinX: -180 + r.Float64()*360,
				MinY: -90 + r.Float64()*180,
			},
			Time: base.Add(time.Duration(i) * time.Second),
			Attrs: map[string]string{
				"vessel": fmt.Sprintf("v-%04d", vessel),
				"flag":   flags[vessel%len(flags)],
			},
		}
		f.Bounds.MaxX = f.Bounds.MinX
		f.Bounds.MaxY = f.Bounds.MinY

		if err := batch.Write(f); err != nil {
			fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
			os.Exit(1)
		}
		batchCount++
		written++

		if batchCount >= *batchSize {
			if err := batch.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "flush failed: %v\n", err)
				os.Exit(1)
			}
			batch = store.NewBatchWriter()
			batchCount = 0
		}

		if i > 0 && i%printInterval == 0 {
			elapsed := time.Since(start)
			rate := float64(written) / elapsed.Seconds()
			updatePeakMem()
			fmt.Printf("%d/%d - %.0f WPS - peak mem: %d MiB\n",
				i, *totalFeatures, rate, peakMem/1024/1024)
		}
	}
	if batchCount > 0 {
		if err := batch.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "flush failed: %v\n", err)
			os.Exit(1)
		}
	}

	elapsed := time.Since(start)
	rate := float64(written) / elapsed.Seconds()
	updatePeakMem()

	store.Close()

	var diskSize int64
	entries, _ := os.ReadDir(*path)
	for _, e := range entries {
		info, _ := e.Info()
		if info != nil {
			diskSize += info.Size()
		}
	}

	fmt.Println()
	fmt.Printf("ingested %d features in %.3fs\n", written, elapsed.Seconds())
	fmt.Printf("write speed: %.0f writes per second\n", rate)
	fmt.Printf("peak mem: %d MiB\n", peakMem/1024/1024)
	fmt.Printf("disk space: %d bytes (%d MiB, %.4f GiB)\n",
		diskSize,
		diskSize/1024/1024,
		float64(diskSize)/(1024*1024*1024),
	)

	reopenStart := time.Now()
	store2, err := geost.OpenStore(schema, geost.DefaultStoreOptions(*path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "reopen failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("reopened store in %dms\n", time.Since(reopenStart).Milliseconds())

	queries := []string{
		"BBOX(-10,-10,10,10) AND DURING('2024-01-08T00:00:00Z','2024-01-15T00:00:00Z')",
		"BBOX(-10,-10,10,10)",
		"flag = 'US' AND BBOX(0,0,90,45)",
		"vessel = 'v-0042'",
		"IN('t-000000001','t-000500000','t-000999999')",
	}

	ctx := context.Background()
	for _, q := range queries {
		pred, err := geost.ParsePredicate(q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad query %q: %v\n", q, err)
			continue
		}

		plans, err := store2.Planner().PlanQuery(pred)
		if err != nil || len(plans) == 0 {
			fmt.Printf("query %q: no plan (%v)\n", q, err)
			continue
		}
		strategy := plans[0].Filters[0].Strategy

		queryStart := time.Now()
		results, err := store2.Query(ctx, pred)
		if err != nil {
			fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
			continue
		}
		fmt.Printf("query via %s [%d features] in %dms: %s\n",
			strategy, len(results), time.Since(queryStart).Milliseconds(), q)
	}

	store2.Close()
	os.RemoveAll(*path)
}
