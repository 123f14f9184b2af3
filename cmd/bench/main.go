// Bench is a benchmarking tool for measuring bigsort throughput and memory
// usage on synthetic input.
//
// Usage:
//
//	go run ./cmd/bench --lines 10000000 --files 16 --batch 1000000 --workers 4
//
// Flags:
//
//	--lines       Total number of lines to generate (default: 10,000,000)
//	--files       Number of input files the lines are spread over (default: 8)
//	--width       Bytes per generated line, 16 to 64 (default: 32)
//	--batch       Max lines in memory across all workers (default: 1,000,000)
//	--workers     Number of parallel chunk sorters (default: 1)
//	--max-open    Max files open at once while merging, output included (default: 10000)
//	--compress    zstd-compress temporary runs
//	--mmap        Read input files through mmap
//	--cpuprofile  Write a CPU profile of the sort to file
//	--memprofile  Write a heap profile after the sort to file
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spaolacci/murmur3"
	"github.com/spf13/pflag"

	"github.com/tamirms/bigsort"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// genLine derives line i from its murmur3 hash, so every run of the benchmark
// sorts the same data.
func genLine(buf []byte, i uint64, width int) []byte {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], i)
	h1, h2 := murmur3.Sum128WithSeed(seed[:], 0x1234)
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[:8], h1)
	binary.BigEndian.PutUint64(raw[8:], h2)

	buf = buf[:0]
	for len(buf) < width {
		buf = hex.AppendEncode(buf, raw[:])
	}
	return append(buf[:width], '\n')
}

// generateInputs spreads numLines synthetic lines round-robin over numFiles
// files in dir and returns their paths and total size. Every file is closed
// before it returns, on error too.
func generateInputs(dir string, numLines, numFiles, width int) (_ []string, _ int64, err error) {
	paths := make([]string, numFiles)
	writers := make([]*bufio.Writer, numFiles)
	files := make([]*os.File, 0, numFiles)
	defer func() {
		if err != nil {
			for _, f := range files {
				_ = f.Close() // primary error is already set
			}
		}
	}()
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("input-%03d.txt", i))
		f, err := os.Create(paths[i])
		if err != nil {
			return nil, 0, err
		}
		files = append(files, f)
		writers[i] = bufio.NewWriterSize(f, 1<<20)
	}

	var size int64
	buf := make([]byte, 0, 128)
	for i := range numLines {
		buf = genLine(buf, uint64(i), width)
		if _, err := writers[i%numFiles].Write(buf); err != nil {
			return nil, 0, err
		}
		size += int64(len(buf))
	}
	for i := range files {
		if err := writers[i].Flush(); err != nil {
			return nil, 0, err
		}
	}
	// Closed here rather than by the deferred cleanup so close errors surface.
	closing := files
	files = nil
	for _, f := range closing {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	if err != nil {
		return nil, 0, err
	}
	return paths, size, nil
}

func main() {
	linesFlag := pflag.Int("lines", 10_000_000, "total number of lines")
	filesFlag := pflag.Int("files", 8, "number of input files")
	widthFlag := pflag.Int("width", 32, "bytes per line (16 to 64)")
	batchFlag := pflag.Int("batch", 1_000_000, "max lines in memory across all workers")
	workersFlag := pflag.Int("workers", 1, "number of parallel chunk sorters")
	maxOpenFlag := pflag.Int("max-open", bigsort.DefaultMaxOpenFiles, "max files open at once while merging, output included")
	compressFlag := pflag.Bool("compress", false, "zstd-compress temporary runs")
	mmapFlag := pflag.Bool("mmap", false, "read input files through mmap")
	cpuprofile := pflag.String("cpuprofile", "", "write cpu profile to file (sort phase only)")
	memprofile := pflag.String("memprofile", "", "write memory profile to file (sort phase only)")
	pflag.Parse()

	numLines, numFiles, width := *linesFlag, *filesFlag, *widthFlag
	if numFiles < 1 || width < 16 || width > 64 {
		fmt.Println("files must be at least 1 and width between 16 and 64")
		return
	}

	tmpDir, err := os.MkdirTemp("", "bigsort-bench-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	workDir := filepath.Join(tmpDir, "work")
	if err := os.Mkdir(workDir, 0o755); err != nil {
		fmt.Printf("Failed to create working dir: %v\n", err)
		return
	}
	resultPath := filepath.Join(tmpDir, "sorted.txt")

	fmt.Println("Generating lines...")
	genStart := time.Now()
	inputs, inputSize, err := generateInputs(tmpDir, numLines, numFiles, width)
	if err != nil {
		fmt.Printf("Generating input failed: %v\n", err)
		return
	}
	genDuration := time.Since(genStart)

	sorter, err := bigsort.New(inputs, *batchFlag, resultPath,
		bigsort.WithWorkers(*workersFlag),
		bigsort.WithWorkingDir(workDir),
		bigsort.WithMaxOpenFiles(*maxOpenFlag),
		bigsort.WithCompression(*compressFlag),
		bigsort.WithMmapInput(*mmapFlag),
	)
	if err != nil {
		fmt.Printf("New failed: %v\n", err)
		return
	}

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()

	// 10ms sampling for peak memory (both heap and RSS).
	// runtime/metrics avoids the stop-the-world pause of ReadMemStats.
	var peakAlloc atomic.Uint64
	var peakRSS atomic.Uint64
	peakAlloc.Store(baseline.Alloc)
	peakRSS.Store(baselineRSS)
	done := make(chan struct{})
	go func() {
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				heapBytes := samples[0].Value.Uint64()
				for {
					old := peakAlloc.Load()
					if heapBytes <= old || peakAlloc.CompareAndSwap(old, heapBytes) {
						break
					}
				}
				rss := getMaxRSS()
				for {
					old := peakRSS.Load()
					if rss <= old || peakRSS.CompareAndSwap(old, rss) {
						break
					}
				}
			}
		}
	}()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Println("Sorting...")
	stats, err := sorter.Sort(context.Background())

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Printf("could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Printf("could not write memory profile: %v\n", err)
			}
			_ = f.Close()
		}
	}

	close(done)

	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	if final.Alloc > peakAlloc.Load() {
		peakAlloc.Store(final.Alloc)
	}
	if rss := getMaxRSS(); rss > peakRSS.Load() {
		peakRSS.Store(rss)
	}
	peakHeapMem := peakAlloc.Load() - baseline.Alloc
	peakRSSMem := peakRSS.Load() - baselineRSS

	if err != nil {
		fmt.Printf("Sort failed: %v\n", err)
		return
	}

	secs := stats.Duration.Seconds()
	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════════╗\n")
	fmt.Printf("║ Metric              ║ Value              ║\n")
	fmt.Printf("╠═════════════════════╬════════════════════╣\n")
	fmt.Printf("║ Lines               ║ %14d     ║\n", stats.Lines)
	fmt.Printf("║ Input size          ║ %10.1f MB      ║\n", float64(inputSize)/1_000_000)
	fmt.Printf("║ Workers             ║ %6d             ║\n", stats.Workers)
	fmt.Printf("║ Batch per worker    ║ %10d         ║\n", stats.BatchPerWorker)
	fmt.Printf("║ Runs                ║ %10d         ║\n", stats.Runs)
	fmt.Printf("║ Merge passes        ║ %6d             ║\n", stats.MergePasses)
	fmt.Printf("║ Max open runs       ║ %6d             ║\n", stats.MaxOpenReaders)
	fmt.Printf("║ Generate time       ║ %8.2f sec       ║\n", genDuration.Seconds())
	fmt.Printf("║ Sort time           ║ %8.2f sec       ║\n", secs)
	fmt.Printf("║ Sort throughput     ║ %8.2f M/sec     ║\n", float64(stats.Lines)/secs/1_000_000)
	fmt.Printf("║ Sort bandwidth      ║ %8.1f MB/sec    ║\n", float64(inputSize)/secs/1_000_000)
	fmt.Printf("║ Peak heap memory    ║ %8.1f MB        ║\n", float64(peakHeapMem)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %8.1f MB        ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("║ Result checksum     ║ %016x   ║\n", stats.ResultChecksum)
	fmt.Printf("╚═════════════════════╩════════════════════╝\n")
}
