// loggen writes a synthetic application log for trying out gopher-triage.
//
// Behaviour (tunable via flags or env vars):
//   - ERROR_RATE (float, 0–1, default 0.02): fraction of lines that log a failed request.
//   - PANIC_RATE (float, 0–1, default 0.001): fraction of lines that start a goroutine panic trace.
//   - OOM_RATE   (float, 0–1, default 0.001): fraction of lines that report an OOM kill.
//
// Output is deterministic for a given -seed, so a log can be regenerated
// exactly when comparing analyses.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"
)

var (
	errorRate = 0.02
	panicRate = 0.001
	oomRate   = 0.001
)

func init() {
	errorRate = envFloat("ERROR_RATE", errorRate)
	panicRate = envFloat("PANIC_RATE", panicRate)
	oomRate = envFloat("OOM_RATE", oomRate)
}

func main() {
	lines := flag.Int("lines", 10000, "number of log lines to write")
	seed := flag.Int64("seed", 1, "random seed")
	out := flag.String("output", "", "file to write (default stdout)")
	flag.Float64Var(&errorRate, "error-rate", errorRate, "fraction of failed request lines")
	flag.Float64Var(&panicRate, "panic-rate", panicRate, "fraction of lines that start a panic trace")
	flag.Float64Var(&oomRate, "oom-rate", oomRate, "fraction of lines that report an OOM kill")
	flag.Parse()

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			slog.Error("creating output file", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	g := &generator{
		rnd: rand.New(rand.NewSource(*seed)),
		now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	for written := 0; written < *lines; {
		written += g.next(bw, *lines-written)
	}
	if err := bw.Flush(); err != nil {
		slog.Error("writing log", "err", err)
		os.Exit(1)
	}
	slog.Info("log generated",
		"lines", *lines,
		"seed", *seed,
		"errorRate", errorRate,
		"panicRate", panicRate,
		"oomRate", oomRate,
	)
}

type generator struct {
	rnd *rand.Rand
	now time.Time
}

var (
	paths   = []string{"/api/jokes", "/api/jokes/random", "/api/users", "/healthz", "/metrics"}
	methods = []string{"GET", "GET", "GET", "POST", "PUT"}
)

// next writes one event and returns how many lines it used, never more than budget.
func (g *generator) next(w io.Writer, budget int) int {
	g.now = g.now.Add(time.Duration(g.rnd.Intn(900)+100) * time.Millisecond)
	ts := g.now.Format("2006-01-02T15:04:05.000Z")
	path := paths[g.rnd.Intn(len(paths))]
	method := methods[g.rnd.Intn(len(methods))]
	roll := g.rnd.Float64()

	switch {
	case roll < panicRate && budget >= 4:
		fmt.Fprintf(w, "%s ERROR panic: runtime error: invalid memory address or nil pointer dereference\n", ts)
		fmt.Fprintf(w, "goroutine %d [running]:\n", g.rnd.Intn(500)+1)
		fmt.Fprintf(w, "main.handleJoke(0xc000%05x, 0xc000%05x)\n", g.rnd.Intn(1<<20), g.rnd.Intn(1<<20))
		fmt.Fprintf(w, "\t/app/main.go:%d +0x%x\n", g.rnd.Intn(200)+20, g.rnd.Intn(1<<12))
		return 4

	case roll < panicRate+oomRate:
		fmt.Fprintf(w, "%s WARN container jokeservice terminated: reason=OOMKilled exitCode=137 memory=%dMi limit=256Mi\n",
			ts, 256+g.rnd.Intn(64))
		return 1

	case roll < panicRate+oomRate+errorRate:
		fmt.Fprintf(w, "%s ERROR %s %s status=500 latency=%dms err=\"upstream connect error: connection refused\" request_id=%08x\n",
			ts, method, path, g.rnd.Intn(3000)+50, g.rnd.Uint32())
		return 1

	default:
		fmt.Fprintf(w, "%s INFO %s %s status=200 latency=%dms request_id=%08x\n",
			ts, method, path, g.rnd.Intn(80)+2, g.rnd.Uint32())
		return 1
	}
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid env var, using default", "key", key, "value", v)
		return fallback
	}
	return f
}
