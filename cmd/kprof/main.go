// Command kprof turns a log of scheduler tick durations (one integer
// nanosecond count per line; internal/sched itself does not write such
// a log) into a pprof profile so a developer can
// load it into `go tool pprof` or pprof's own web UI to see which
// scheduling passes were slow (spec.md §4.7). Grounded on the
// teacher's go.mod dependency on github.com/google/pprof, which the
// teacher itself never wires into a binary; this is the home that
// dependency never got in the original biscuit port.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
)

func main() {
	var out string
	flag.StringVar(&out, "out", "tick.pprof", "output pprof profile path")
	flag.Parse()

	in := os.Stdin
	if args := flag.Args(); len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "kprof: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	prof, err := buildProfile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kprof: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kprof: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := prof.Write(f); err != nil {
		fmt.Fprintf(os.Stderr, "kprof: %v\n", err)
		os.Exit(1)
	}
}

func buildProfile(in *os.File) (*profile.Profile, error) {
	durationType := &profile.ValueType{Type: "tick", Unit: "nanoseconds"}

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{durationType},
		PeriodType: durationType,
		Period:     1,
		TimeNanos:  time.Now().UnixNano(),
	}

	schedulerFn := &profile.Function{ID: 1, Name: "sched.Tick", SystemName: "sched.Tick"}
	prof.Function = []*profile.Function{schedulerFn}

	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: schedulerFn}}}
	prof.Location = []*profile.Location{loc}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ns, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing tick duration %q: %w", line, err)
		}
		prof.Sample = append(prof.Sample, &profile.Sample{
			Value:    []int64{ns},
			Location: []*profile.Location{loc},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return prof, nil
}
