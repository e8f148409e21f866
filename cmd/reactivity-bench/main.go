// Command reactivity-bench times the runtime's trigger fan-out across
// synthetic dependency graphs, the way cmd/benchmark timed alien/rocket/
// dumbdumb signal propagation.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/44zs44/vue3Core/reactivity"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	widthsKey  = "widths"
	depthsKey  = "depths"
	itersKey   = "iters"
	titleValue = "reactivity propagation"
)

func main() {
	cmd := &cli.Command{
		Name:  "reactivity-bench",
		Usage: "Benchmark trigger fan-out across synthetic w*h dependency graphs",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{
				Name:  widthsKey,
				Usage: "graph widths to benchmark (a shape has width*depth effects)",
				Value: []int64{1, 10, 100, 1000},
			},
			&cli.IntSliceFlag{
				Name:  depthsKey,
				Usage: "graph depths to benchmark (effects per width; every effect reads the source directly, effects are not chained)",
				Value: []int64{1, 10, 100},
			},
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "number of source mutations to time per shape",
				Value: 100,
			},
		},
		Action: runBenchmark,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runBenchmark(ctx context.Context, cmd *cli.Command) error {
	widths := cmd.IntSlice(widthsKey)
	depths := cmd.IntSlice(depthsKey)
	iters := int(cmd.Uint(itersKey))

	start := time.Now()
	log.Printf("reactivity-bench started, %s shapes to run", humanize.Comma(int64(len(widths)*len(depths))))
	defer func() {
		log.Printf("reactivity-bench finished in %v", time.Since(start))
	}()

	tbl := table.NewWriter()
	tbl.SetTitle(titleValue)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"shape", "effects triggered", "avg", "min", "p75", "p99", "max"})

	for _, w := range widths {
		for _, d := range depths {
			// width*depth effects, each reading the same source key
			// directly (no effect depends on another); each iteration
			// times a single write to the source plus the Tick that
			// drains its propagation.
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			rt := reactivity.NewRuntime(reactivity.WithErrorHandler(func(err error, ctxv any, code reactivity.ErrorCode) {
				log.Panicf("reactivity-bench: %s error: %v", code, err)
			}))
			src := reactivity.NewReactive[string, int](rt, map[string]int{"v": 0}, false)

			effectRuns := 0
			for i := 0; i < int(w); i++ {
				for j := 0; j < int(d); j++ {
					if _, err := rt.CreateEffect(func() error {
						_, _ = src.Get("v")
						effectRuns++
						return nil
					}, reactivity.EffectOptions{}); err != nil {
						return err
					}
				}
			}
			effectRuns = 0

			for i := 0; i < iters; i++ {
				startAt := time.Now()
				v, _ := src.Get("v")
				src.Set("v", v+1)
				rt.Tick()
				tach.AddTime(time.Since(startAt))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{{
				fmt.Sprintf("propagate: %d * %d", w, d),
				humanize.Comma(int64(effectRuns)),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			}})
		}
	}

	tbl.Render()
	return nil
}
