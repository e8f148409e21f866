// Command reactivity-inspect builds a small demonstration dependency graph
// and dumps the runtime's live target map as a table (target, key,
// subscriber count, dirty levels), a devtools-style introspection point
// the runtime otherwise leaves implicit.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/44zs44/vue3Core/reactivity"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	entriesKey = "entries"
	mutateKey  = "mutate"
)

func main() {
	cmd := &cli.Command{
		Name:  "reactivity-inspect",
		Usage: "Dump a demonstration runtime's target map as a table",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  entriesKey,
				Usage: "number of map keys to wrap and read",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  mutateKey,
				Usage: "mutate one key before dumping, so its dep shows a dirty subscriber",
				Value: true,
			},
		},
		Action: inspect,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	n := int(cmd.Uint(entriesKey))
	mutate := cmd.Bool(mutateKey)

	rt := reactivity.NewRuntime(reactivity.WithErrorHandler(func(err error, ctxv any, code reactivity.ErrorCode) {
		log.Printf("reactivity-inspect: %s error: %v", code, err)
	}))

	initial := make(map[string]int, n)
	for i := 0; i < n; i++ {
		initial[fmt.Sprintf("key-%d", i)] = i
	}
	w := reactivity.NewReactive[string, int](rt, initial, false)

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		if _, err := rt.CreateEffect(func() error {
			_, _ = w.Get(key)
			return nil
		}, reactivity.EffectOptions{}); err != nil {
			return err
		}
	}

	if mutate && n > 0 {
		w.Set("key-0", -1)
	}

	entries := rt.Snapshot()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"target", "key", "subscribers", "dirty levels"})
	for _, e := range entries {
		levels := make([]string, len(e.DirtyLevels))
		for i, l := range e.DirtyLevels {
			levels[i] = l.String()
		}
		table.Append([]string{
			e.Target,
			e.Key,
			fmt.Sprintf("%d", e.Subscribers),
			strings.Join(levels, ", "),
		})
	}
	table.Render()

	return nil
}
