package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickchristie/reactlm"
)

const traceKeyPrefix = "trace:"

func newTracesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traces",
		Short: "Inspect traces mirrored to memory",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [session]",
			Short: "List mirrored trace keys",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTraceStore(a, func(mem reactlm.Memory, lister keyLister) error {
					prefix := traceKeyPrefix
					if len(args) == 1 {
						prefix += args[0] + ":"
					}
					keys, err := traceKeys(cmd.Context(), lister, prefix)
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Fprintln(a.out, k)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <session>",
			Short: "Print the mirrored traces of a session as YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTraceStore(a, func(mem reactlm.Memory, lister keyLister) error {
					traces, err := loadTraces(cmd.Context(), mem, lister, args[0])
					if err != nil {
						return err
					}
					return writeTraces(a, traces)
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every key in the memory backend",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTraceStore(a, func(mem reactlm.Memory, _ keyLister) error {
					if err := mem.Clear(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(a.out, "cleared")
					return nil
				})
			},
		},
	)
	return cmd
}

func withTraceStore(a *app, fn func(reactlm.Memory, keyLister) error) error {
	mem, closeMem, err := a.memory()
	if err != nil {
		return err
	}
	defer func() { _ = closeMem() }()

	if mem == nil {
		return errNoMemory
	}
	lister, ok := mem.(keyLister)
	if !ok {
		return fmt.Errorf("memory backend %s cannot list keys", a.cfg.Memory.Backend)
	}
	return fn(mem, lister)
}

func traceKeys(ctx context.Context, lister keyLister, prefix string) ([]string, error) {
	all, err := lister.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// loadTraces reads every mirrored trace of a session, ordered by iteration.
func loadTraces(ctx context.Context, mem reactlm.Memory, lister keyLister, sessionID string) ([]reactlm.Trace, error) {
	keys, err := traceKeys(ctx, lister, traceKeyPrefix+sessionID+":")
	if err != nil {
		return nil, err
	}

	traces := make([]reactlm.Trace, 0, len(keys))
	for _, k := range keys {
		rec, ok, err := mem.Retrieve(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var tr reactlm.Trace
		if err := rec.Decode(&tr); err != nil {
			return nil, fmt.Errorf("trace %s: %w", k, err)
		}
		traces = append(traces, tr)
	}
	sort.SliceStable(traces, func(i, j int) bool {
		return traces[i].Metadata.Iteration < traces[j].Metadata.Iteration
	})
	return traces, nil
}
