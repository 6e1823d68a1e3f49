package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rickchristie/reactlm"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		vars       map[string]string
		jsonOut    bool
		showTraces bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mem, closeMem, err := a.memory()
			if err != nil {
				return err
			}
			defer func() { _ = closeMem() }()

			tracer, closeTracer, err := a.tracer(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeTracer() }()

			agent, err := a.agent(mem, tracer)
			if err != nil {
				return err
			}

			vctx := make(map[string]any, len(vars))
			for k, v := range vars {
				vctx[k] = v
			}

			start := time.Now()
			sess, err := agent.Run(ctx, reactlm.Text(strings.Join(args, " ")), vctx)
			if err != nil {
				return err
			}
			a.logger.Debug("ask finished",
				"session_id", sess.ID,
				"iterations", sess.Iteration,
				"elapsed", elapsed(start),
			)

			if jsonOut {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"session_id": sess.ID,
					"iterations": sess.Iteration,
					"answer":     sess.Answer,
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(a.out, answerText(sess.Answer))
			}

			if showTraces {
				return writeTraces(a, sess.Traces())
			}
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&vars, "var", nil, "context variables, key=value")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the answer envelope as JSON")
	cmd.Flags().BoolVar(&showTraces, "traces", false, "print the session traces as YAML")
	return cmd
}

func writeTraces(a *app, traces []reactlm.Trace) error {
	if len(traces) == 0 {
		fmt.Fprintln(a.out, "no traces")
		return nil
	}
	enc := yaml.NewEncoder(a.out)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(traces)
}

// cloneVars copies vars so a session cannot see later edits.
func cloneVars(vars map[string]any) map[string]any {
	if vars == nil {
		return map[string]any{}
	}
	return maps.Clone(vars)
}
