package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/agents/react"
)

const (
	colorReset = "\033[0m"
	colorCyan  = "\033[36m"
	colorDim   = "\033[2m"
	colorBold  = "\033[1m"
)

// previousAnswerKey carries the last answer into the next turn's context.
const previousAnswerKey = "previous_answer"

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          colorCyan + colorBold + "You: " + colorReset,
				InterruptPrompt: "^C",
				EOFPrompt:       "/quit",
				Stdin:           io.NopCloser(cmd.InOrStdin()),
				Stdout:          a.out,
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to start readline: %w", err)
			}
			defer rl.Close()

			fmt.Fprintf(a.out, "%sCommands: /reset /traces /quit%s\n", colorDim, colorReset)
			c := newChat(a, agent)
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				quit, err := c.handle(cmd.Context(), line)
				if err != nil {
					fmt.Fprintf(a.out, "Error: %v\n", err)
				}
				if quit {
					return nil
				}
			}
		},
	}
}

// chat is the state of one interactive session: the context carried between turns and
// the session of the last turn.
type chat struct {
	app   *app
	agent *react.Agent
	vars  map[string]any
	last  *react.Session
}

func newChat(a *app, agent *react.Agent) *chat {
	return &chat{app: a, agent: agent, vars: map[string]any{}}
}

// handle processes one input line and reports whether the session should end.
func (c *chat) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case "/quit", "/exit":
		return true, nil
	case "/reset":
		c.vars = map[string]any{}
		c.last = nil
		fmt.Fprintf(c.app.out, "%scontext cleared%s\n", colorDim, colorReset)
		return false, nil
	case "/traces":
		if c.last == nil {
			fmt.Fprintln(c.app.out, "no traces")
			return false, nil
		}
		return false, writeTraces(c.app, c.last.Traces())
	}

	sess, err := c.agent.Run(ctx, reactlm.Text(line), cloneVars(c.vars))
	c.last = sess
	if err != nil {
		return false, err
	}
	answer := answerText(sess.Answer)
	c.vars[previousAnswerKey] = answer
	fmt.Fprintf(c.app.out, "%sAgent:%s %s\n", colorBold, colorReset, answer)
	return false, nil
}
