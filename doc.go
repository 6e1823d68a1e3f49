// Package reactlm provides the building blocks of a bounded ReAct (reason + act) agent.
//
// The loop itself lives in agents/react. This package defines what crosses its
// boundary:
//
//   - [Envelope]: a kind-tagged value (text, image, audio, video, binary or json)
//   - [Model]: the language model collaborator
//   - [Tool] and [ToolFunc]: named capabilities the model may call
//   - [Memory]: an external key/value store traces are mirrored to
//   - [Trace] and [TraceRecorder]: the per-step execution record
//   - [AgentConfig]: the immutable run parameters
//
// # Quick Start
//
//	model := models.NewLCGModel(llm)
//	search := reactlm.NewToolFunc("search", "Search the web",
//	    func(ctx context.Context, in reactlm.Envelope) (reactlm.Envelope, error) {
//	        q, _ := in.Text()
//	        return reactlm.JSON(map[string]any{"results": lookup(q)}), nil
//	    })
//
//	agent := react.NewAgent(model, reactlm.DefaultAgentConfig()).
//	    WithTools(search).
//	    WithMemory(inmem.New(inmem.Options{TTL: time.Hour}))
//
//	answer, err := agent.ExecuteText(ctx, "What's new in Go 1.24?", nil)
//
// Each iteration sends one query to the model and runs at most one tool. The model
// ends the loop by replying with {"final_answer": ...}. When MaxIterations passes go
// by without one, the last model action is returned as the answer.
package reactlm
