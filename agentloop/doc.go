// Package agentloop implements the computer-use action loop.
//
// An Orchestrator sends an objective to an Assistant together with the
// computer tool definition, receives one proposed action, has a
// computer.Executor carry it out and reports the observation back. It
// repeats until the assistant signals completion, the iteration cap is
// reached or the assistant fails. Every run ends in a RunResult; errors are
// reported through its Status rather than returned.
//
// The loop uses unifiedllm's Client.Complete directly and keeps its own
// append-only Transcript, so each request carries the full history: the
// objective, then alternating assistant and observation turns.
//
// # Quick Start
//
//	adapter, err := unifiedllm.NewAnthropicAdapter("")
//	if err != nil {
//	    return err
//	}
//	client := unifiedllm.NewClient(unifiedllm.WithProvider("anthropic", adapter))
//	orch := agentloop.New(client, computer.NewSimulatedExecutor(logger),
//	    agentloop.DefaultRunConfig(), agentloop.WithLogger(logger))
//
//	result := orch.Run(ctx, "Take a screenshot and describe what you see.")
//	fmt.Println(result.Status, result.Result)
//
// Hosts that want progress updates pass WithEvents and drain the emitter's
// channel.
package agentloop
