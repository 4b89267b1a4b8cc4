package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/partdeck/partdeck/pkg/llm"
	"github.com/partdeck/partdeck/pkg/logging"
)

// SearchFunc executes one retrieval tool query and returns formatted text.
type SearchFunc func(ctx context.Context, query string) (string, error)

type OrchestratorConfig struct {
	Provider  llm.Provider
	Gate      *Gate
	Validator *Validator
	Store     Store
	Tools     map[string]SearchFunc
	Logger    logging.Logger
}

// Orchestrator runs one chat turn end to end: content gate and draft
// completion in parallel, tool execution, synthesis, validation with at most
// one rewrite. A rejected turn leaves the stored history exactly as it was;
// once the gate passes, the user turn and tool turns are committed as they
// are produced, so a failure later in the turn still leaves them in context.
type Orchestrator struct {
	provider  llm.Provider
	gate      *Gate
	validator *Validator
	store     Store
	tools     map[string]SearchFunc
	logger    logging.Logger
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		provider:  cfg.Provider,
		gate:      cfg.Gate,
		validator: cfg.Validator,
		store:     cfg.Store,
		tools:     cfg.Tools,
		logger:    cfg.Logger,
	}
}

func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID, userMessage string) (string, error) {
	history, err := o.store.Get(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("load conversation: %w", err)
	}
	if len(history) == 0 {
		history = []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt}}
	}
	working := append(history, llm.Message{Role: llm.RoleUser, Content: userMessage})

	// The gate verdict and the draft run concurrently; the draft is thrown
	// away if the gate rejects.
	var decision GateDecision
	var draft llm.Completion
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		decision = o.gate.Evaluate(groupCtx, userMessage)
		return nil
	})
	group.Go(func() error {
		var draftErr error
		draft, draftErr = o.complete(groupCtx, working, ToolDefinitions)
		return draftErr
	})
	if err := group.Wait(); err != nil {
		return "", fmt.Errorf("draft completion: %w", err)
	}

	if !decision.Allowed {
		gateDecisionsTotal.WithLabelValues("rejected").Inc()
		o.logger.WithFields(logging.Fields{
			"conversation_id": conversationID,
			"gate_score":      decision.Score,
		}).Info("Query rejected by content gate")
		return RefusalMessage, nil
	}
	gateDecisionsTotal.WithLabelValues("allowed").Inc()

	commit := func() error {
		if err := o.store.Replace(ctx, conversationID, working); err != nil {
			return fmt.Errorf("store conversation: %w", err)
		}
		return nil
	}
	// The user turn is committed now that the gate has passed.
	if err := commit(); err != nil {
		return "", err
	}

	final := draft.Content
	if len(draft.ToolCalls) > 0 {
		var results []SearchResult
		for _, call := range draft.ToolCalls {
			result, err := o.runTool(ctx, call)
			if err != nil {
				return "", err
			}
			working = append(working,
				llm.Message{Role: llm.RoleAssistant, Content: draft.Content, ToolCalls: []llm.ToolCall{call}},
				llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: result},
			)
			results = append(results, SearchResult{Tool: call.Name, Content: result})
		}
		if err := commit(); err != nil {
			return "", err
		}

		synthesis, err := o.complete(ctx, working, nil)
		if err != nil {
			return "", fmt.Errorf("synthesis completion: %w", err)
		}
		final = synthesis.Content

		verdict := o.validator.Validate(ctx, userMessage, results, final)
		if verdict.Passed {
			validationOutcomesTotal.WithLabelValues("passed").Inc()
		} else {
			validationOutcomesTotal.WithLabelValues("failed").Inc()
		}
		if !verdict.Passed && len(verdict.Suggestions) > 0 {
			validationRetriesTotal.Inc()
			o.logger.WithFields(logging.Fields{
				"conversation_id": conversationID,
				"suggestions":     len(verdict.Suggestions),
			}).Info("Validation failed, rewriting response")

			feedback, _ := json.Marshal(verdict.Suggestions)
			working = append(working, llm.Message{
				Role:    llm.RoleSystem,
				Content: "Please improve the response. Issues found: " + string(feedback),
			})
			if err := commit(); err != nil {
				return "", err
			}
			rewrite, err := o.complete(ctx, working, nil)
			if err != nil {
				return "", fmt.Errorf("rewrite completion: %w", err)
			}
			final = rewrite.Content
		}
	}

	working = append(working, llm.Message{Role: llm.RoleAssistant, Content: final})
	working = TruncateHistory(working)
	if err := commit(); err != nil {
		return "", err
	}
	return final, nil
}

func (o *Orchestrator) runTool(ctx context.Context, call llm.ToolCall) (string, error) {
	fn, ok := o.tools[call.Name]
	if !ok {
		o.logger.WithField("tool", call.Name).Warn("Model requested unknown tool")
		return "Error: Unknown tool " + call.Name, nil
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return "", fmt.Errorf("decode %s arguments: %w", call.Name, err)
	}

	searchQueriesTotal.WithLabelValues(call.Name).Inc()
	result, err := fn(ctx, args.Query)
	if err != nil {
		// Retrieval failure degrades the answer, it never aborts the turn.
		// The model sees the error as tool output and answers around it.
		o.logger.WithError(err).WithField("tool", call.Name).Warn("Search failed")
		return searchErrorText(call.Name, err), nil
	}
	return result, nil
}

func searchErrorText(tool string, err error) string {
	if tool == ToolSupportInfo {
		return "Error searching support information: " + err.Error()
	}
	return "Error searching for parts: " + err.Error()
}

func (o *Orchestrator) complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Completion, error) {
	start := time.Now()
	completion, err := o.provider.Complete(ctx, messages, tools)
	llmDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		llmCallsTotal.WithLabelValues("error").Inc()
		return llm.Completion{}, err
	}
	llmCallsTotal.WithLabelValues("success").Inc()
	return completion, nil
}
