package collaborator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mfgplan/allocator/pkg/feedback"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const proposerSystemPrompt = "You are a manufacturing allocation planner. " +
	"Given machines with capacity, variable cost per unit, and one-time fixed cost, " +
	"propose how many units each machine should produce to meet demand at minimum total cost. " +
	"Respond with a JSON object: {\"allocation\": {\"<machine>\": <units>, ...}, \"rationale\": \"...\"}."

const reviewerSystemPromptFormat = "You are a manufacturing %s reviewing a proposed allocation. " +
	"Rate it and respond with a JSON object: {\"assessment_rating\": \"poor|acceptable|good|optimal\", " +
	"\"key_recommendations\": [...], \"concerns\": [...], " +
	"\"mathematically_verified\": <bool>, \"alternatives_tested\": <bool>}."

// LLMProposer obtains candidate allocations from an OpenAI chat model. Its
// output is untrusted free text; the extraction adapter scrapes the
// allocation out of it and the engine repairs the result.
type LLMProposer struct {
	client openai.Client
	model  openai.ChatModel
	logger *zap.Logger
}

// NewLLMProposer constructs a proposer for the given API key and model.
// An empty model selects gpt-4o.
func NewLLMProposer(apiKey, model string, logger *zap.Logger) *LLMProposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	chatModel := openai.ChatModel(model)
	if model == "" {
		chatModel = openai.ChatModelGPT4o
	}
	return &LLMProposer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  chatModel,
		logger: logger,
	}
}

// Propose performs one blocking chat round-trip and extracts the proposed
// allocation from the reply.
func (p *LLMProposer) Propose(ctx context.Context, req ProposalRequest) (Proposal, error) {
	prompt := proposalPrompt(req)
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(proposerSystemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return Proposal{}, fmt.Errorf("proposal round-trip failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Proposal{}, fmt.Errorf("proposal round-trip returned no choices")
	}

	text := completion.Choices[0].Message.Content
	allocation, rationale, err := ExtractAllocation(text)
	if err != nil {
		p.logger.Warn("failed to extract allocation from model reply",
			zap.String("reply", text),
			zap.Error(err),
		)
		return Proposal{}, err
	}
	return Proposal{Allocation: allocation, Rationale: rationale}, nil
}

// LLMReviewer obtains feedback records from an OpenAI chat model acting in
// a named expert role.
type LLMReviewer struct {
	client openai.Client
	model  openai.ChatModel
	role   string
	logger *zap.Logger
}

// NewLLMReviewer constructs a reviewer acting in the given role, e.g.,
// "cost expert" or "optimization strategist".
func NewLLMReviewer(apiKey, model, role string, logger *zap.Logger) *LLMReviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	chatModel := openai.ChatModel(model)
	if model == "" {
		chatModel = openai.ChatModelGPT4o
	}
	return &LLMReviewer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  chatModel,
		role:   role,
		logger: logger,
	}
}

// Role identifies the reviewer in feedback records.
func (r *LLMReviewer) Role() string { return r.role }

// Review performs one blocking chat round-trip. Unparsable replies degrade
// to the default record rather than failing the attempt.
func (r *LLMReviewer) Review(ctx context.Context, req ReviewRequest) (feedback.Record, error) {
	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(reviewerSystemPromptFormat, r.role)),
			openai.UserMessage(reviewPrompt(req)),
		},
	})
	if err != nil {
		return feedback.Record{}, fmt.Errorf("review round-trip failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return feedback.Record{}, fmt.Errorf("review round-trip returned no choices")
	}
	return ExtractFeedback(r.role, completion.Choices[0].Message.Content), nil
}

func proposalPrompt(req ProposalRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Demand: %d units. Iteration: %d.\nMachines:\n", req.Demand, req.Iteration)
	for _, name := range req.Machines.Names() {
		m := req.Machines[name]
		fmt.Fprintf(&b, "  %s: capacity=%d variable_cost=%.2f fixed_cost=%.2f\n",
			name, m.Capacity, m.VariableCost, m.FixedCost)
	}
	if len(req.PriorAttempts) > 0 {
		b.WriteString("Previous attempts:\n")
		for _, attempt := range req.PriorAttempts {
			fmt.Fprintf(&b, "  %s\n", attempt)
		}
	}
	if len(req.PriorFeedback) > 0 {
		b.WriteString("Previous feedback:\n")
		for _, fb := range req.PriorFeedback {
			fmt.Fprintf(&b, "  %s\n", fb)
		}
	}
	return b.String()
}

func reviewPrompt(req ReviewRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Demand: %d units.\nMachines:\n", req.Demand)
	for _, name := range req.Machines.Names() {
		m := req.Machines[name]
		fmt.Fprintf(&b, "  %s: capacity=%d variable_cost=%.2f fixed_cost=%.2f\n",
			name, m.Capacity, m.VariableCost, m.FixedCost)
	}
	b.WriteString("Proposed allocation:\n")
	for _, name := range req.Machines.Names() {
		fmt.Fprintf(&b, "  %s: %d units\n", name, req.Allocation[name])
	}
	fmt.Fprintf(&b, "Total cost: %.2f (variable %.2f, fixed %.2f)\n",
		req.Cost.Total, req.Cost.VariableTotal, req.Cost.FixedTotal)
	if req.Rationale != "" {
		fmt.Fprintf(&b, "Proposer rationale: %s\n", req.Rationale)
	}
	return b.String()
}
