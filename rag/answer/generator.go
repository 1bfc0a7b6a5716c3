package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/llm"
	"github.com/sweetpotato0/enrichrag/message"
	"github.com/sweetpotato0/enrichrag/rag/retriever"
)

const (
	missingGeneric   = "the provided context does not fully answer the question"
	missingUnparsed  = "unable to parse generation output"
	unparsedAnswer   = "I was unable to produce a reliable answer from the available documents."
	noContextMessage = "No context documents are available for this question."
)

// assessmentPayload mirrors the JSON the generator is told to emit. Pointers
// distinguish a missing key from a zero value.
type assessmentPayload struct {
	Answer          *string  `json:"answer"`
	Confidence      *float64 `json:"confidence"`
	IsComplete      *bool    `json:"is_complete"`
	MissingInfo     []string `json:"missing_info"`
	Reasoning       string   `json:"reasoning"`
	RelevantSources []int    `json:"relevant_sources"`
}

// generator produces an AssessedAnswer from the filtered matches.
type generator struct {
	llm         llm.Client
	prompt      string
	strictRetry string
	maxTokens   int64
	timeout     func(context.Context) (context.Context, context.CancelFunc)
	logger      *slog.Logger
}

// Generate runs one model call, plus one stricter retry when the output does
// not parse. Parse failures end in a fallback answer; the error is reserved
// for provider failures and timeouts, wrapped with errors.ErrGeneration.
func (g *generator) Generate(ctx context.Context, query string, matches []retriever.Match) (AssessedAnswer, error) {
	msgs := []*message.Message{
		message.System(g.prompt),
		message.User(userPrompt(query, matches)),
	}
	raw, err := g.call(ctx, msgs)
	if err != nil {
		return AssessedAnswer{}, err
	}
	assessed, perr := parseAssessment(raw, len(matches))
	if perr == nil {
		return assessed, nil
	}
	g.logger.Warn("generation output did not parse, retrying with strict instruction",
		"error", perr,
		"output", trimForLog(raw, 200),
	)

	msgs = append(msgs,
		message.NewMessage(message.RoleAssistant, raw),
		message.User(g.strictRetry),
	)
	raw, err = g.call(ctx, msgs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AssessedAnswer{}, fmt.Errorf("%w: %w", errorskg.ErrGeneration, ctxErr)
		}
		g.logger.Warn("strict generation retry failed", "error", err)
		return fallbackAssessment(), nil
	}
	assessed, perr = parseAssessment(raw, len(matches))
	if perr != nil {
		g.logger.Error("generation output unparseable after retry", "error", perr, "output", trimForLog(raw, 200))
		return fallbackAssessment(), nil
	}
	return assessed, nil
}

func (g *generator) call(ctx context.Context, msgs []*message.Message) (string, error) {
	callCtx, cancel := g.timeout(ctx)
	defer cancel()
	resp, err := g.llm.Generate(callCtx, &llm.Request{
		Messages:  msgs,
		JSON:      true,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		if errors.Is(err, errorskg.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", errorskg.ErrGeneration, err)
	}
	return resp.Text(), nil
}

// userPrompt renders the context block, one "[Source i]" entry per match
// separated by blank lines.
func userPrompt(query string, matches []retriever.Match) string {
	var sb strings.Builder
	sb.WriteString("Context Documents:\n")
	if len(matches) == 0 {
		sb.WriteString(noContextMessage)
		sb.WriteString("\n")
	}
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[Source %d] (Relevance: %.2f)\nDocument: %s\nContent: %s\n", i, m.Score, m.Chunk.SourceName, m.Chunk.Content)
	}
	fmt.Fprintf(&sb, "\nUser Question: %s\n\nRespond with the JSON object only.", query)
	return sb.String()
}

func parseAssessment(raw string, matchCount int) (AssessedAnswer, error) {
	payload, err := decodeJSON[assessmentPayload](raw)
	if err != nil {
		return AssessedAnswer{}, err
	}
	switch {
	case payload.Answer == nil:
		return AssessedAnswer{}, fmt.Errorf("%w: missing answer", errorskg.ErrGenerationParse)
	case payload.Confidence == nil:
		return AssessedAnswer{}, fmt.Errorf("%w: missing confidence", errorskg.ErrGenerationParse)
	case payload.IsComplete == nil:
		return AssessedAnswer{}, fmt.Errorf("%w: missing is_complete", errorskg.ErrGenerationParse)
	}
	return Repair(AssessedAnswer{
		Answer:             strings.TrimSpace(*payload.Answer),
		Confidence:         *payload.Confidence,
		IsComplete:         *payload.IsComplete,
		MissingInformation: payload.MissingInfo,
		UsedMatchIndices:   payload.RelevantSources,
		Reasoning:          strings.TrimSpace(payload.Reasoning),
	}, matchCount), nil
}

// Repair coerces a model-reported assessment into its invariants: confidence
// in [0,1], complete answers carry no missing information, incomplete answers
// carry at least one entry, and used indices are unique and inside
// [0, matchCount).
func Repair(a AssessedAnswer, matchCount int) AssessedAnswer {
	switch {
	case math.IsNaN(a.Confidence) || a.Confidence < 0:
		a.Confidence = 0
	case a.Confidence > 1:
		a.Confidence = 1
	}

	missing := make([]string, 0, len(a.MissingInformation))
	for _, item := range a.MissingInformation {
		if item = strings.TrimSpace(item); item != "" {
			missing = append(missing, item)
		}
	}
	if a.IsComplete && len(missing) > 0 {
		a.IsComplete = false
	}
	if !a.IsComplete && len(missing) == 0 {
		missing = append(missing, missingGeneric)
	}
	a.MissingInformation = missing

	used := make([]int, 0, len(a.UsedMatchIndices))
	seen := make(map[int]struct{}, len(a.UsedMatchIndices))
	for _, idx := range a.UsedMatchIndices {
		if idx < 0 || idx >= matchCount {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		used = append(used, idx)
	}
	a.UsedMatchIndices = used
	return a
}

func fallbackAssessment() AssessedAnswer {
	return AssessedAnswer{
		Answer:             unparsedAnswer,
		Confidence:         0,
		IsComplete:         false,
		MissingInformation: []string{missingUnparsed},
		UsedMatchIndices:   []int{},
	}
}
