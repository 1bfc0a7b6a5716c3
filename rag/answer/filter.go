package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/enrichrag/llm"
	"github.com/sweetpotato0/enrichrag/message"
	"github.com/sweetpotato0/enrichrag/rag/retriever"
)

const filterExcerptRunes = 600

type relevancePayload struct {
	RelevantIndices *[]int `json:"relevant_indices"`
}

// relevanceFilter asks the model which retrieved matches are on-topic. It
// only ever selects a subset; it never rewrites content.
type relevanceFilter struct {
	llm     llm.Client
	prompt  string
	timeout func(context.Context) (context.Context, context.CancelFunc)
	logger  *slog.Logger
}

// Filter returns the relevant subset in retrieval order. excluded is true when
// the model judged every match off-topic. Unusable model output keeps every
// match. The error is non-nil only when ctx itself is done.
func (f *relevanceFilter) Filter(ctx context.Context, query string, matches []retriever.Match) (kept []retriever.Match, excluded bool, err error) {
	if len(matches) == 0 {
		return matches, false, nil
	}

	callCtx, cancel := f.timeout(ctx)
	defer cancel()
	resp, err := f.llm.Generate(callCtx, &llm.Request{
		Messages: []*message.Message{
			message.System(f.prompt),
			message.User(filterPrompt(query, matches)),
		},
		JSON:      true,
		MaxTokens: 200,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		f.logger.Warn("relevance filter failed, keeping all matches", "error", err)
		return matches, false, nil
	}

	payload, err := decodeJSON[relevancePayload](resp.Text())
	if err != nil || payload.RelevantIndices == nil {
		f.logger.Warn("relevance filter output unusable, keeping all matches",
			"error", err,
			"output", trimForLog(resp.Text(), 200),
		)
		return matches, false, nil
	}

	indices := *payload.RelevantIndices
	if len(indices) == 0 {
		f.logger.Info("relevance filter excluded every match", "query", trimForLog(query, 80), "matches", len(matches))
		return nil, true, nil
	}

	keep := make([]bool, len(matches))
	valid := 0
	for _, idx := range indices {
		if idx < 0 || idx >= len(matches) {
			f.logger.Warn("relevance filter returned an out of range index, keeping all matches", "indices", indices, "matches", len(matches))
			return matches, false, nil
		}
		if !keep[idx] {
			keep[idx] = true
			valid++
		}
	}

	kept = make([]retriever.Match, 0, valid)
	for i, m := range matches {
		if keep[i] {
			kept = append(kept, m)
		}
	}
	f.logger.Debug("relevance filter applied", "retrieved", len(matches), "kept", len(kept))
	return kept, false, nil
}

func filterPrompt(query string, matches []retriever.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nPassages:\n", query)
	for i, m := range matches {
		fmt.Fprintf(&sb, "[%d] %s: %s\n\n", i, m.Chunk.SourceName, trimForLog(m.Chunk.Content, filterExcerptRunes))
	}
	sb.WriteString(`Return {"relevant_indices":[...]} only.`)
	return sb.String()
}
