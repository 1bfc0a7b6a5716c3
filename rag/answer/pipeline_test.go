package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweetpotato0/enrichrag/contrib/vector/inmemory"
	errorskg "github.com/sweetpotato0/enrichrag/errors"
	"github.com/sweetpotato0/enrichrag/llm"
	"github.com/sweetpotato0/enrichrag/message"
	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/rag/embedder"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
	"github.com/sweetpotato0/enrichrag/rag/retriever"
	"github.com/sweetpotato0/enrichrag/vector"
)

const (
	completeVacation = `{"answer":"Employees receive 15 days of vacation per year.","confidence":0.92,"is_complete":true,"missing_info":[],"reasoning":"Stated directly.","relevant_sources":[0]}`
	incompleteReply  = `{"answer":"Partially covered.","confidence":0.3,"is_complete":false,"missing_info":["carry-over rules"],"reasoning":"Context is thin.","relevant_sources":[0]}`
)

var keywords = []string{"vacation", "physics", "recipe", "quantum", "salary"}

type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	for i, kw := range keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	vec[len(keywords)] = 0.05
	return vec, nil
}

func (e keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

func (keywordEmbedder) Dimension() int { return len(keywords) + 1 }

// scriptedLLM answers filter and generation calls from separate scripts.
// The last entry of a script repeats once it is exhausted.
type scriptedLLM struct {
	mu            sync.Mutex
	filterReplies []string
	answerReplies []string
	answerErrs    map[int]error
	filterCalls   int
	answerCalls   int
	answerPrompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	system, rest := message.Split(req.Messages)
	if strings.Contains(system, "relevant_indices") {
		s.filterCalls++
		return llm.Reply(pick(s.filterReplies, s.filterCalls)), nil
	}
	s.answerCalls++
	if err := s.answerErrs[s.answerCalls]; err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		s.answerPrompts = append(s.answerPrompts, rest[0].Text())
	}
	return llm.Reply(pick(s.answerReplies, s.answerCalls)), nil
}

func pick(script []string, call int) string {
	if len(script) == 0 {
		return ""
	}
	if call <= len(script) {
		return script[call-1]
	}
	return script[len(script)-1]
}

type stubEnricher struct {
	mu      sync.Mutex
	outcome enrich.Outcome
	block   bool
	gaps    []enrich.Gap
	before  func()
}

func (s *stubEnricher) ShouldEnrich(g enrich.Gap) bool {
	return !g.IsComplete && (g.Confidence < 0.7 || len(g.Missing) > 0)
}

func (s *stubEnricher) Enrich(ctx context.Context, g enrich.Gap) (enrich.Outcome, error) {
	s.mu.Lock()
	s.gaps = append(s.gaps, g)
	s.mu.Unlock()
	if s.before != nil {
		s.before()
	}
	if s.block {
		<-ctx.Done()
		return enrich.Outcome{State: enrich.StateNoOp}, ctx.Err()
	}
	return s.outcome, nil
}

func newIndex(t *testing.T, docs ...document.Document) *retriever.Retriever {
	t.Helper()
	r := retriever.New(inmemory.NewVectorStore(), embedder.NewGateway(keywordEmbedder{}), nil)
	if len(docs) > 0 {
		if _, err := r.IndexDocuments(context.Background(), docs...); err != nil {
			t.Fatalf("IndexDocuments error: %v", err)
		}
	}
	return r
}

func newPipeline(t *testing.T, r Retriever, client llm.Client, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) })}, opts...)
	p, err := New(r, client, opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return p
}

var vacationDoc = document.Document{ID: "hr", Title: "HR Handbook", Content: "Employees receive 15 days vacation per year"}

func TestVacationPolicyAnsweredFromSingleChunk(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{completeVacation},
	}
	enricher := &stubEnricher{}
	p := newPipeline(t, newIndex(t, vacationDoc), client, WithEnricher(enricher))

	resp, err := p.Answer(context.Background(), "What is the vacation policy?", true)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if !resp.IsComplete || resp.Confidence < 0.7 {
		t.Fatalf("expected confident complete answer, got %+v", resp)
	}
	if resp.EnrichmentApplied || len(enricher.gaps) != 0 {
		t.Fatalf("complete answer must not trigger enrichment")
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("expected exactly one source, got %d", len(resp.Sources))
	}
	src := resp.Sources[0]
	if src.Name != "HR Handbook" || src.SourceID != "hr" || src.IsExternal {
		t.Fatalf("unexpected source %+v", src)
	}
	if !strings.Contains(src.Excerpt, "15 days vacation") || src.RelevanceScore <= 0 || src.RelevanceScore > 1 {
		t.Fatalf("unexpected excerpt/score %+v", src)
	}
	if len(resp.MissingInformation) != 0 || len(resp.Suggestions) != 0 {
		t.Fatalf("complete answer carries no gaps: %+v", resp)
	}
	if !resp.Timestamp.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", resp.Timestamp)
	}
	if !strings.Contains(client.answerPrompts[0], "[Source 0] (Relevance: ") ||
		!strings.Contains(client.answerPrompts[0], "Document: HR Handbook\nContent: Employees receive 15 days vacation per year") {
		t.Fatalf("unexpected context block:\n%s", client.answerPrompts[0])
	}
}

func TestEmptyIndexSkipsGenerator(t *testing.T) {
	client := &scriptedLLM{answerReplies: []string{completeVacation}}
	p := newPipeline(t, newIndex(t), client)

	resp, err := p.Answer(context.Background(), "What is the vacation policy?", false)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if client.answerCalls != 0 || client.filterCalls != 0 {
		t.Fatalf("model must not be invoked, answer=%d filter=%d", client.answerCalls, client.filterCalls)
	}
	if resp.IsComplete || resp.Confidence != 0 || len(resp.Sources) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Answer != "I couldn't find any relevant documents in the knowledge base to answer your question." {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if len(resp.MissingInformation) != 1 || resp.MissingInformation[0] != "No documents available in the knowledge base" {
		t.Fatalf("unexpected missing info %v", resp.MissingInformation)
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0].Suggestion != "Upload documents related to this topic" {
		t.Fatalf("unexpected suggestions %+v", resp.Suggestions)
	}
}

func TestEmptyIndexEnrichedFromConnector(t *testing.T) {
	r := newIndex(t)
	registry := enrich.NewRegistry()
	wiki := connectorFunc{name: enrich.SourceWikipedia, label: "Wikipedia", results: []enrich.Result{{
		Title:   "Vacation",
		URL:     "https://en.wikipedia.org/wiki/Vacation",
		Content: "A vacation is a leave of absence from a regular job, often 10 to 20 days per year.",
	}}}
	if err := registry.Register(wiki, 0); err != nil {
		t.Fatalf("Register: %v", err)
	}
	orch := enrich.NewOrchestrator(registry, r, r.Embedder(), enrich.WithCourtesyDelay(0))

	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{`{"answer":"Typically 10 to 20 days.","confidence":0.8,"is_complete":true,"missing_info":[],"reasoning":"From Wikipedia.","relevant_sources":[0]}`},
	}
	p := newPipeline(t, r, client, WithEnricher(orch))

	resp, err := p.Answer(context.Background(), "How long is a typical vacation?", true)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if !resp.EnrichmentApplied || len(resp.EnrichmentSources) != 1 || resp.EnrichmentSources[0] != "Wikipedia" {
		t.Fatalf("expected enrichment from Wikipedia, got %+v", resp)
	}
	if client.answerCalls != 1 {
		t.Fatalf("generator runs only on the enriched pass, got %d calls", client.answerCalls)
	}
	if len(resp.Sources) != 1 || !resp.Sources[0].IsExternal || resp.Sources[0].Name != "Wikipedia: Vacation" {
		t.Fatalf("unexpected sources %+v", resp.Sources)
	}
	if resp.Sources[0].URL != "https://en.wikipedia.org/wiki/Vacation" {
		t.Fatalf("unexpected url %q", resp.Sources[0].URL)
	}
	if len(resp.Suggestions) == 0 || resp.Suggestions[0].Type != SuggestionExternalSource ||
		resp.Suggestions[0].ExternalSourceURL == "" {
		t.Fatalf("expected external source suggestion, got %+v", resp.Suggestions)
	}
}

func TestEnrichmentRunsAtMostOnce(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{incompleteReply},
	}
	enricher := &stubEnricher{outcome: enrich.Outcome{State: enrich.StateCompleted, Sources: []string{"arXiv"}, Committed: 1}}
	p := newPipeline(t, newIndex(t, vacationDoc), client, WithEnricher(enricher))

	resp, err := p.Answer(context.Background(), "What is the vacation policy?", true)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if len(enricher.gaps) != 1 {
		t.Fatalf("expected exactly one enrichment, got %d", len(enricher.gaps))
	}
	if client.answerCalls != 2 {
		t.Fatalf("expected original and regenerated answers, got %d", client.answerCalls)
	}
	if !resp.EnrichmentApplied || resp.IsComplete {
		t.Fatalf("expected applied enrichment with incomplete answer, got %+v", resp)
	}
	if got := enricher.gaps[0].Missing; len(got) != 1 || got[0] != "carry-over rules" {
		t.Fatalf("unexpected gap %+v", enricher.gaps[0])
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0].Priority != "high" ||
		resp.Suggestions[0].Suggestion != "Upload documents containing information about: carry-over rules" {
		t.Fatalf("unexpected suggestions %+v", resp.Suggestions)
	}
}

func TestEnrichmentNoOpKeepsFirstAnswer(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{incompleteReply},
	}
	enricher := &stubEnricher{outcome: enrich.Outcome{State: enrich.StateNoOp}}
	p := newPipeline(t, newIndex(t, vacationDoc), client, WithEnricher(enricher))

	resp, err := p.Answer(context.Background(), "What is the vacation policy?", true)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if resp.EnrichmentApplied || client.answerCalls != 1 || resp.Answer != "Partially covered." {
		t.Fatalf("unexpected response %+v calls=%d", resp, client.answerCalls)
	}
	if resp.Enrichment == nil || resp.Enrichment.State != enrich.StateNoOp {
		t.Fatalf("expected NoOp outcome on response")
	}
}

func TestEnrichmentNotAllowed(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{incompleteReply},
	}
	enricher := &stubEnricher{outcome: enrich.Outcome{State: enrich.StateCompleted}}
	p := newPipeline(t, newIndex(t, vacationDoc), client, WithEnricher(enricher))

	if _, err := p.Answer(context.Background(), "What is the vacation policy?", false); err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if len(enricher.gaps) != 0 {
		t.Fatalf("enrichment ran although not allowed")
	}
}

func TestDeadlineAbandonsEnrichment(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{incompleteReply},
	}
	enricher := &stubEnricher{block: true}
	p := newPipeline(t, newIndex(t, vacationDoc), client, WithEnricher(enricher), WithDeadline(50*time.Millisecond))

	start := time.Now()
	resp, err := p.Answer(context.Background(), "What is the vacation policy?", true)
	if err != nil {
		t.Fatalf("deadline during enrichment must not fail: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("pipeline blocked past its deadline")
	}
	if resp.EnrichmentApplied || resp.Answer != "Partially covered." {
		t.Fatalf("expected first answer, got %+v", resp)
	}
}

// stallingLLM answers the relevance filter but never returns a generation
// before its context ends.
type stallingLLM struct{}

func (stallingLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	system, _ := message.Split(req.Messages)
	if strings.Contains(system, "relevant_indices") {
		return llm.Reply(`{"relevant_indices":[0]}`), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDeadlineBeforeFirstAnswerDegrades(t *testing.T) {
	p := newPipeline(t, newIndex(t, vacationDoc), stallingLLM{}, WithDeadline(50*time.Millisecond))

	start := time.Now()
	resp, err := p.Answer(context.Background(), "What is the vacation policy?", true)
	if err != nil {
		t.Fatalf("deadline before the first answer must not fail: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("pipeline blocked past its deadline")
	}
	if resp.Confidence != 0 || resp.IsComplete || resp.EnrichmentApplied {
		t.Fatalf("expected a zero-confidence incomplete response, got %+v", resp)
	}
	if len(resp.Sources) != 0 || len(resp.EnrichmentSources) != 0 {
		t.Fatalf("timed out response must carry no sources: %+v", resp)
	}
	if len(resp.MissingInformation) != 1 || resp.MissingInformation[0] != missingTimeout {
		t.Fatalf("unexpected missing information %v", resp.MissingInformation)
	}

	// a caller that cancels still gets the error
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Answer(ctx, "What is the vacation policy?", false); err == nil {
		t.Fatalf("cancelled caller context must surface an error")
	}
}

func TestRegenerationFailureKeepsFirstAnswer(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{incompleteReply},
		answerErrs:    map[int]error{2: errors.New("503 from provider")},
	}
	enricher := &stubEnricher{outcome: enrich.Outcome{
		State:   enrich.StateCompleted,
		Sources: []string{"Wikipedia"},
		Items:   []enrich.Committed{{Source: enrich.SourceWikipedia, Label: "Wikipedia", Title: "Annual leave"}},
	}}
	p := newPipeline(t, newIndex(t, vacationDoc), client, WithEnricher(enricher))

	resp, err := p.Answer(context.Background(), "What is the vacation policy?", true)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if resp.EnrichmentApplied || resp.Answer != "Partially covered." {
		t.Fatalf("expected fallback to first answer, got %+v", resp)
	}
	if len(resp.EnrichmentSources) != 0 {
		t.Fatalf("unused enrichment listed as sources: %v", resp.EnrichmentSources)
	}
	for _, s := range resp.Suggestions {
		if s.Type == SuggestionExternalSource {
			t.Fatalf("fetched content the answer did not use is suggested: %+v", s)
		}
	}
}

func TestIdempotentSourcesWithoutEnrichment(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0,1]}`},
		answerReplies: []string{`{"answer":"a","confidence":0.9,"is_complete":true,"missing_info":[],"reasoning":"","relevant_sources":[0,1]}`},
	}
	r := newIndex(t, vacationDoc, document.Document{ID: "hr2", Title: "Vacation FAQ", Content: "Vacation and salary requests need two weeks notice."})
	p := newPipeline(t, r, client)

	first, err := p.Answer(context.Background(), "vacation rules", false)
	if err != nil {
		t.Fatalf("first Answer: %v", err)
	}
	second, err := p.Answer(context.Background(), "vacation rules", false)
	if err != nil {
		t.Fatalf("second Answer: %v", err)
	}
	if len(first.Sources) != 2 || len(first.Sources) != len(second.Sources) {
		t.Fatalf("source count changed: %d vs %d", len(first.Sources), len(second.Sources))
	}
	for i := range first.Sources {
		if first.Sources[i].ChunkID != second.Sources[i].ChunkID {
			t.Fatalf("sources differ at %d: %s vs %s", i, first.Sources[i].ChunkID, second.Sources[i].ChunkID)
		}
	}
}

func TestRelevanceFilterExcludesUnrelatedChunks(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{`{"answer":"Quantum physics studies small scales.","confidence":0.8,"is_complete":true,"missing_info":[],"reasoning":"","relevant_sources":[0,1]}`},
	}
	r := newIndex(t,
		document.Document{ID: "physics", Title: "Physics Notes", Content: "Quantum physics describes nature at small scales."},
		document.Document{ID: "cookbook", Title: "Cookbook", Content: "This recipe bakes bread with physics-free love."},
	)
	p := newPipeline(t, r, client)

	resp, err := p.Answer(context.Background(), "Explain quantum physics", false)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if strings.Contains(client.answerPrompts[0], "Cookbook") {
		t.Fatalf("cookbook chunk reached the generator:\n%s", client.answerPrompts[0])
	}
	if len(resp.Sources) != 1 || resp.Sources[0].SourceID != "physics" {
		t.Fatalf("expected only the physics source, got %+v", resp.Sources)
	}
}

func TestRelevanceFilterExcludingAllBehavesLikeNoDocuments(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[]}`},
		answerReplies: []string{completeVacation},
	}
	enricher := &stubEnricher{outcome: enrich.Outcome{State: enrich.StateNoOp}}
	r := newIndex(t, document.Document{ID: "cookbook", Title: "Cookbook", Content: "A bread recipe."})
	p := newPipeline(t, r, client, WithEnricher(enricher))

	resp, err := p.Answer(context.Background(), "Explain quantum physics", true)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if client.answerCalls != 0 {
		t.Fatalf("generator must not run when every match is excluded")
	}
	if resp.Confidence != 0 || resp.IsComplete || len(resp.Sources) != 0 {
		t.Fatalf("expected no-documents response, got %+v", resp)
	}
	if len(enricher.gaps) != 1 || enricher.gaps[0].Missing != nil {
		t.Fatalf("expected enrichment eligibility with topic-free gap, got %+v", enricher.gaps)
	}
}

func TestRelevanceFilterFailsOpen(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{"I think they are all fine"},
		answerReplies: []string{`{"answer":"a","confidence":0.9,"is_complete":true,"missing_info":[],"reasoning":"","relevant_sources":[0,1]}`},
	}
	r := newIndex(t, vacationDoc, document.Document{ID: "hr2", Title: "Vacation FAQ", Content: "Vacation and salary requests need notice."})
	p := newPipeline(t, r, client)

	resp, err := p.Answer(context.Background(), "vacation", false)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("unparseable filter output must keep every match, got %d sources", len(resp.Sources))
	}
}

func TestRelevanceFilterOutOfRangeIndexKeepsEveryMatch(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0,99]}`},
		answerReplies: []string{`{"answer":"a","confidence":0.9,"is_complete":true,"missing_info":[],"reasoning":"","relevant_sources":[0,1]}`},
	}
	r := newIndex(t, vacationDoc, document.Document{ID: "hr2", Title: "Vacation FAQ", Content: "Vacation and salary requests need notice."})
	p := newPipeline(t, r, client)

	resp, err := p.Answer(context.Background(), "vacation", false)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("filter output with an invalid index must keep every match, got %d sources", len(resp.Sources))
	}
}

func TestGenerationParseRetryAndFallback(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{"Sure! The answer is 15 days.", completeVacation},
	}
	p := newPipeline(t, newIndex(t, vacationDoc), client)
	resp, err := p.Answer(context.Background(), "What is the vacation policy?", false)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if client.answerCalls != 2 || !resp.IsComplete {
		t.Fatalf("expected strict retry to recover, calls=%d resp=%+v", client.answerCalls, resp)
	}

	client = &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{"not json", `{"answer":"missing the rest"}`},
	}
	p = newPipeline(t, newIndex(t, vacationDoc), client)
	resp, err = p.Answer(context.Background(), "What is the vacation policy?", false)
	if err != nil {
		t.Fatalf("parse failures must not surface: %v", err)
	}
	if resp.Confidence != 0 || resp.IsComplete || len(resp.Sources) != 0 {
		t.Fatalf("unexpected fallback %+v", resp)
	}
	if len(resp.MissingInformation) != 1 || resp.MissingInformation[0] != "unable to parse generation output" {
		t.Fatalf("unexpected fallback missing info %v", resp.MissingInformation)
	}
}

func TestPipelineRepairsInconsistentAssessment(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerReplies: []string{"```json\n{\"answer\":\"x\",\"confidence\":1.7,\"is_complete\":true,\"missing_info\":[\"start date\"],\"reasoning\":\"\",\"relevant_sources\":[0,0,7]}\n```"},
	}
	p := newPipeline(t, newIndex(t, vacationDoc), client)
	resp, err := p.Answer(context.Background(), "What is the vacation policy?", false)
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if resp.Confidence != 1 || resp.IsComplete {
		t.Fatalf("expected clamped confidence and incomplete answer, got %+v", resp)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("expected duplicate and out-of-range indices to be dropped, got %d sources", len(resp.Sources))
	}
}

func TestUnrecoverableErrorsSurface(t *testing.T) {
	client := &scriptedLLM{
		filterReplies: []string{`{"relevant_indices":[0]}`},
		answerErrs:    map[int]error{1: errors.New("connection refused")},
	}
	p := newPipeline(t, newIndex(t, vacationDoc), client)
	if _, err := p.Answer(context.Background(), "vacation", false); !errors.Is(err, errorskg.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}

	p = newPipeline(t, downRetriever{}, &scriptedLLM{})
	if _, err := p.Answer(context.Background(), "vacation", false); !errors.Is(err, errorskg.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}

	if _, err := p.Answer(context.Background(), "   ", false); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswerWithTopKOverride(t *testing.T) {
	rec := &recordingRetriever{}
	client := &scriptedLLM{}
	p := newPipeline(t, rec, client, WithTopK(5))
	if _, err := p.AnswerWith(context.Background(), "vacation", RunOptions{TopK: 2}); err != nil {
		t.Fatalf("AnswerWith error: %v", err)
	}
	if rec.k != 2 {
		t.Fatalf("expected top_k override 2, got %d", rec.k)
	}
}

type downRetriever struct{}

func (downRetriever) Retrieve(context.Context, string, int) ([]retriever.Match, error) {
	return nil, errors.Join(errorskg.ErrIndexUnavailable, errors.New("dial tcp: refused"))
}

type recordingRetriever struct{ k int }

func (r *recordingRetriever) Retrieve(_ context.Context, _ string, k int) ([]retriever.Match, error) {
	r.k = k
	return nil, errorskg.ErrNoDocuments
}

type connectorFunc struct {
	name, label string
	results     []enrich.Result
}

func (c connectorFunc) Name() string        { return c.name }
func (c connectorFunc) Label() string       { return c.label }
func (c connectorFunc) Description() string { return c.label }
func (c connectorFunc) Search(context.Context, string) ([]enrich.Result, error) {
	return c.results, nil
}

var _ vector.Embedder = keywordEmbedder{}
