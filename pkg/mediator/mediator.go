// Package mediator turns natural language questions into Cypher, executes
// them against the session's graph partition, and renders the results as
// conversational prose through an ai.GraphAIClient.
package mediator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buildscope/bimgraph/pkg/ai"
	"github.com/buildscope/bimgraph/pkg/graphstore"
	"github.com/buildscope/bimgraph/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// historyWindow is how many trailing conversation turns are replayed to
	// the model when generating an answer.
	historyWindow = 6

	answerTemperature = 0.5
	cypherTemperature = 0.1

	// defaultResultTokenBudget caps how many tokens of query results are
	// embedded into the answer prompt. Rows past the budget are dropped.
	defaultResultTokenBudget = 4000

	answerFallbackMessage = "申し訳ございませんが、その情報を取得できませんでした。"
)

// Mediator wires the graph store and the language model together. It is safe
// for concurrent use as long as the underlying store and client are.
type Mediator struct {
	store  graphstore.Storage
	client ai.GraphAIClient

	resultTokenBudget int
}

// NewMediatorParams contains configuration options for creating a new Mediator.
type NewMediatorParams struct {
	Store  graphstore.Storage
	Client ai.GraphAIClient

	// ResultTokenBudget overrides the default token budget for embedded
	// query results. Zero means the default.
	ResultTokenBudget int
}

// NewMediator creates a Mediator over the given store and AI client.
func NewMediator(params NewMediatorParams) *Mediator {
	budget := params.ResultTokenBudget
	if budget <= 0 {
		budget = defaultResultTokenBudget
	}

	return &Mediator{
		store:             params.Store,
		client:            params.Client,
		resultTokenBudget: budget,
	}
}

// Answer is the full outcome of one question round trip.
type Answer struct {
	Question     string
	Cypher       string
	UsedFallback bool
	Rows         []map[string]any
	Truncated    bool
	Text         string
}

// GenerateCypher asks the model for a Cypher query answering the question.
// The returned query always carries the session filter. When generation
// fails or produces nothing usable, a keyword-matched fallback query is
// returned instead and the second result is true.
func (m *Mediator) GenerateCypher(ctx context.Context, question string) (string, bool) {
	prompt := fmt.Sprintf("%s\n\nQuestion: %s\n\nCypher:", cypherExamples, question)

	raw, err := m.client.GenerateCompletion(
		ctx,
		prompt,
		ai.WithSystemPrompts(cypherSystemPrompt),
		ai.WithTemperature(cypherTemperature),
	)
	if err != nil {
		logger.Warn("cypher generation failed, using keyword fallback", "error", err)
		return FallbackCypher(question), true
	}

	query := stripFences(raw)
	if query == "" {
		logger.Warn("cypher generation returned empty query, using keyword fallback")
		return FallbackCypher(question), true
	}

	return EnsureSessionFilter(query), false
}

// stripFences removes markdown code fences the model sometimes wraps the
// query in despite instructions.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```cypher", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// EnsureSessionFilter guarantees the query is scoped to $session_id. Every
// query hitting the store must carry the filter; a model that forgot it gets
// it injected at the first WHERE, or before RETURN when there is none.
func EnsureSessionFilter(query string) string {
	if strings.Contains(query, "session_id = $session_id") {
		return query
	}

	if strings.Contains(query, "WHERE") {
		return strings.Replace(query, "WHERE", "WHERE session_id = $session_id AND", 1)
	}

	if idx := strings.Index(query, "RETURN"); idx >= 0 {
		return strings.TrimRight(query[:idx], " ") + " WHERE session_id = $session_id " + query[idx:]
	}

	return query
}

// Query generates Cypher for the question and executes it in the session's
// partition. When the generated query fails at the database, the keyword
// fallback is tried once before giving up.
func (m *Mediator) Query(ctx context.Context, sessionID string, question string) (string, bool, []map[string]any) {
	cypher, usedFallback := m.GenerateCypher(ctx, question)
	params := map[string]any{"session_id": sessionID}

	rows, err := m.store.ExecuteQuery(ctx, cypher, params)
	if err != nil && !usedFallback {
		logger.Warn("generated query failed, retrying with keyword fallback",
			"session_id", sessionID, "error", err)
		cypher = FallbackCypher(question)
		usedFallback = true
		rows, err = m.store.ExecuteQuery(ctx, cypher, params)
	}
	if err != nil {
		logger.Error("query execution failed", "session_id", sessionID, "error", err)
		rows = nil
	}

	return cypher, usedFallback, rows
}

// Answer runs the full round trip: Cypher generation, execution, and prose
// summarization with the trailing conversation history. Failures degrade to
// an apology rather than an error so the chat surface never breaks.
func (m *Mediator) Answer(
	ctx context.Context,
	sessionID string,
	question string,
	history []ai.ChatMessage,
) *Answer {
	cypher, usedFallback, rows := m.Query(ctx, sessionID, question)
	rows, truncated := m.truncateRows(rows)

	messages := append(historyTail(history), ai.ChatMessage{
		Role:    "user",
		Message: buildAnswerPrompt(question, cypher, rows),
	})

	text, err := m.client.GenerateChat(
		ctx,
		messages,
		ai.WithSystemPrompts(answerSystemPrompt),
		ai.WithTemperature(answerTemperature),
	)
	if err != nil {
		logger.Error("answer generation failed", "session_id", sessionID, "error", err)
		text = answerFallbackMessage
	}

	return &Answer{
		Question:     question,
		Cypher:       cypher,
		UsedFallback: usedFallback,
		Rows:         rows,
		Truncated:    truncated,
		Text:         text,
	}
}

// AnswerStream is Answer with an incremental reply. The returned Answer has
// an empty Text; callers accumulate it from the stream. Like Answer, a
// prose failure degrades to a stream carrying the apology.
func (m *Mediator) AnswerStream(
	ctx context.Context,
	sessionID string,
	question string,
	history []ai.ChatMessage,
) (*Answer, <-chan ai.StreamEvent) {
	cypher, usedFallback, rows := m.Query(ctx, sessionID, question)
	rows, truncated := m.truncateRows(rows)

	messages := append(historyTail(history), ai.ChatMessage{
		Role:    "user",
		Message: buildAnswerPrompt(question, cypher, rows),
	})

	stream, err := m.client.GenerateChatStream(
		ctx,
		messages,
		ai.WithSystemPrompts(answerSystemPrompt),
		ai.WithTemperature(answerTemperature),
	)
	if err != nil {
		logger.Error("answer stream start failed", "session_id", sessionID, "error", err)
		fallback := make(chan ai.StreamEvent, 1)
		fallback <- ai.StreamEvent{Type: "content", Content: answerFallbackMessage}
		close(fallback)
		stream = fallback
	}

	return &Answer{
		Question:     question,
		Cypher:       cypher,
		UsedFallback: usedFallback,
		Rows:         rows,
		Truncated:    truncated,
	}, stream
}

func historyTail(history []ai.ChatMessage) []ai.ChatMessage {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	out := make([]ai.ChatMessage, 0, len(history)+1)
	return append(out, history...)
}

func buildAnswerPrompt(question string, cypher string, rows []map[string]any) string {
	results := "[]"
	if data, err := json.MarshalIndent(rows, "", "  "); err == nil && rows != nil {
		results = string(data)
	}

	return fmt.Sprintf(`Based on the following building data, answer the user's question.

Question: %s

Executed query: %s

Query results:
%s

Answer naturally and conversationally in the language of the question. If the results are empty, say so honestly instead of inventing data.`,
		question, cypher, results)
}

// truncateRows drops trailing rows once their serialized form exceeds the
// token budget. Row order is preserved, so aggregates and ORDER BY heads
// survive truncation.
func (m *Mediator) truncateRows(rows []map[string]any) ([]map[string]any, bool) {
	if len(rows) == 0 {
		return rows, false
	}

	used := 0
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			continue
		}
		used += countTokens(string(data))
		if used > m.resultTokenBudget {
			logger.Warn("query results exceed token budget, truncating",
				"kept_rows", i, "total_rows", len(rows))
			return rows[:i], true
		}
	}

	return rows, false
}

func countTokens(s string) int {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		// rough bytes-per-token estimate when the encoder is unavailable
		return len(s) / 4
	}
	return len(enc.Encode(s, nil, nil))
}
