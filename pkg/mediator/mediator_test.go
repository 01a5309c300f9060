package mediator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/buildscope/bimgraph/pkg/ai"
	"github.com/buildscope/bimgraph/pkg/common"
	"github.com/buildscope/bimgraph/pkg/graphstore"
)

type fakeClient struct {
	completion    string
	completionErr error
	chat          string
	chatErr       error
	streamErr     error

	lastChatMessages []ai.ChatMessage
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return f.completion, f.completionErr
}

func (f *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("not supported")
}

func (f *fakeClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	f.lastChatMessages = messages
	return f.chat, f.chatErr
}

func (f *fakeClient) GenerateChatStream(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	f.lastChatMessages = messages
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	out := make(chan ai.StreamEvent, 1)
	out <- ai.StreamEvent{Type: "content", Content: f.chat}
	close(out)
	return out, nil
}

func (f *fakeClient) ResetMetrics()               {}
func (f *fakeClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

type fakeStore struct {
	rows    []map[string]any
	err     error
	failFor string

	queries []string
}

func (f *fakeStore) VerifyConnectivity(ctx context.Context) error { return nil }
func (f *fakeStore) EnsureSchema(ctx context.Context) error       { return nil }
func (f *fakeStore) PurgeSession(ctx context.Context, sessionID string) error {
	return nil
}

func (f *fakeStore) ImportModel(ctx context.Context, sessionID string, model *common.BuildingModel) (graphstore.ImportStats, error) {
	return graphstore.ImportStats{}, nil
}

func (f *fakeStore) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, cypher)
	if f.err != nil {
		return nil, f.err
	}
	if f.failFor != "" && strings.Contains(cypher, f.failFor) {
		return nil, errors.New("syntax error")
	}
	return f.rows, nil
}

func (f *fakeStore) Close(ctx context.Context) error { return nil }

func TestEnsureSessionFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "already filtered",
			query: "MATCH (n:IfcDoor) WHERE n.session_id = $session_id RETURN count(n)",
			want:  "MATCH (n:IfcDoor) WHERE n.session_id = $session_id RETURN count(n)",
		},
		{
			name:  "existing where clause",
			query: "MATCH (n:IfcDoor) WHERE n.name = 'D1' RETURN n",
			want:  "MATCH (n:IfcDoor) WHERE session_id = $session_id AND n.name = 'D1' RETURN n",
		},
		{
			name:  "no where clause",
			query: "MATCH (n:IfcWindow) RETURN count(n) as c",
			want:  "MATCH (n:IfcWindow) WHERE session_id = $session_id RETURN count(n) as c",
		},
		{
			name:  "only first where is touched",
			query: "MATCH (a) WHERE a.x = 1 MATCH (b) WHERE b.y = 2 RETURN a, b",
			want:  "MATCH (a) WHERE session_id = $session_id AND a.x = 1 MATCH (b) WHERE b.y = 2 RETURN a, b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnsureSessionFilter(tt.query)
			if got != tt.want {
				t.Errorf("EnsureSessionFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateCypherStripsFences(t *testing.T) {
	client := &fakeClient{
		completion: "```cypher\nMATCH (n:IfcDoor) WHERE n.session_id = $session_id RETURN count(n)\n```",
	}
	m := NewMediator(NewMediatorParams{Store: &fakeStore{}, Client: client})

	cypher, usedFallback := m.GenerateCypher(context.Background(), "how many doors?")
	if usedFallback {
		t.Fatal("expected generated query, got fallback")
	}
	if strings.Contains(cypher, "```") {
		t.Errorf("fences not stripped: %q", cypher)
	}
	if !strings.Contains(cypher, "session_id = $session_id") {
		t.Errorf("missing session filter: %q", cypher)
	}
}

func TestGenerateCypherFallsBackOnError(t *testing.T) {
	client := &fakeClient{completionErr: errors.New("model unavailable")}
	m := NewMediator(NewMediatorParams{Store: &fakeStore{}, Client: client})

	cypher, usedFallback := m.GenerateCypher(context.Background(), "窓の数は？")
	if !usedFallback {
		t.Fatal("expected fallback")
	}
	if !strings.Contains(cypher, "IfcWindow") {
		t.Errorf("keyword fallback did not pick windows: %q", cypher)
	}
}

func TestGenerateCypherFallsBackOnEmpty(t *testing.T) {
	client := &fakeClient{completion: "```\n```"}
	m := NewMediator(NewMediatorParams{Store: &fakeStore{}, Client: client})

	cypher, usedFallback := m.GenerateCypher(context.Background(), "anything")
	if !usedFallback {
		t.Fatal("expected fallback for empty generation")
	}
	if cypher != fallbackDefaultCypher {
		t.Errorf("unexpected fallback query: %q", cypher)
	}
}

func TestFallbackCypher(t *testing.T) {
	tests := []struct {
		question string
		contains string
	}{
		{"何階建てですか", "IfcBuildingStorey"},
		{"How many floors does it have", "IfcBuildingStorey"},
		{"部屋はいくつ？", "IfcSpace"},
		{"list the rooms", "IfcSpace"},
		{"窓について", "IfcWindow"},
		{"ドアの数", "IfcDoor"},
		{"家具は？", "IfcFurnishingElement"},
		{"壁の数は", "IfcWall"},
		{"columns?", "IfcColumn"},
		{"材質を教えて", "IfcMaterial"},
		{"コンクリートはどこ", "'Concrete'"},
		{"wood elements", "'Wood'"},
		{"steel parts", "'Steel'"},
		{"tell me about this building", "labels(n)"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := FallbackCypher(tt.question)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FallbackCypher(%q) = %q, want it to contain %q", tt.question, got, tt.contains)
			}
			if !strings.Contains(got, "session_id = $session_id") {
				t.Errorf("fallback query missing session filter: %q", got)
			}
		})
	}
}

func TestQueryRetriesWithFallback(t *testing.T) {
	store := &fakeStore{
		failFor: "BROKEN",
		rows:    []map[string]any{{"door_count": int64(3)}},
	}
	client := &fakeClient{completion: "MATCH (n:BROKEN) WHERE n.session_id = $session_id RETURN n"}
	m := NewMediator(NewMediatorParams{Store: store, Client: client})

	cypher, usedFallback, rows := m.Query(context.Background(), "sess-1", "ドアはいくつ？")
	if !usedFallback {
		t.Fatal("expected retry with fallback query")
	}
	if !strings.Contains(cypher, "IfcDoor") {
		t.Errorf("retry did not use door fallback: %q", cypher)
	}
	if len(store.queries) != 2 {
		t.Fatalf("expected 2 query executions, got %d", len(store.queries))
	}
	if len(rows) != 1 {
		t.Fatalf("expected fallback rows, got %v", rows)
	}
}

func TestAnswerHistoryWindow(t *testing.T) {
	store := &fakeStore{rows: []map[string]any{{"floor_count": int64(4)}}}
	client := &fakeClient{
		completion: "MATCH (s:IfcBuildingStorey) WHERE s.session_id = $session_id RETURN count(s) as floor_count",
		chat:       "The building has four storeys.",
	}
	m := NewMediator(NewMediatorParams{Store: store, Client: client})

	history := make([]ai.ChatMessage, 0, 10)
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, ai.ChatMessage{Role: role, Message: "turn"})
	}

	answer := m.Answer(context.Background(), "sess-1", "How many floors?", history)
	if answer.Text != "The building has four storeys." {
		t.Errorf("unexpected answer text: %q", answer.Text)
	}
	// 6 history turns plus the data-bearing question
	if len(client.lastChatMessages) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(client.lastChatMessages))
	}
	last := client.lastChatMessages[6]
	if last.Role != "user" || !strings.Contains(last.Message, "How many floors?") {
		t.Errorf("final message should carry the question: %+v", last)
	}
	if !strings.Contains(last.Message, "floor_count") {
		t.Errorf("final message should embed query results: %q", last.Message)
	}
}

func TestAnswerDegradesToApology(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	client := &fakeClient{
		completionErr: errors.New("model unavailable"),
		chatErr:       errors.New("model unavailable"),
	}
	m := NewMediator(NewMediatorParams{Store: store, Client: client})

	answer := m.Answer(context.Background(), "sess-1", "何階建て？", nil)
	if answer.Text != answerFallbackMessage {
		t.Errorf("expected apology fallback, got %q", answer.Text)
	}
	if !answer.UsedFallback {
		t.Error("expected fallback cypher after generation failure")
	}
}

func TestAnswerStreamDegradesToApology(t *testing.T) {
	store := &fakeStore{rows: []map[string]any{{"count": 3}}}
	client := &fakeClient{
		completion: "MATCH (s:IfcBuildingStorey) WHERE s.session_id = $session_id RETURN count(s)",
		streamErr:  errors.New("model unavailable"),
	}
	m := NewMediator(NewMediatorParams{Store: store, Client: client})

	answer, stream := m.AnswerStream(context.Background(), "sess-1", "何階建て？", nil)
	if answer == nil {
		t.Fatal("expected an answer even when the stream cannot start")
	}

	var text strings.Builder
	for event := range stream {
		if event.Type == "content" {
			text.WriteString(event.Content)
		}
	}
	if text.String() != answerFallbackMessage {
		t.Errorf("stream text = %q, want apology fallback", text.String())
	}
}

func TestTruncateRows(t *testing.T) {
	m := NewMediator(NewMediatorParams{Store: &fakeStore{}, Client: &fakeClient{}, ResultTokenBudget: 20})

	rows := make([]map[string]any, 50)
	for i := range rows {
		rows[i] = map[string]any{"name": "a reasonably long element name", "guid": "0123456789abcdef"}
	}

	kept, truncated := m.truncateRows(rows)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len(kept) >= len(rows) {
		t.Errorf("expected fewer rows, got %d of %d", len(kept), len(rows))
	}

	small := []map[string]any{{"count": int64(2)}}
	kept, truncated = m.truncateRows(small)
	if truncated || len(kept) != 1 {
		t.Errorf("small result should not truncate: %d rows, truncated=%v", len(kept), truncated)
	}
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"赤", "#ff0000"},
		{"red", "#ff0000"},
		{"RED", "#ff0000"},
		{"オレンジ", "#ffa500"},
		{"grey", "#808080"},
		{"#00ff00", "#00ff00"},
		{"", ""},
		{"cerulean", "cerulean"},
	}

	for _, tt := range tests {
		if got := NormalizeColor(tt.in); got != tt.want {
			t.Errorf("NormalizeColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
