// Command chat is an interactive console for asking questions about an
// imported building model. Answers stream as they are generated; /cypher
// and /viz expose the query and viewer-command layers directly.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/buildscope/bimgraph/internal/db"
	"github.com/buildscope/bimgraph/internal/util"
	"github.com/buildscope/bimgraph/pkg/ai"
	ollamaai "github.com/buildscope/bimgraph/pkg/ai/ollama"
	openaiai "github.com/buildscope/bimgraph/pkg/ai/openai"
	neo4jstore "github.com/buildscope/bimgraph/pkg/graphstore/neo4j"
	"github.com/buildscope/bimgraph/pkg/logger"
	"github.com/buildscope/bimgraph/pkg/logger/console"
	"github.com/buildscope/bimgraph/pkg/mediator"

	"github.com/spf13/cobra"
)

const historyLoadLimit = 20

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))

	var sessionID string

	root := &cobra.Command{
		Use:           "chat",
		Short:         "Ask questions about an imported building model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), sessionID)
		},
	}
	root.Flags().StringVarP(&sessionID, "session", "s", "", "session ID of the imported model (required)")
	_ = root.MarkFlagRequired("session")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, sessionID string) error {
	if !util.IsSessionID(sessionID) {
		return fmt.Errorf("malformed session id: %q", sessionID)
	}

	pgConn, err := db.Connect(ctx)
	if err != nil {
		return err
	}
	defer pgConn.Close()

	q := db.New(pgConn)
	session, err := q.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("unknown session %s: %w", sessionID, err)
	}
	if session.Status != db.StatusReady {
		return fmt.Errorf("session %s is not ready (status: %s)", sessionID, session.Status)
	}

	graphStore, err := neo4jstore.NewStore(neo4jstore.NewStoreParams{
		URI:      util.GetEnv("NEO4J_URI"),
		Username: util.GetEnv("NEO4J_USER"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnvString("NEO4J_DATABASE", "neo4j"),
	})
	if err != nil {
		return err
	}
	defer graphStore.Close(context.Background())

	aiClient, err := newAIClient(ctx)
	if err != nil {
		return err
	}

	med := mediator.NewMediator(mediator.NewMediatorParams{
		Store:  graphStore,
		Client: aiClient,
	})

	history, err := loadHistory(ctx, q, sessionID)
	if err != nil {
		return err
	}

	fmt.Printf("Chatting about %s (%s, %d nodes). Type /help for commands.\n",
		session.Filename, session.SchemaVersion, session.NodeCount)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/help":
			printHelp()
		case strings.HasPrefix(line, "/cypher "):
			runCypher(ctx, med, sessionID, strings.TrimPrefix(line, "/cypher "))
		case strings.HasPrefix(line, "/viz "):
			runViz(ctx, med, strings.TrimPrefix(line, "/viz "))
		default:
			history = runQuestion(ctx, med, q, sessionID, line, history)
		}

		if ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

func newAIClient(ctx context.Context) (ai.GraphAIClient, error) {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := ollamaai.NewGraphOllamaClient(ollamaai.NewGraphOllamaClientParams{
			ChatModel: util.GetEnv("AI_CHAT_MODEL"),
			BaseURL:   util.GetEnv("AI_CHAT_URL"),
			ApiKey:    util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_MAX_CONCURRENT", 1)),
		})
		if err != nil {
			return nil, err
		}
		// warm up so the first question does not pay the model load time
		if err := client.LoadModel(ctx); err != nil {
			logger.Warn("Model warm-up failed", "err", err)
		}
		return client, nil
	default:
		return openaiai.NewGraphOpenAIClient(openaiai.NewGraphOpenAIClientParams{
			ChatModel: util.GetEnv("AI_CHAT_MODEL"),
			ChatURL:   util.GetEnv("AI_CHAT_URL"),
			ChatKey:   util.GetEnv("AI_CHAT_KEY"),
		}), nil
	}
}

func loadHistory(ctx context.Context, q *db.Queries, sessionID string) ([]ai.ChatMessage, error) {
	stored, err := q.GetChatHistory(ctx, sessionID, historyLoadLimit)
	if err != nil {
		return nil, err
	}

	history := make([]ai.ChatMessage, 0, len(stored))
	for _, m := range stored {
		history = append(history, ai.ChatMessage{Role: m.Role, Message: m.Content})
	}
	return history, nil
}

func runQuestion(
	ctx context.Context,
	med *mediator.Mediator,
	q *db.Queries,
	sessionID string,
	question string,
	history []ai.ChatMessage,
) []ai.ChatMessage {
	answer, stream := med.AnswerStream(ctx, sessionID, question, history)

	var text strings.Builder
	for event := range stream {
		switch event.Type {
		case "step":
			logger.Debug("Model step", "step", event.Step)
		case "content":
			fmt.Print(event.Content)
			text.WriteString(event.Content)
		}
	}
	fmt.Println()

	if answer.UsedFallback {
		logger.Debug("Used keyword fallback query", "cypher", answer.Cypher)
	}

	saveTurn(ctx, q, sessionID, "user", question)
	saveTurn(ctx, q, sessionID, "assistant", text.String())

	return append(history,
		ai.ChatMessage{Role: "user", Message: question},
		ai.ChatMessage{Role: "assistant", Message: text.String()},
	)
}

func saveTurn(ctx context.Context, q *db.Queries, sessionID string, role string, content string) {
	if content == "" {
		return
	}
	_, err := q.SaveChatMessage(ctx, db.SaveChatMessageParams{
		SessionID: sessionID,
		Role:      role,
		Content:   util.SanitizePostgresText(content),
	})
	if err != nil {
		logger.Warn("Failed to save chat message", "err", err)
	}
}

func runCypher(ctx context.Context, med *mediator.Mediator, sessionID string, question string) {
	cypher, usedFallback, rows := med.Query(ctx, sessionID, question)

	fmt.Println(cypher)
	if usedFallback {
		fmt.Println("(keyword fallback)")
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		logger.Error("Failed to render rows", "err", err)
		return
	}
	fmt.Println(string(data))
}

func runViz(ctx context.Context, med *mediator.Mediator, input string) {
	result := med.ParseVisualCommand(ctx, input)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("Failed to render command", "err", err)
		return
	}
	fmt.Println(string(data))
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /cypher <question>  show the generated query and raw results")
	fmt.Println("  /viz <request>      parse a 3D viewer command")
	fmt.Println("  /exit               leave the chat")
}
