package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rag-agent/internal/agent"
	"rag-agent/internal/config"
	"rag-agent/internal/db"
	"rag-agent/internal/llm"
	"rag-agent/internal/repository"
	"rag-agent/internal/service"
)

// cli_chat es un chat de terminal contra el controlador de turnos. Sin
// DATABASE_URL usa repositorios en memoria; sin LLM_API_KEY usa el mock.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	logger := zap.NewExample()
	defer logger.Sync()

	var (
		sessionRepo repository.SessionRepository
		messageRepo repository.MessageRepository
		llmClient   llm.Client
	)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("config incomplete (%v), using in-memory stores and mock llm", err)
		sessionRepo = repository.NewLocalSessionRepository()
		messageRepo = repository.NewLocalMessageRepository()
		llmClient = &llm.MockClient{Response: "(mock) recibido"}
		cfg = &config.Config{DefaultModel: "mock"}
	} else {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		sessionRepo = repository.NewPgSessionRepository(pool)
		messageRepo = repository.NewPgMessageRepository(pool)
		llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.DefaultModel, logger)
	}

	historySvc := service.NewHistoryService(messageRepo)
	chatSvc := service.NewChatService(logger, sessionRepo, messageRepo, historySvc, llmClient)
	chatAgent := agent.NewChatAgent(chatSvc)

	fmt.Println("===== rag-agent cli =====")
	fmt.Println("escribe tu mensaje; /exit para salir")

	var sessionID string
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/exit" {
			return
		}

		result, err := chatAgent.Handle(ctx, sessionID, "cli_user", cfg.DefaultModel, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		sessionID = result.SessionID
		fmt.Printf("[%s] %s\n", result.SessionID[:8], result.Reply)
	}
}
