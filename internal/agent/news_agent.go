package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rag-agent/internal/news"
	"rag-agent/internal/service"
)

const newsAgentName = "NewsAgent"

const newsRolePrompt = "Eres un agente de IA de curación de noticias. " +
	"Selecciona, clasifica y resume artículos para el usuario.\n" +
	" - El usuario puede enviar de 1 a 3 palabras clave.\n" +
	" - Por cada palabra clave recibirás artículos (título y enlace) obtenidos de la API de noticias.\n" +
	" - Resume las noticias por palabra clave y responde a la petición del usuario."

// maxKeywords y articlesPerKeyword replican los límites del producto:
// hasta 3 keywords, 3 artículos por keyword.
const (
	maxKeywords        = 3
	articlesPerKeyword = 3
)

// NewsRequest es un turno del agente de noticias.
type NewsRequest struct {
	SessionID string
	UserID    string
	ModelID   string
	Message   string
	Keywords  []string
}

// NewsResult agrega al resultado del turno los artículos recuperados.
type NewsResult struct {
	service.TurnResult
	Articles []news.Article
}

// NewsAgent enriquece el prompt con resultados de búsqueda antes de llamar al
// modelo. La búsqueda es best-effort: una keyword sin resultados o una API
// caída solo reduce el enriquecimiento, nunca aborta el turno.
type NewsAgent struct {
	logger   *zap.Logger
	chat     *service.ChatService
	searcher news.Searcher
}

func NewNewsAgent(logger *zap.Logger, chat *service.ChatService, searcher news.Searcher) *NewsAgent {
	return &NewsAgent{logger: logger, chat: chat, searcher: searcher}
}

func (a *NewsAgent) Name() string { return newsAgentName }

// Handle busca artículos por keyword, compone el prompt de sistema y ejecuta
// el turno con el protocolo estándar.
func (a *NewsAgent) Handle(ctx context.Context, req NewsRequest) (NewsResult, error) {
	keywords := req.Keywords
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	var sb strings.Builder
	sb.WriteString(newsRolePrompt)

	var total []news.Article
	for idx, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n\n# Palabra clave %d: %s", idx+1, keyword)

		articles, err := a.searcher.Search(ctx, keyword, articlesPerKeyword)
		if err != nil {
			a.logger.Warn("news search failed",
				zap.String("keyword", keyword),
				zap.Error(err),
			)
			continue
		}
		if len(articles) == 0 {
			continue
		}

		total = append(total, articles...)
		sb.WriteString("\n## Noticias relacionadas:")
		for i, article := range articles {
			fmt.Fprintf(&sb, "\n  - Título %d: %s", i+1, article.Title)
			fmt.Fprintf(&sb, "\n  - Enlace %d: %s", i+1, article.Link)
		}
	}

	result, err := a.chat.HandleTurn(ctx, service.TurnRequest{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		AgentID:      a.Name(),
		ModelID:      req.ModelID,
		Message:      req.Message,
		SystemPrompt: sb.String(),
	})
	if err != nil {
		return NewsResult{}, err
	}
	if total == nil {
		total = []news.Article{}
	}
	return NewsResult{TurnResult: result, Articles: total}, nil
}
