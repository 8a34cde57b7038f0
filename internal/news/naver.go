package news

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Article es un resultado de búsqueda de noticias: título y enlace.
type Article struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Searcher define el contrato del colaborador de búsqueda de noticias.
// Las fallas de búsqueda nunca abortan un turno: el agente degrada a una
// contribución vacía en el prompt.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]Article, error)
}

// NaverClient implementa Searcher contra la Naver Open API.
type NaverClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewNaverClient(baseURL, clientID, clientSecret string) *NaverClient {
	if baseURL == "" {
		baseURL = "https://openapi.naver.com"
	}
	return &NaverClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// cleanTitle quita el markup <b> que Naver inserta alrededor del término
// buscado y desescapa entidades HTML.
func cleanTitle(title string) string {
	return html.UnescapeString(htmlTagPattern.ReplaceAllString(title, ""))
}

func (c *NaverClient) Search(ctx context.Context, keyword string, limit int) ([]Article, error) {
	if strings.TrimSpace(keyword) == "" {
		return []Article{}, nil
	}
	if limit <= 0 {
		limit = 3
	}

	endpoint := fmt.Sprintf("%s/v1/search/news.json?query=%s&display=%d",
		c.baseURL, url.QueryEscape(keyword), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("naver http error: status=%d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	articles := make([]Article, 0, len(sr.Items))
	for _, item := range sr.Items {
		articles = append(articles, Article{
			Title: cleanTitle(item.Title),
			Link:  item.Link,
		})
	}
	return articles, nil
}

type searchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
}

var _ Searcher = (*NaverClient)(nil)
