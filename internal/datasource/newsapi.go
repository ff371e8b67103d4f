package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// NewsAPIName identifies the NewsAPI.org adapter.
const NewsAPIName = "newsapi"

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPI is the primary provider adapter (newsapi.org). A free-text query
// goes to /everything; without one, /top-headlines filtered by
// country/category is used.
type NewsAPI struct {
	httpSource
}

// NewNewsAPI creates a NewsAPI adapter.
func NewNewsAPI(apiKey string, opts ...Option) *NewsAPI {
	return &NewsAPI{httpSource: newHTTPSource(apiKey, newsAPIBaseURL, opts)}
}

// Name returns the provider name.
func (n *NewsAPI) Name() string { return NewsAPIName }

// Configured reports whether a real API key is set.
func (n *NewsAPI) Configured() bool { return !utils.IsPlaceholderKey(n.apiKey) }

// Search queries NewsAPI.
func (n *NewsAPI) Search(ctx context.Context, spec SearchSpec) ([]models.Article, error) {
	if !n.Configured() {
		return nil, providerErr(n.Name(), ErrProviderNotConfigured)
	}

	body, err := n.get(ctx, n.buildURL(spec), map[string]string{"X-Api-Key": n.apiKey})
	if err != nil {
		var httpErr *ErrHTTP
		if errors.As(err, &httpErr) {
			if msg := newsAPIErrorMessage([]byte(httpErr.Body)); msg != "" {
				return nil, providerErr(n.Name(), fmt.Errorf("HTTP %d: %s", httpErr.StatusCode, msg))
			}
		}
		return nil, providerErr(n.Name(), err)
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providerErr(n.Name(), fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if resp.Status == "error" {
		return nil, providerErr(n.Name(), fmt.Errorf("%s: %s", resp.Code, resp.Message))
	}
	if resp.Articles == nil {
		return nil, providerErr(n.Name(), fmt.Errorf("%w: missing articles", ErrMalformedResponse))
	}

	raws := make([]rawArticle, 0, len(*resp.Articles))
	for _, a := range *resp.Articles {
		raws = append(raws, rawArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return normalizeAll(raws, n.Name(), time.Now()), nil
}

func (n *NewsAPI) buildURL(spec SearchSpec) string {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(spec.pageSize(MaxPageSize)))

	endpoint := "/top-headlines"
	if spec.Query != "" {
		endpoint = "/everything"
		q.Set("q", spec.Query)
		q.Set("sortBy", "publishedAt")
		if spec.Language != "" {
			q.Set("language", spec.Language)
		}
		if spec.From != "" {
			q.Set("from", spec.From)
		}
		if spec.To != "" {
			q.Set("to", spec.To)
		}
	} else {
		if spec.Country != "" {
			q.Set("country", spec.Country)
		}
		if spec.Category != "" {
			q.Set("category", spec.Category)
		}
		if spec.Country == "" && spec.Category == "" {
			q.Set("category", "business")
		}
	}
	return n.baseURL + endpoint + "?" + q.Encode()
}

func newsAPIErrorMessage(body []byte) string {
	var resp newsAPIResponse
	if json.Unmarshal(body, &resp) != nil {
		return ""
	}
	return resp.Message
}

// --- NewsAPI response types ---

type newsAPIResponse struct {
	Status       string            `json:"status"`
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	TotalResults int               `json:"totalResults"`
	Articles     *[]newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}
