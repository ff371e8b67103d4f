package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// GNewsName identifies the GNews adapter.
const GNewsName = "gnews"

const gnewsBaseURL = "https://gnews.io/api/v4"

// GNews is the secondary provider adapter (gnews.io).
type GNews struct {
	httpSource
}

// NewGNews creates a GNews adapter.
func NewGNews(apiKey string, opts ...Option) *GNews {
	return &GNews{httpSource: newHTTPSource(apiKey, gnewsBaseURL, opts)}
}

// Name returns the provider name.
func (g *GNews) Name() string { return GNewsName }

// Configured reports whether a real API key is set.
func (g *GNews) Configured() bool { return !utils.IsPlaceholderKey(g.apiKey) }

// Search queries GNews.
func (g *GNews) Search(ctx context.Context, spec SearchSpec) ([]models.Article, error) {
	if !g.Configured() {
		return nil, providerErr(g.Name(), ErrProviderNotConfigured)
	}

	body, err := g.get(ctx, g.buildURL(spec), nil)
	if err != nil {
		var httpErr *ErrHTTP
		if errors.As(err, &httpErr) {
			if msg := gnewsErrorMessage([]byte(httpErr.Body)); msg != "" {
				return nil, providerErr(g.Name(), fmt.Errorf("HTTP %d: %s", httpErr.StatusCode, msg))
			}
		}
		return nil, providerErr(g.Name(), err)
	}

	var resp gnewsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providerErr(g.Name(), fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if msg := gnewsErrorMessage(body); msg != "" {
		return nil, providerErr(g.Name(), errors.New(msg))
	}
	if resp.Articles == nil {
		return nil, providerErr(g.Name(), fmt.Errorf("%w: missing articles", ErrMalformedResponse))
	}

	raws := make([]rawArticle, 0, len(*resp.Articles))
	for _, a := range *resp.Articles {
		raws = append(raws, rawArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.Image,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return normalizeAll(raws, g.Name(), time.Now()), nil
}

func (g *GNews) buildURL(spec SearchSpec) string {
	q := url.Values{}
	q.Set("max", strconv.Itoa(spec.pageSize(MaxPageSize)))
	q.Set("apikey", g.apiKey)

	lang := spec.Language
	if lang == "" {
		lang = "en"
	}
	q.Set("lang", lang)
	if spec.Country != "" {
		q.Set("country", spec.Country)
	}

	endpoint := "/top-headlines"
	if spec.Query != "" {
		endpoint = "/search"
		q.Set("q", spec.Query)
		q.Set("sortby", "publishedAt")
		if spec.From != "" {
			q.Set("from", gnewsTime(spec.From, false))
		}
		if spec.To != "" {
			q.Set("to", gnewsTime(spec.To, true))
		}
	} else {
		category := spec.Category
		if category == "" {
			category = "business"
		}
		q.Set("category", category)
	}
	return g.baseURL + endpoint + "?" + q.Encode()
}

// gnewsTime widens a bare date into the full timestamp GNews expects.
func gnewsTime(date string, endOfDay bool) string {
	if strings.Contains(date, "T") {
		return date
	}
	if endOfDay {
		return date + "T23:59:59Z"
	}
	return date + "T00:00:00Z"
}

// gnewsErrorMessage extracts the "errors" field, which GNews sends either as
// a list of strings or as an object of field → message.
func gnewsErrorMessage(body []byte) string {
	var env struct {
		Errors json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(body, &env) != nil || len(env.Errors) == 0 || string(env.Errors) == "null" {
		return ""
	}

	var list []string
	if json.Unmarshal(env.Errors, &list) == nil {
		return strings.Join(list, "; ")
	}
	var obj map[string]string
	if json.Unmarshal(env.Errors, &obj) == nil {
		parts := make([]string, 0, len(obj))
		for k, v := range obj {
			parts = append(parts, k+": "+v)
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}
	return string(env.Errors)
}

// --- GNews response types ---

type gnewsResponse struct {
	TotalArticles int             `json:"totalArticles"`
	Articles      *[]gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}
