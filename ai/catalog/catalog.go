// Package catalog lists the free-tier models offered by the completion provider.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hrygo/askbox/ai/cache"
	"github.com/hrygo/askbox/ai/core/llm"
)

const (
	// CacheKey is the single process-wide key the model list is stored under.
	CacheKey = "openrouter.models"
	// CacheTTL bounds how long a fetched list is served without refetching.
	CacheTTL = time.Hour
	// FreeSuffix marks free-tier model ids.
	FreeSuffix = ":free"

	fetchTimeout = 30 * time.Second
)

// ModelDescriptor describes one usable model.
type ModelDescriptor struct {
	Pricing             map[string]any `json:"pricing"`
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	ContextLength       int            `json:"contextLength"`
	MaxCompletionTokens int            `json:"maxCompletionTokens"`
}

// Observer receives cache outcomes: hit, miss, stale or error.
type Observer interface {
	ObserveCatalog(result string)
}

type nopObserver struct{}

func (nopObserver) ObserveCatalog(string) {}

// Catalog fetches and caches the provider model list.
type Catalog struct {
	http     *resty.Client
	cache    *cache.LoadingCache[[]ModelDescriptor]
	observer Observer
}

// New creates a catalog that reads GET /models through client.
func New(client *resty.Client, observer Observer) *Catalog {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Catalog{
		http:     client,
		cache:    cache.NewLoadingCache[[]ModelDescriptor](1, CacheTTL),
		observer: observer,
	}
}

// ListModels returns a copy of the free-tier models sorted by name.
//
// On fetch failure a stale list is served when one is cached; otherwise the
// error matches llm.ErrUpstreamUnavailable.
func (c *Catalog) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	models, src, err := c.cache.GetOrLoad(ctx, CacheKey, c.fetch)
	if err != nil {
		c.observer.ObserveCatalog("error")
		return nil, err
	}
	c.observer.ObserveCatalog(src.String())
	return cloneModels(models), nil
}

// cloneModels copies the cached list so callers cannot mutate the shared entry.
func cloneModels(models []ModelDescriptor) []ModelDescriptor {
	out := slices.Clone(models)
	for i := range out {
		out[i].Pricing = maps.Clone(out[i].Pricing)
	}
	return out
}

// Contains reports whether id is a listed model.
func (c *Catalog) Contains(ctx context.Context, id string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate forces the next call to refetch.
func (c *Catalog) Invalidate() {
	c.cache.Invalidate(CacheKey)
}

type modelsResponse struct {
	Data []struct {
		Pricing       map[string]any `json:"pricing"`
		ID            string         `json:"id"`
		Name          string         `json:"name"`
		ContextLength int            `json:"context_length"`
		TopProvider   struct {
			MaxCompletionTokens *int `json:"max_completion_tokens"`
		} `json:"top_provider"`
	} `json:"data"`
}

func (c *Catalog) fetch(ctx context.Context) ([]ModelDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get("/models")
	if err != nil {
		return nil, &llm.UpstreamError{Err: err}
	}
	if resp.IsError() {
		return nil, &llm.UpstreamError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}

	var parsed modelsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, &llm.UpstreamError{Err: fmt.Errorf("decode model list: %w", err)}
	}

	models := make([]ModelDescriptor, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if !strings.HasSuffix(m.ID, FreeSuffix) {
			continue
		}
		d := ModelDescriptor{
			ID:            m.ID,
			Name:          m.Name,
			ContextLength: m.ContextLength,
			Pricing:       m.Pricing,
		}
		if m.TopProvider.MaxCompletionTokens != nil {
			d.MaxCompletionTokens = *m.TopProvider.MaxCompletionTokens
		}
		models = append(models, d)
	}
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].Name != models[j].Name {
			return models[i].Name < models[j].Name
		}
		return models[i].ID < models[j].ID
	})

	slog.Info("catalog: model list refreshed",
		"total", len(parsed.Data),
		"free", len(models),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return models, nil
}
