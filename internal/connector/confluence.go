package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"tenant-scraper/internal/model"
)

// Confluence scrapes every page of every space visible to the configured
// credentials through the Confluence Cloud v2 REST API.
type Confluence struct {
	client    *HTTPClient
	pageLimit int
	logger    *zap.Logger
}

func NewConfluence(client *HTTPClient, pageLimit int, logger *zap.Logger) *Confluence {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageLimit <= 0 {
		pageLimit = 20
	}
	return &Confluence{client: client, pageLimit: pageLimit, logger: logger}
}

type confluenceLinks struct {
	Next string `json:"next"`
}

type confluenceSpace struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type confluencePage struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	Version   struct {
		Number    int    `json:"number"`
		CreatedAt string `json:"createdAt"`
	} `json:"version"`
}

type confluencePageDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SpaceKey  string `json:"spaceKey"`
	SpaceName string `json:"spaceName"`
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	WebURL    string `json:"webUrl"`
}

func (c *Confluence) Fetch(ctx context.Context, tenant model.Tenant, cfg model.IntegrationConfig) ([]model.ScrapedRecord, error) {
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("confluence: %w", err)
	}
	baseURL := strings.TrimRight(cfg.Config.BaseURL, "/")
	logger := c.logger.With(zap.String("tenant", tenant.Name), zap.String("base_url", baseURL))
	logger.Info("Scraping Confluence")

	s := c.client.newSession(cfg)

	var spaces []confluenceSpace
	if err := collect(ctx, s, baseURL, baseURL+"/api/v2/spaces", c.pageLimit, &spaces); err != nil {
		logger.Error("Failed to list Confluence spaces", zap.Error(err))
		return nil, ctx.Err()
	}

	var records []model.ScrapedRecord
	for _, space := range spaces {
		var pages []confluencePage
		pagesURL := fmt.Sprintf("%s/api/v2/spaces/%s/pages", baseURL, url.PathEscape(space.ID))
		if err := collect(ctx, s, baseURL, pagesURL, c.pageLimit, &pages); err != nil {
			logger.Error("Failed to list Confluence pages",
				zap.String("space", space.Key), zap.Error(err))
			return nil, ctx.Err()
		}

		for _, page := range pages {
			doc := confluencePageDocument{
				ID:        page.ID,
				Title:     page.Title,
				SpaceKey:  space.Key,
				SpaceName: space.Name,
				Version:   page.Version.Number,
				CreatedAt: page.CreatedAt,
				UpdatedAt: page.Version.CreatedAt,
				WebURL:    fmt.Sprintf("%s/spaces/%s/pages/%s", baseURL, space.Key, page.ID),
			}
			payload, err := json.Marshal(doc)
			if err != nil {
				return nil, fmt.Errorf("confluence: encode page %s: %w", page.ID, err)
			}
			records = append(records, model.ScrapedRecord{
				Source:     model.IntegrationConfluence,
				ExternalID: page.ID,
				Payload:    payload,
				TenantID:   tenant.ID,
			})
		}
	}
	return records, nil
}

// collect follows _links.next cursors, appending every page of results to out.
func collect[T any](ctx context.Context, s *session, baseURL, first string, pageLimit int, out *[]T) error {
	next := first
	for page := 0; next != "" && page < pageLimit; page++ {
		var body struct {
			Results []T             `json:"results"`
			Links   confluenceLinks `json:"_links"`
		}
		if err := s.getJSON(ctx, next, &body); err != nil {
			return err
		}
		*out = append(*out, body.Results...)

		if body.Links.Next == "" {
			return nil
		}
		resolved, err := resolveNext(baseURL, body.Links.Next)
		if err != nil {
			return err
		}
		next = resolved
	}
	return nil
}

// resolveNext turns a next link such as "/wiki/api/v2/spaces?cursor=x" into
// an absolute URL on the integration's host.
func resolveNext(baseURL, next string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("parse next link: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
