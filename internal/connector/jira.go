package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tenant-scraper/internal/model"
)

const (
	defaultJQL       = "order by updated DESC"
	jiraPageSize     = 50
	jiraSearchFields = "summary,status,updated"
)

// Jira scrapes issues matching the integration's JQL (config key "jql")
// through the Jira Cloud v3 search API. The issue key is the external id.
type Jira struct {
	client    *HTTPClient
	pageLimit int
	logger    *zap.Logger
}

func NewJira(client *HTTPClient, pageLimit int, logger *zap.Logger) *Jira {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageLimit <= 0 {
		pageLimit = 20
	}
	return &Jira{client: client, pageLimit: pageLimit, logger: logger}
}

type jiraSearchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []jiraIssue `json:"issues"`
}

type jiraIssue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

type jiraIssueDocument struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	Updated string `json:"updated"`
}

func (j *Jira) Fetch(ctx context.Context, tenant model.Tenant, cfg model.IntegrationConfig) ([]model.ScrapedRecord, error) {
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("jira: %w", err)
	}
	baseURL := strings.TrimRight(cfg.Config.BaseURL, "/")
	jql := cfg.Config.String("jql")
	if jql == "" {
		jql = defaultJQL
	}
	logger := j.logger.With(zap.String("tenant", tenant.Name), zap.String("base_url", baseURL))
	logger.Info("Scraping Jira")

	s := j.client.newSession(cfg)

	var records []model.ScrapedRecord
	startAt := 0
	for page := 0; page < j.pageLimit; page++ {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(jiraPageSize))
		q.Set("fields", jiraSearchFields)

		var resp jiraSearchResponse
		if err := s.getJSON(ctx, baseURL+"/rest/api/3/search?"+q.Encode(), &resp); err != nil {
			logger.Error("Failed to search Jira issues", zap.Int("start_at", startAt), zap.Error(err))
			return nil, ctx.Err()
		}

		for _, issue := range resp.Issues {
			payload, err := json.Marshal(jiraIssueDocument{
				ID:      issue.ID,
				Key:     issue.Key,
				Summary: issue.Fields.Summary,
				Status:  issue.Fields.Status.Name,
				Updated: issue.Fields.Updated,
			})
			if err != nil {
				return nil, fmt.Errorf("jira: encode issue %s: %w", issue.Key, err)
			}
			records = append(records, model.ScrapedRecord{
				Source:     model.IntegrationJira,
				ExternalID: issue.Key,
				Payload:    payload,
				TenantID:   tenant.ID,
			})
		}

		startAt += len(resp.Issues)
		if len(resp.Issues) == 0 || startAt >= resp.Total {
			break
		}
	}
	return records, nil
}
