package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/repopulse/repopulse/internal/pipeline"
)

const apiBaseURL = "https://api.github.com"

// Client is a minimal GitHub REST client covering what the sync pipeline
// consumes: repository search and per-repository contributors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    apiBaseURL,
		token:      token,
	}
}

type searchResponse struct {
	Items []struct {
		FullName    string  `json:"full_name"`
		Description *string `json:"description"`
		Language    *string `json:"language"`
		Stars       int64   `json:"stargazers_count"`
		Forks       int64   `json:"forks_count"`
		OpenIssues  int64   `json:"open_issues_count"`
	} `json:"items"`
}

type contributorResponse struct {
	Login         string `json:"login"`
	Contributions int64  `json:"contributions"`
}

func (c *Client) FetchRepositories(
	ctx context.Context,
	query string,
	limit int64,
) ([]pipeline.RepoData, error) {
	if limit < 1 || limit > 100 {
		limit = 100
	}
	endpoint := fmt.Sprintf(
		"%s/search/repositories?q=%s&sort=stars&order=desc&per_page=%d",
		c.baseURL, url.QueryEscape(query), limit,
	)

	var search searchResponse
	if err := c.getJSON(ctx, endpoint, &search); err != nil {
		return nil, err
	}

	repos := make([]pipeline.RepoData, 0, len(search.Items))
	for _, item := range search.Items {
		rd := pipeline.RepoData{
			FullName:    item.FullName,
			Description: item.Description,
			Language:    item.Language,
			Stars:       item.Stars,
			Forks:       item.Forks,
			OpenIssues:  item.OpenIssues,
		}
		contributors, err := c.fetchContributors(ctx, item.FullName)
		if err != nil {
			// Contributor stats are enrichment; the repository itself still
			// syncs.
			contributors = nil
		}
		rd.Contributors = contributors
		repos = append(repos, rd)
	}
	return repos, nil
}

func (c *Client) fetchContributors(
	ctx context.Context,
	fullName string,
) ([]pipeline.ContributorData, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/contributors?per_page=30", c.baseURL, fullName)

	contributors := make([]contributorResponse, 0)
	if err := c.getJSON(ctx, endpoint, &contributors); err != nil {
		return nil, err
	}

	out := make([]pipeline.ContributorData, 0, len(contributors))
	for _, contributor := range contributors {
		out = append(out, pipeline.ContributorData{
			Login:   contributor.Login,
			Commits: contributor.Contributions,
		})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api returned status %d for %s", resp.StatusCode, endpoint)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
