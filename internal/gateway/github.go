// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	githubauth "github.com/jferrl/go-githubauth"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/gist-index/internal/domain"
)

const gistPageSize = 100

// ErrAuthRequired is returned by calls that GitHub only serves to authenticated clients.
var ErrAuthRequired = errors.New("GitHub GraphQL API requires an access token")

// Fetcher defines the behavior of a gateway for reading gist information from GitHub.
type Fetcher interface {
	ListGists(ctx context.Context, username string) ([]domain.Gist, error)
	// FetchStarCounts returns star counts keyed by gist ID in a single batched query.
	FetchStarCounts(ctx context.Context, username string) (map[string]int, error)
	FetchCommentCount(ctx context.Context, gistID string) (int, error)
	FetchForkCount(ctx context.Context, gistID string) (int, error)
}

// Updater writes a single file into an existing gist and returns the gist's URL.
type Updater interface {
	UpdateGistFile(ctx context.Context, gistID, filename, content, description string) (string, error)
}

// Options configures NewGitHubGateway. Empty URLs select the public GitHub endpoints.
type Options struct {
	Token      string
	APIURL     string
	GraphQLURL string
	Retry      RetryPolicy
}

// GitHubGateway is the concrete implementation of the Fetcher and Updater interfaces.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	authenticated bool
	logger        logrus.FieldLogger
}

// gistStarsQuery fetches the star count of up to 100 public gists of one user.
type gistStarsQuery struct {
	User struct {
		Gists struct {
			Nodes []struct {
				Name           githubv4.String
				URL            githubv4.String
				StargazerCount githubv4.Int
			}
		} `graphql:"gists(first: 100, privacy: PUBLIC)"`
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// REST and GraphQL share one http.Client: auth, then the secondary rate-limit waiter,
// then RetryTransport.
func NewGitHubGateway(opts Options, logger logrus.FieldLogger) (*GitHubGateway, error) {
	retry := NewRetryTransport(nil, opts.Retry, logger)
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(retry,
		github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil),
		github_ratelimit.WithLimitDetectedCallback(func(cbCtx *github_ratelimit.CallbackContext) {
			if cbCtx.SleepUntil != nil {
				logger.Warnf("Secondary rate limit hit. Sleeping until %s...", cbCtx.SleepUntil.Format(time.RFC3339))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var transport http.RoundTripper = rateLimitWaiter
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: githubauth.NewPersonalAccessTokenSource(opts.Token),
		}
	}
	httpClient := &http.Client{Transport: transport}

	restClient := github.NewClient(httpClient)
	if opts.APIURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(opts.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid REST API URL %q: %w", opts.APIURL, err)
		}
		restClient.BaseURL = baseURL
	}

	graphqlClient := githubv4.NewClient(httpClient)
	if opts.GraphQLURL != "" {
		graphqlClient = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		authenticated: opts.Token != "",
		logger:        logger,
	}, nil
}

// ListGists pages through every gist of username until an empty page comes back.
// A 404 on the first page means the user does not exist.
func (g *GitHubGateway) ListGists(ctx context.Context, username string) ([]domain.Gist, error) {
	g.logger.Debugf("Listing gists of %s using REST API...", username)
	gists := []domain.Gist{}
	for page := 1; ; page++ {
		u := fmt.Sprintf("users/%v/gists?per_page=%d&page=%d", username, gistPageSize, page)
		req, err := g.restClient.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build gist listing request: %w", err)
		}
		var listed []*listedGist
		resp, err := g.restClient.Do(ctx, req, &listed)
		if err != nil {
			if page == 1 && isNotFound(resp) {
				return nil, fmt.Errorf("listing gists of %q: %w", username, domain.ErrUserNotFound)
			}
			return nil, fmt.Errorf("failed to list gists with REST API: %w", err)
		}
		if len(listed) == 0 {
			break
		}
		for _, gist := range listed {
			gists = append(gists, gist.toDomain())
		}
		g.logger.Debugf("  Fetched page %d (%d gists)", page, len(listed))
	}
	g.logger.Debugf("Completed listing %d gists.", len(gists))
	return gists, nil
}

// FetchStarCounts asks GraphQL for the star counts of the user's public gists in one query.
// GraphQL names a gist by the same identifier the REST API uses; the URL's last path
// segment is only consulted when the name is missing.
func (g *GitHubGateway) FetchStarCounts(ctx context.Context, username string) (map[string]int, error) {
	if !g.authenticated {
		return nil, ErrAuthRequired
	}
	g.logger.Debug("Fetching star counts using GraphQL API...")
	var q gistStarsQuery
	variables := map[string]interface{}{"login": githubv4.String(username)}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for star counts: %w", err)
	}

	stars := make(map[string]int, len(q.User.Gists.Nodes))
	for _, node := range q.User.Gists.Nodes {
		id := string(node.Name)
		if id == "" {
			id = gistIDFromURL(string(node.URL))
		}
		if id == "" {
			g.logger.Debugf("  Skipping star count without a gist identifier (url=%q)", node.URL)
			continue
		}
		stars[id] = int(node.StargazerCount)
	}
	g.logger.Debugf("Completed fetching star counts for %d gists.", len(stars))
	return stars, nil
}

// FetchCommentCount counts the comments of one gist.
func (g *GitHubGateway) FetchCommentCount(ctx context.Context, gistID string) (int, error) {
	opts := &github.ListOptions{PerPage: gistPageSize}
	count := 0
	for {
		comments, resp, err := g.restClient.Gists.ListComments(ctx, gistID, opts)
		if err != nil {
			return 0, fmt.Errorf("failed to list comments of gist %s: %w", gistID, err)
		}
		count += len(comments)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return count, nil
}

// FetchForkCount counts the forks of one gist.
func (g *GitHubGateway) FetchForkCount(ctx context.Context, gistID string) (int, error) {
	opts := &github.ListOptions{PerPage: gistPageSize}
	count := 0
	for {
		forks, resp, err := g.restClient.Gists.ListForks(ctx, gistID, opts)
		if err != nil {
			return 0, fmt.Errorf("failed to list forks of gist %s: %w", gistID, err)
		}
		count += len(forks)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return count, nil
}

// UpdateGistFile overwrites (or adds) filename in gist gistID. Other files are left alone.
func (g *GitHubGateway) UpdateGistFile(ctx context.Context, gistID, filename, content, description string) (string, error) {
	g.logger.Debugf("Updating %s in gist %s using REST API...", filename, gistID)
	patch := &github.Gist{
		Description: github.String(description),
		Files: map[github.GistFilename]github.GistFile{
			github.GistFilename(filename): {Content: github.String(content)},
		},
	}
	updated, resp, err := g.restClient.Gists.Edit(ctx, gistID, patch)
	if err != nil {
		if isNotFound(resp) {
			return "", fmt.Errorf("updating gist %s: %w", gistID, domain.ErrTargetNotFound)
		}
		return "", fmt.Errorf("failed to update gist with REST API: %w", err)
	}
	return updated.GetHTMLURL(), nil
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// listedGist is one entry of the gist listing. Timestamps stay strings so a value
// github.Timestamp would reject still reaches the report verbatim.
type listedGist struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	HTMLURL     string `json:"html_url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	Files       map[string]struct {
		Filename string `json:"filename"`
		Language string `json:"language"`
		Size     int    `json:"size"`
	} `json:"files"`
}

func (l *listedGist) toDomain() domain.Gist {
	files := make([]domain.GistFile, 0, len(l.Files))
	for name, file := range l.Files {
		filename := file.Filename
		if filename == "" {
			filename = name
		}
		files = append(files, domain.GistFile{
			Filename: filename,
			Language: file.Language,
			Size:     file.Size,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })

	return domain.Gist{
		ID:          l.ID,
		Description: l.Description,
		Public:      l.Public,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		HTMLURL:     l.HTMLURL,
		Files:       files,
	}
}

// gistIDFromURL extracts a gist ID from a gist URL
// (e.g. "https://gist.github.com/user/abc123" -> "abc123").
func gistIDFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	id := path.Base(strings.TrimSuffix(raw, "/"))
	if id == "." || id == "/" {
		return ""
	}
	return id
}
