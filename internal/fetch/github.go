package fetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/daybrew/pulse/internal/config"
	"github.com/daybrew/pulse/internal/models"
)

// GitHub covers the GitHub-backed sources: repository search for new
// community tooling, releases of the tracked repository for the changelog
// step, and the awesome-list catalog of ecosystem entries.
type GitHub struct {
	client *gh.Client
	cfg    config.GitHubSourcesConfig
}

// NewGitHub builds a fetcher from the sources config. Without a token the
// client runs unauthenticated against the public rate limit.
func NewGitHub(cfg config.GitHubSourcesConfig) *GitHub {
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	if httpClient == nil {
		httpClient = newHTTPClient(15 * time.Second)
	} else {
		httpClient.Timeout = 15 * time.Second
	}

	return &GitHub{
		client: gh.NewClient(httpClient),
		cfg:    cfg,
	}
}

func (g *GitHub) Name() string { return string(models.SourceGitHub) }

// Fetch searches for recently pushed repositories matching the configured
// query and returns them as plugin items.
func (g *GitHub) Fetch(ctx context.Context) ([]models.FetchedItem, error) {
	if g.cfg.SearchQuery == "" {
		return nil, nil
	}

	since := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	query := fmt.Sprintf("%s in:name,description,topics pushed:>%s", g.cfg.SearchQuery, since)

	result, _, err := g.client.Search.Repositories(ctx, query, &gh.SearchOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 20},
	})
	if err != nil {
		return nil, fmt.Errorf("repository search: %w", err)
	}

	items := make([]models.FetchedItem, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		if repo.GetHTMLURL() == "" || repo.GetFullName() == "" {
			continue
		}

		createdAt := time.Now().UTC()
		if pushed := repo.GetPushedAt(); !pushed.IsZero() {
			createdAt = pushed.Time.UTC()
		}

		items = append(items, models.FetchedItem{
			Source:   models.SourceGitHub,
			Category: models.CategoryPlugin,
			Title:    repo.GetFullName(),
			URL:      repo.GetHTMLURL(),
			Author:   repo.GetOwner().GetLogin(),
			Excerpt:  truncate(repo.GetDescription(), 500),
			RawMetrics: map[string]float64{
				"stars": float64(repo.GetStargazersCount()),
				"forks": float64(repo.GetForksCount()),
			},
			CreatedAt: createdAt,
		})
	}

	return items, nil
}

// Releases lists the newest releases of the tracked repository (newest first)
// along with compare stats against each release's predecessor. Missing
// compare data for a release is not an error; it just has no stats entry.
func (g *GitHub) Releases(ctx context.Context) ([]models.RawRelease, map[string]models.DiffStats, error) {
	owner, repo, err := splitRepo(g.cfg.ChangelogRepo)
	if err != nil {
		return nil, nil, err
	}

	list, _, err := g.client.Repositories.ListReleases(ctx, owner, repo, &gh.ListOptions{PerPage: 4})
	if err != nil {
		return nil, nil, fmt.Errorf("list releases: %w", err)
	}

	releases := make([]models.RawRelease, 0, len(list))
	for _, rel := range list {
		if rel.GetTagName() == "" {
			continue
		}
		releases = append(releases, models.RawRelease{
			TagName:     rel.GetTagName(),
			URL:         rel.GetHTMLURL(),
			Body:        rel.GetBody(),
			PublishedAt: rel.GetPublishedAt().Time.UTC(),
		})
	}

	stats := make(map[string]models.DiffStats)
	for i := 0; i+1 < len(releases); i++ {
		head, base := releases[i].TagName, releases[i+1].TagName
		cmp, _, err := g.client.Repositories.CompareCommits(ctx, owner, repo, base, head, nil)
		if err != nil {
			continue
		}

		var ds models.DiffStats
		ds.FilesChanged = len(cmp.Files)
		for _, f := range cmp.Files {
			ds.Additions += f.GetAdditions()
			ds.Deletions += f.GetDeletions()
		}
		stats[head] = ds
	}

	return releases, stats, nil
}

var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\((https://github\.com/[^\s)]+)\)`)

// EcosystemEntries parses the awesome-list README into catalog entries.
// Entry type is inferred from the nearest section heading.
func (g *GitHub) EcosystemEntries(ctx context.Context) ([]models.EcosystemEntry, error) {
	owner, repo, err := splitRepo(g.cfg.AwesomeRepo)
	if err != nil {
		return nil, err
	}

	readme, _, err := g.client.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		return nil, fmt.Errorf("get readme: %w", err)
	}

	content, err := readme.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode readme: %w", err)
	}

	seen := make(map[string]bool)
	var entries []models.EcosystemEntry
	entryType := models.EntryPlugin

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			entryType = headingEntryType(trimmed)
			continue
		}

		for _, match := range markdownLink.FindAllStringSubmatch(trimmed, -1) {
			name, link := strings.TrimSpace(match[1]), strings.TrimSuffix(match[2], "/")
			if name == "" || seen[link] {
				continue
			}
			seen[link] = true

			entry := models.EcosystemEntry{
				Name:         name,
				Type:         entryType,
				Author:       repoOwner(link),
				GitHubURL:    link,
				Description:  linkDescription(trimmed, match[0]),
				MentionCount: 1,
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func headingEntryType(heading string) models.EntryType {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "hook"):
		return models.EntryHook
	case strings.Contains(h, "skill"):
		return models.EntrySkill
	case strings.Contains(h, "mcp"):
		return models.EntryMCPServer
	case strings.Contains(h, "agent") || strings.Contains(h, "subagent"):
		return models.EntryAgentConfig
	default:
		return models.EntryPlugin
	}
}

// linkDescription extracts the text after the markdown link, typically
// "- [name](url) - description".
func linkDescription(line, link string) string {
	idx := strings.Index(line, link)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(line[idx+len(link):])
	rest = strings.TrimLeft(rest, "-–: ")
	return truncate(strings.TrimSpace(rest), 300)
}

func repoOwner(githubURL string) string {
	parts := strings.Split(strings.TrimPrefix(githubURL, "https://github.com/"), "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

func splitRepo(full string) (string, string, error) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: want owner/name", full)
	}
	return parts[0], parts[1], nil
}
