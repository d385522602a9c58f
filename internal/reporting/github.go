// File: internal/reporting/github.go
package reporting

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
)

const statusContext = "pipewatch/benchmark"

// issuesService and reposService are the go-github surfaces the publisher
// touches, narrowed so tests can substitute fakes.
type issuesService interface {
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
	EditComment(ctx context.Context, owner, repo string, commentID int64, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
}

type reposService interface {
	CreateStatus(ctx context.Context, owner, repo, ref string, status *github.RepoStatus) (*github.RepoStatus, *github.Response, error)
}

// Publisher posts reports to GitHub: a sticky PR comment that later runs
// update in place, and a commit status carrying the gate verdict.
type Publisher struct {
	issues issuesService
	repos  reposService
	owner  string
	repo   string
	log    *zap.Logger
}

// rateLimitedTransport throttles outgoing requests before they hit the
// GitHub API quota.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewPublisher builds a publisher for "owner/repo". App credentials take
// precedence over a plain token when both are configured.
func NewPublisher(ctx context.Context, cfg config.GitHubConfig, repository string, logger *zap.Logger) (*Publisher, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository %q, expected owner/repo", repository)
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &rateLimitedTransport{
			base:    http.DefaultTransport,
			limiter: rate.NewLimiter(rate.Limit(rps), 1),
		},
	}

	token := cfg.Token
	if cfg.AppID != 0 {
		var err error
		token, err = installationToken(ctx, cfg, httpClient)
		if err != nil {
			return nil, fmt.Errorf("github app auth failed: %w", err)
		}
	}
	if token == "" {
		return nil, fmt.Errorf("no github credentials configured")
	}

	client := github.NewClient(httpClient).WithAuthToken(token)
	return &Publisher{
		issues: client.Issues,
		repos:  client.Repositories,
		owner:  owner,
		repo:   repo,
		log:    logger.Named("github"),
	}, nil
}

// installationToken exchanges an RS256-signed app JWT for a short-lived
// installation access token.
func installationToken(ctx context.Context, cfg config.GitHubConfig, httpClient *http.Client) (string, error) {
	key, err := loadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
		Issuer:    fmt.Sprintf("%d", cfg.AppID),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign app JWT: %w", err)
	}

	appClient := github.NewClient(httpClient).WithAuthToken(signed)
	tok, _, err := appClient.Apps.CreateInstallationToken(ctx, cfg.InstallationID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create installation token: %w", err)
	}
	return tok.GetToken(), nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// UpsertPRComment posts the report on a pull request, editing the previous
// marked comment if one exists so the PR carries exactly one live report.
func (p *Publisher) UpsertPRComment(ctx context.Context, prNumber int, body string) error {
	if !strings.Contains(body, commentMarker) {
		body = commentMarker + "\n" + body
	}

	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := p.issues.ListComments(ctx, p.owner, p.repo, prNumber, opts)
		if err != nil {
			return fmt.Errorf("failed to list PR comments: %w", err)
		}
		for _, comment := range comments {
			if strings.Contains(comment.GetBody(), commentMarker) {
				_, _, err := p.issues.EditComment(ctx, p.owner, p.repo, comment.GetID(),
					&github.IssueComment{Body: &body})
				if err != nil {
					return fmt.Errorf("failed to update PR comment: %w", err)
				}
				p.log.Info("Updated existing report comment",
					zap.Int("pr", prNumber), zap.Int64("comment_id", comment.GetID()))
				return nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	_, _, err := p.issues.CreateComment(ctx, p.owner, p.repo, prNumber,
		&github.IssueComment{Body: &body})
	if err != nil {
		return fmt.Errorf("failed to create PR comment: %w", err)
	}
	p.log.Info("Posted new report comment", zap.Int("pr", prNumber))
	return nil
}

// PublishCommitStatus reflects the comparison verdict on the commit.
// Warnings report success with a cautionary description; only critical
// fails the status.
func (p *Publisher) PublishCommitStatus(ctx context.Context, sha string, overall schemas.Status, targetURL string) error {
	state := "success"
	description := "All metrics within thresholds"
	switch overall {
	case schemas.StatusWarning:
		description = "Some metrics exceeded warning thresholds"
	case schemas.StatusCritical:
		state = "failure"
		description = "Critical performance regression detected"
	}

	status := &github.RepoStatus{
		State:       &state,
		Description: &description,
		Context:     github.String(statusContext),
	}
	if targetURL != "" {
		status.TargetURL = &targetURL
	}

	_, _, err := p.repos.CreateStatus(ctx, p.owner, p.repo, sha, status)
	if err != nil {
		return fmt.Errorf("failed to create commit status: %w", err)
	}
	return nil
}
