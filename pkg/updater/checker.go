package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kpauljoseph/quizankify/pkg/logger"
	"github.com/kpauljoseph/quizankify/pkg/version"
)

const (
	DefaultVersionURL = "https://quizankify.com/version.json"
	DefaultGitHubURL  = "https://api.github.com/repos/kpauljoseph/quizankify/releases/latest"
	userAgent         = "Quizankify-Updater"
)

type Checker struct {
	client         *http.Client
	logger         *logger.Logger
	versionURL     string
	githubURL      string
	currentVersion string
}

type Option func(*Checker)

// WithEndpoints points the checker at other release endpoints.
func WithEndpoints(versionURL, githubURL string) Option {
	return func(c *Checker) {
		c.versionURL = versionURL
		c.githubURL = githubURL
	}
}

func WithCurrentVersion(v string) Option {
	return func(c *Checker) {
		c.currentVersion = v
	}
}

func NewChecker(logger *logger.Logger, opts ...Option) *Checker {
	c := &Checker{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:         logger,
		versionURL:     DefaultVersionURL,
		githubURL:      DefaultGitHubURL,
		currentVersion: version.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckForUpdates asks the primary endpoint for the latest release and falls
// back to the GitHub releases API when it is unavailable.
func (c *Checker) CheckForUpdates(ctx context.Context) (*UpdateInfo, error) {
	c.logger.Debug("Checking for updates...")

	info, err := c.checkPrimaryEndpoint(ctx)
	if err != nil {
		c.logger.Debug("Primary endpoint failed, falling back to GitHub: %v", err)
		return c.checkGitHubAPI(ctx)
	}
	return info, nil
}

func (c *Checker) checkPrimaryEndpoint(ctx context.Context) (*UpdateInfo, error) {
	var versionInfo VersionResponse
	if err := c.getJSON(ctx, c.versionURL, &versionInfo); err != nil {
		return nil, fmt.Errorf("failed to fetch version info: %w", err)
	}

	currentVersion := strings.TrimPrefix(c.currentVersion, "v")
	latestVersion := strings.TrimPrefix(versionInfo.LatestVersion, "v")

	platformKey := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "darwin" {
		platformKey = "darwin/all"
	}

	downloadURL, ok := versionInfo.PlatformDownloads[platformKey]
	if !ok {
		return nil, fmt.Errorf("no download available for platform %s", platformKey)
	}

	return &UpdateInfo{
		CurrentVersion: currentVersion,
		LatestVersion:  latestVersion,
		UpdateMessage:  versionInfo.UpdateMessage,
		DownloadURL:    downloadURL,
		IsAvailable:    compareVersions(currentVersion, latestVersion) < 0,
		ForceUpdate:    versionInfo.ForceUpdate,
	}, nil
}

func (c *Checker) checkGitHubAPI(ctx context.Context) (*UpdateInfo, error) {
	var release GitHubRelease
	if err := c.getJSON(ctx, c.githubURL, &release); err != nil {
		return nil, fmt.Errorf("failed to fetch GitHub release: %w", err)
	}

	currentVersion := strings.TrimPrefix(c.currentVersion, "v")
	latestVersion := strings.TrimPrefix(release.TagName, "v")

	return &UpdateInfo{
		CurrentVersion: currentVersion,
		LatestVersion:  latestVersion,
		UpdateMessage:  release.Body,
		DownloadURL:    release.HTMLURL,
		IsAvailable:    compareVersions(currentVersion, latestVersion) < 0,
		ForceUpdate:    false,
	}, nil
}

func (c *Checker) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// compareVersions returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
//
// Components are compared numerically, so 1.10.0 is newer than 1.9.0. A
// missing component counts as zero; pre-release suffixes are ignored.
func compareVersions(v1, v2 string) int {
	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	for i := 0; i < len(parts1) || i < len(parts2); i++ {
		n1, n2 := versionPart(parts1, i), versionPart(parts2, i)
		if n1 < n2 {
			return -1
		}
		if n1 > n2 {
			return 1
		}
	}
	return 0
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	p := parts[i]
	if idx := strings.IndexAny(p, "-+"); idx >= 0 {
		p = p[:idx]
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return 0
	}
	return n
}
