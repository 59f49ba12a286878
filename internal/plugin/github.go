package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v59/github"
)

func getOwnerRepo(fullRepo string) (string, string) {
	owner, repo, found := strings.Cut(fullRepo, "/")
	if !found {
		return "", ""
	}

	return owner, repo
}

func getGitHubRelease(ctx context.Context, ghClient *github.Client, fullRepo, tag string) (*github.RepositoryRelease, error) {
	owner, repo := getOwnerRepo(fullRepo)
	release, _, err := ghClient.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		return nil, err
	}
	if release.GetDraft() {
		return nil, fmt.Errorf("release is a draft")
	}
	return release, nil
}

// ReleaseNotes returns the trimmed body of the GitHub release tagged v<version>.
func ReleaseNotes(ctx context.Context, ghClient *github.Client, fullRepo, version string) (string, error) {
	release, err := getGitHubRelease(ctx, ghClient, fullRepo, "v"+version)
	if err != nil {
		return "", fmt.Errorf("failed to get release v%s of %s: %w", version, fullRepo, err)
	}
	return strings.TrimSpace(release.GetBody()), nil
}
