package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/oshokin/scala-steward-action/internal/domain/steward"
	"github.com/oshokin/scala-steward-action/internal/logger"
)

// Resolver looks up the authenticated user on a GitHub API host.
type Resolver struct {
	// apiURL is the REST endpoint, e.g. https://api.github.com or
	// https://github.example.com/api/v3.
	apiURL string
}

// NewResolver returns a Resolver for the given API endpoint.
func NewResolver(apiURL string) *Resolver {
	return &Resolver{apiURL: apiURL}
}

// AuthUser returns the login, name and email of the token owner.
// Any failure is reported as an AuthError.
func (r *Resolver) AuthUser(ctx context.Context, token string) (steward.AuthUser, error) {
	client, err := r.client(ctx, token)
	if err != nil {
		return steward.AuthUser{}, &steward.AuthError{Message: "unable to create GitHub client", Err: err}
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return steward.AuthUser{}, &steward.AuthError{Message: "unable to resolve the GitHub token owner", Err: err}
	}

	authUser := steward.NewAuthUser(user.GetLogin(), user.GetName(), user.GetEmail())

	logger.InfoKV(ctx, "Authenticated on GitHub",
		"login", authUser.Login, "name", authUser.Name, "email", authUser.Email)

	return authUser, nil
}

// client builds an oauth2-authenticated go-github client.
// Non-default hosts are treated as GitHub Enterprise.
func (r *Resolver) client(ctx context.Context, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if r.apiURL == "" || strings.TrimSuffix(r.apiURL, "/") == "https://api.github.com" {
		return client, nil
	}

	baseURL, err := url.Parse(strings.TrimSuffix(r.apiURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse api url %s: %w", r.apiURL, err)
	}

	client.BaseURL = baseURL

	return client, nil
}
