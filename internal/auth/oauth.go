package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubUserEndpoint = "https://api.github.com/user"

// GitHubUser is the slice of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal what we need.
type GitHubUser struct {
	ID        int64  `json:"id"`         // GitHub's numeric user id — stable, never changes
	Login     string `json:"login"`      // GitHub username, e.g. "octocat"
	AvatarURL string `json:"avatar_url"` // profile picture URL
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow.
//
// The flow: we hand the browser an authorize URL; the user approves on
// GitHub; GitHub redirects back to our callback with a short-lived code; we
// exchange the code for an access token server-to-server (the ClientSecret
// never touches the browser) and use it to fetch the user's profile.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a provider from OAuth App credentials
// (https://github.com/settings/developers). callbackURL must exactly match
// the "Authorization callback URL" registered there.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
	}
}

// Enabled reports whether OAuth credentials were configured. The server
// still starts without them; the OAuth routes just return errors.
func (p *GitHubProvider) Enabled() bool {
	return p.config.ClientID != "" && p.config.ClientSecret != ""
}

// AuthURL returns the GitHub authorization URL for the given state.
//
// The state is a random value we persist before handing out the URL; the
// callback must present it back, which proves the flow started with us and
// not with a CSRF attacker (see CodeStore.SaveOAuthState).
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: trades the authorization code for a GitHub
// user profile.
//
//  1. Exchange the code for an OAuth access token (server-to-server POST)
//  2. Call GitHub's /user endpoint with the token
//  3. Decode the response into a GitHubUser
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(githubUserEndpoint)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (id = 0)")
	}

	return &ghUser, nil
}
