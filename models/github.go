package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// GitHubModelsBaseURL is the base URL for the GitHub Models API.
	// The OpenAI-compatible chat completions endpoint is at
	// {baseURL}/chat/completions.
	GitHubModelsBaseURL = "https://models.github.ai/inference"

	// DefaultOpenAIModel is used when no model name is given.
	DefaultOpenAIModel = "gpt-4o-mini"
)

// ErrMissingToken is returned when a hosted backend is created without credentials.
var ErrMissingToken = errors.New("models: api token is required")

// githubHeaderTransport injects the GitHub API version header into every request.
type githubHeaderTransport struct {
	base http.RoundTripper
}

func (t *githubHeaderTransport) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return t.base.RoundTrip(req)
}

// NewOpenAIModel creates an LCGModel backed by an OpenAI-compatible chat endpoint.
// An empty baseURL uses the client default. Extra openai.Option values are applied
// last so they can override the defaults (for example openai.WithHTTPClient).
func NewOpenAIModel(model, token, baseURL string, opts ...openai.Option) (*LCGModel, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	base := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		base = append(base, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("models: create openai client: %w", err)
	}
	return NewLCGModel(llm).WithModelName(model), nil
}

// NewGitHubModel creates an LCGModel backed by the GitHub Models API.
//
// The token must be a fine-grained GitHub Personal Access Token with the
// models:read permission. Model names use the publisher/model format:
//
//	model, err := models.NewGitHubModel("openai/gpt-4.1", os.Getenv("GITHUB_TOKEN"))
func NewGitHubModel(model, token string, opts ...openai.Option) (*LCGModel, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: create a fine-grained PAT with models:read "+
			"at https://github.com/settings/personal-access-tokens/new", ErrMissingToken)
	}

	base := []openai.Option{
		openai.WithHTTPClient(&githubHeaderTransport{base: http.DefaultTransport}),
	}
	return NewOpenAIModel(model, token, GitHubModelsBaseURL, append(base, opts...)...)
}
