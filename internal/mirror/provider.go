package mirror

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ProviderKind names a supported mirror destination.
type ProviderKind string

// Supported providers.
const (
	ProviderGitee  ProviderKind = "gitee"
	ProviderGitea  ProviderKind = "gitea"
	ProviderGitHub ProviderKind = "github"
)

// UnmarshalText parses a provider name.
func (kind *ProviderKind) UnmarshalText(text []byte) error {
	candidate := ProviderKind(strings.ToLower(strings.TrimSpace(string(text))))
	switch candidate {
	case ProviderGitee, ProviderGitea, ProviderGitHub:
		*kind = candidate
		return nil
	default:
		return fmt.Errorf(unsupportedProviderTemplateConstant, string(text))
	}
}

// ProviderChoices lists the accepted provider names.
func ProviderChoices() []string {
	return []string{string(ProviderGitee), string(ProviderGitea), string(ProviderGitHub)}
}

// RemoteRepository describes the destination repository on the mirror provider.
type RemoteRepository struct {
	Name    string
	PushURL string
	Created bool
}

// Provider makes sure a destination repository exists and reports where to push it.
type Provider interface {
	Name() string
	EnsureRepository(executionContext context.Context, name string, private bool) (RemoteRepository, error)
}

// ProviderOptions configures NewProvider.
type ProviderOptions struct {
	Kind ProviderKind
	// BaseURL overrides the provider API endpoint. Required for gitea.
	BaseURL   string
	Owner     string
	Token     string
	Transport TransportOptions
}

// NewProvider constructs the provider selected by options.Kind.
func NewProvider(logger *zap.Logger, options ProviderOptions) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strings.TrimSpace(options.Token)) == 0 {
		return nil, ErrTokenRequired
	}
	if len(strings.TrimSpace(options.Owner)) == 0 {
		return nil, ErrOwnerRequired
	}

	switch options.Kind {
	case ProviderGitee, "":
		return NewGiteeProvider(logger, options), nil
	case ProviderGitea:
		giteaProvider, giteaError := NewGiteaProvider(logger, options)
		if giteaError != nil {
			return nil, giteaError
		}
		return giteaProvider, nil
	case ProviderGitHub:
		githubProvider, githubError := NewGitHubProvider(context.Background(), options)
		if githubError != nil {
			return nil, githubError
		}
		return githubProvider, nil
	default:
		return nil, fmt.Errorf(unsupportedProviderTemplateConstant, options.Kind)
	}
}
