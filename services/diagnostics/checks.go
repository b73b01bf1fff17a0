package diagnostics

import (
	"context"

	"github.com/meghashyamc/bioagents/services/credentials"
	"github.com/meghashyamc/bioagents/services/llm"
	"github.com/meghashyamc/bioagents/services/search"
	"golang.org/x/oauth2"
)

const (
	modelProbePrompt = "Responda apenas com a palavra ok."
	searchProbeQuery = "diagnostico"
)

type TokenResolver interface {
	Configured() bool
	ResolveAccessToken(ctx context.Context, scopes ...string) (*oauth2.Token, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func CredentialsCheck(tokens TokenResolver) Check {
	return Check{Name: CheckCredentials, Run: func(ctx context.Context) error {
		if !tokens.Configured() {
			return ErrSkipped
		}
		_, err := tokens.ResolveAccessToken(ctx, credentials.ScopeCloudPlatform)
		return err
	}}
}

func ModelCheck(generator llm.Generator) Check {
	return Check{Name: CheckModel, Run: func(ctx context.Context) error {
		_, err := generator.Generate(ctx, llm.Request{Prompt: modelProbePrompt, Temperature: llm.Temperature(0)})
		return err
	}}
}

func StoreCheck(db Pinger) Check {
	return Check{Name: CheckStore, Run: db.Ping}
}

func SearchCheck(service *search.Service, servingConfig string) Check {
	return Check{Name: CheckSearch, Run: func(ctx context.Context) error {
		if search.NormalizeServingConfig(servingConfig) == "" {
			return ErrSkipped
		}
		_, err := service.Search(ctx, servingConfig, searchProbeQuery, 1)
		return err
	}}
}
