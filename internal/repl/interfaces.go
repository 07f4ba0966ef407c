package repl

import (
	"context"
	"time"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool/shell"
	"github.com/Cyclone1070/mini/internal/ui"
	"github.com/Cyclone1070/mini/internal/workflow"
	"github.com/Cyclone1070/mini/internal/workflow/session"
)

// agent is the part of the session the loop drives.
type agent interface {
	Submit(ctx context.Context, input string, events chan<- workflow.Event) error
	Interrupt() bool
	Clear() error
	SetProvider(p provider.Provider, params session.Params) error
	SetModel(model string) error
	Model() string
	Stats() session.Stats
}

type console interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
	Handle(ctx context.Context, ev workflow.Event)
	Println(a ...any)
	Styles() ui.Styles
}

type commandRunner interface {
	Run(ctx context.Context, command, dir string, timeout time.Duration) (*shell.Output, error)
}

type configStore interface {
	ListSkills() []string
	LoadSkill(name string) (string, error)
	SaveAPIKey(cfg *config.Config, variant, key string) error
}

// ProviderFactory builds the adapter for a resolved variant.
type ProviderFactory func(ctx context.Context, llm config.ResolvedLLM) (provider.Provider, error)
