// Package giris is the stable public entrypoint for embedders, mirroring
// the way the teacher keeps codegen-only concerns internal while exposing
// its agent/runtime surface under a small importable path. ExecuteTask
// wires together every internal component described in spec.md §2 — the
// Repository Inspector, Context Assembler, Token Budgeter, Tool Surface,
// Agent Runtime, and Artifact Parser/Coercer — behind the single call
// spec.md §6 names: execute_task(capability, params) -> StructuredResponse.
package giris

import (
	"context"
	"fmt"
	"strconv"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/git-iris/gitiris/internal/agentrt"
	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/budget"
	"github.com/git-iris/gitiris/internal/capability"
	"github.com/git-iris/gitiris/internal/config"
	gitctx "github.com/git-iris/gitiris/internal/context"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/gitrepo"
	"github.com/git-iris/gitiris/internal/instructionpresets"
	"github.com/git-iris/gitiris/internal/observability"
	"github.com/git-iris/gitiris/internal/provider/anthropic"
	"github.com/git-iris/gitiris/internal/provider/bedrock"
	"github.com/git-iris/gitiris/internal/provider/openai"
	"github.com/git-iris/gitiris/internal/scratchpad"
	"github.com/git-iris/gitiris/internal/toolsurface"
)

// Request bundles a capability invocation with the configuration and
// observability hooks it runs under.
type Request struct {
	Capability gitctx.Capability
	Config     config.Config

	// Observer, Logger, Metrics, and Tracer are optional; each defaults to
	// a no-op per internal/agentrt's own Options, so embedders that don't
	// care about telemetry can leave them unset, matching spec.md §5's
	// "core is free of module-level mutable state" rule — the caller owns
	// any process-wide status channel, not this package.
	Observer agentrt.Observer
	Logger   observability.Logger
	Metrics  observability.Metrics
	Tracer   observability.Tracer

	// ContentSink receives streamed partial artifacts from the
	// update_commit/update_pr/update_review tools, when non-nil.
	ContentSink toolsurface.Sink

	// Client overrides the provider client ExecuteTask would otherwise
	// construct from Config.DefaultProvider. Embedders that already hold a
	// configured client (or tests substituting a fake) set this instead of
	// routing through provider configuration.
	Client providermodel.Client
}

// Response is the final rendered artifact plus the usage and iteration
// counts the run consumed.
type Response struct {
	Text       string
	Usage      providermodel.TokenUsage
	Iterations int
}

// ExecuteTask runs one capability against the repository at repoPath end to
// end: assembling context, fitting it to the provider's token budget,
// driving the Agent Runtime loop with the capability's tool surface, and
// coercing the final text into the capability's artifact format.
func ExecuteTask(ctx context.Context, repoPath string, req Request) (*Response, error) {
	repo, err := gitrepo.Open(repoPath, gitrepo.Options{})
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	entry, err := capability.Lookup(req.Capability.Kind)
	if err != nil {
		return nil, err
	}

	assembled, err := gitctx.Assemble(repo, req.Capability)
	if err != nil {
		return nil, err
	}

	providerName := req.Config.DefaultProvider
	providerCfg := req.Config.Providers[providerName]

	client := req.Client
	if client == nil {
		if _, ok := req.Config.Providers[providerName]; !ok {
			return nil, girerr.New(girerr.KindConfiguration, "giris.ExecuteTask",
				fmt.Sprintf("no configuration for provider %q", providerName), nil)
		}
		c, err := newProviderClient(ctx, providerName, providerCfg)
		if err != nil {
			return nil, err
		}
		client = c
	}

	preset := instructionpresets.Preset{}
	if req.Config.InstructionPreset != "" {
		if p, err := instructionpresets.Default().Get(req.Config.InstructionPreset); err == nil {
			preset = p
		}
	}
	opts := capability.Options{
		UseGitmoji:   req.Config.UseGitmoji,
		Instructions: req.Config.Instructions,
		Preset:       preset,
	}

	systemPrompt := entry.SystemPrompt(req.Capability, opts)

	tokenLimit := providerCfg.TokenLimit
	if tokenLimit <= 0 {
		tokenLimit = defaultTokenLimit
	}
	b := budget.New()
	_, userPrompt, truncated := b.Fit(systemPrompt, assembled, func(c gitctx.CommitContext) string {
		return entry.UserPrompt(c, req.Capability)
	}, tokenLimit)
	if truncated {
		if req.Logger != nil {
			req.Logger.Warn(ctx, "context truncated to fit provider token budget", "capability", string(req.Capability.Kind))
		}
	}

	registry := toolsurface.NewRegistry()
	pad := scratchpad.New()
	if err := toolsurface.RegisterStandard(registry, repo, pad, req.ContentSink); err != nil {
		return nil, err
	}

	runtime := agentrt.New(client, registry, agentrt.Options{
		Observer: req.Observer,
		Logger:   req.Logger,
		Metrics:  req.Metrics,
		Tracer:   req.Tracer,
	})

	model := providerCfg.Model
	maxTokens, temperature := completionParams(providerCfg)
	result, err := runtime.Run(ctx, agentrt.Request{
		Model:       model,
		System:      systemPrompt,
		User:        userPrompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}

	rendered, err := entry.Decode(result.Text)
	if err != nil {
		return nil, err
	}

	return &Response{Text: rendered, Usage: result.Usage, Iterations: result.Iterations}, nil
}

// defaultTokenLimit is used when a provider's configuration carries none,
// chosen as a conservative value safely under every supported provider's
// smallest context window once the safety buffer is subtracted.
const defaultTokenLimit = 100000

// defaultMaxTokens is the completion cap used when a provider's
// configuration does not set one via additional_params, mirroring the
// original implementation's llm.rs, which falls back to 4096 the same way.
const defaultMaxTokens = 4096

// completionParams reads the "max_tokens"/"temperature" overrides out of a
// provider's additional_params, following the original implementation's
// llm.rs (parse as a number, fall back silently on a malformed value).
// max_tokens additionally falls back to defaultMaxTokens when unset, since
// every provider adapter either requires a positive value (Anthropic) or
// otherwise benefits from a bounded default.
func completionParams(cfg config.ProviderConfig) (maxTokens int, temperature float32) {
	maxTokens = defaultMaxTokens
	if v, ok := cfg.AdditionalParams["max_tokens"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxTokens = parsed
		}
	}
	if v, ok := cfg.AdditionalParams["temperature"]; ok {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			temperature = float32(parsed)
		}
	}
	return maxTokens, temperature
}

func newProviderClient(ctx context.Context, name string, cfg config.ProviderConfig) (providermodel.Client, error) {
	switch name {
	case "anthropic":
		return anthropic.NewFromAPIKey(cfg.APIKey, cfg.Model)
	case "openai":
		return openai.NewFromAPIKey(cfg.APIKey, cfg.Model)
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, girerr.New(girerr.KindConfiguration, "giris.newProviderClient", "load AWS config for bedrock", err)
		}
		runtimeClient := bedrockruntime.NewFromConfig(awsCfg)
		return bedrock.New(runtimeClient, bedrock.Options{DefaultModel: cfg.Model})
	default:
		return nil, girerr.New(girerr.KindConfiguration, "giris.newProviderClient",
			fmt.Sprintf("unknown provider %q", name), nil)
	}
}
