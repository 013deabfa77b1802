package runtime

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"stackit.dev/stackcore/internal/config"
	"stackit.dev/stackcore/internal/engine"
	"stackit.dev/stackcore/internal/git"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
)

// Context provides access to the engine, transactions and output for commands
type Context struct {
	context.Context
	Engine   *engine.Engine
	Ops      *ops.Manager
	Splog    *output.Splog
	Config   *config.RepoConfig
	RepoRoot string

	// Forge is created on first use by GitHub unless set beforehand
	Forge github.Client
}

// NewContext assembles a context from already constructed parts
func NewContext(ctx context.Context, eng *engine.Engine, manager *ops.Manager, cfg *config.RepoConfig) *Context {
	return &Context{
		Context:  ctx,
		Engine:   eng,
		Ops:      manager,
		Splog:    eng.Splog(),
		Config:   cfg,
		RepoRoot: eng.Repo().Root(),
	}
}

// Open builds a context for the repository containing path, with receipts on
// the real filesystem and the configured trunk and remote
func Open(ctx context.Context, path string, splog *output.Splog) (*Context, error) {
	return OpenWithFs(ctx, path, afero.NewOsFs(), splog)
}

// OpenWithFs is Open with the receipt store on fs
func OpenWithFs(ctx context.Context, path string, fs afero.Fs, splog *output.Splog) (*Context, error) {
	repo, err := git.OpenRepository(ctx, path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.GetRepoConfig(repo.Root())
	if err != nil {
		return nil, err
	}
	if !repo.BranchExists(ctx, cfg.Trunk) {
		return nil, fmt.Errorf("trunk branch %q does not exist; set it with 'stackit trunk <branch>'", cfg.Trunk)
	}

	eng := engine.New(repo, cfg.Trunk, cfg.Remote, splog)
	return NewContext(ctx, eng, ops.NewManager(repo, fs, splog), cfg), nil
}

// GitHub returns the forge client, connecting to the remote's GitHub repository on first use
func (c *Context) GitHub() (github.Client, error) {
	if c.Forge != nil {
		return c.Forge, nil
	}
	url, err := c.Engine.Repo().RemoteURL(c.Context, c.Config.Remote)
	if err != nil {
		return nil, err
	}
	client, err := github.NewRealClient(c.Context, url)
	if err != nil {
		return nil, err
	}
	c.Forge = client
	return client, nil
}

// RepoRoot returns the root of the repository containing path without
// requiring stackit to be configured there
func RepoRoot(ctx context.Context, path string) (string, error) {
	repo, err := git.OpenRepository(ctx, path)
	if err != nil {
		return "", err
	}
	return repo.Root(), nil
}
