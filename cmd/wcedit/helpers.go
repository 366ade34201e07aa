package main

import (
	"context"
	"fmt"

	"github.com/go-wc/wcedit/pkg/config"
	"github.com/go-wc/wcedit/pkg/editor"
	"github.com/go-wc/wcedit/pkg/merge"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
)

// loadTypedConfig reads the repository-level config rooted at dir so
// `core.use-commit-times` and `merge-tool.command` are honored from the
// working copy's own config.json.
func loadTypedConfig(dir string) (*config.TypedConfig, error) {
	mgr := config.NewManager(scpath.RepositoryPath(dir))
	if err := mgr.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return config.NewTypedConfig(mgr), nil
}

// mergeToolFor resolves the configured external merge-tool command into
// a merge.Tool, falling back to the built-in line-level tool when none
// is configured.
func mergeToolFor(tc *config.TypedConfig) merge.Tool {
	if cmdLine := tc.MergeToolCommand(); cmdLine != "" {
		return &merge.ExternalTool{Command: cmdLine}
	}
	return merge.NewDefaultTool()
}

// editorOptionsFor builds editor.Options from repository config, wiring
// core.use-commit-times and the merge-tool choice (§10).
func editorOptionsFor(tc *config.TypedConfig, switchURL string) editor.Options {
	return editor.Options{
		UseCommitTimes: tc.UseCommitTimes(),
		MergeTool:      mergeToolFor(tc),
		SwitchURL:      switchURL,
	}
}
