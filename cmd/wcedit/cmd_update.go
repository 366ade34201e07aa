package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/go-wc/wcedit/pkg/anchor"
	"github.com/go-wc/wcedit/pkg/editor"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

func newUpdateCmd() *cobra.Command {
	var from string
	var revision int64

	cmd := &cobra.Command{
		Use:   "update [path]",
		Short: "Bring a working copy in line with a staged snapshot",
		Long: `Update applies the tree rooted at --from as though it had been
received over the wire at the given --revision: files and directories
present there are added or merged in, and anything the working copy
still has but the snapshot no longer does is deleted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return fmt.Errorf("--from is required")
			}
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runApply(path, from, revision, "")
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "directory holding the new snapshot to apply")
	cmd.Flags().Int64Var(&revision, "revision", 0, "target revision this update brings the working copy to")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("revision")
	return cmd
}

func newSwitchCmd() *cobra.Command {
	var from, url string
	var revision int64

	cmd := &cobra.Command{
		Use:   "switch [path]",
		Short: "Relocate a working copy to a new URL while applying a snapshot",
		Long: `Switch behaves like update but additionally rewrites every entry's
recorded repository URL to be rooted at --url, the defining trait that
separates switch from plain update (§3 in the editor's own terms).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return fmt.Errorf("--from is required")
			}
			if url == "" {
				return fmt.Errorf("--url is required")
			}
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runApply(path, from, revision, url)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "directory holding the new snapshot to apply")
	cmd.Flags().StringVar(&url, "url", "", "new repository URL to switch the working copy to")
	cmd.Flags().Int64Var(&revision, "revision", 0, "target revision this switch brings the working copy to")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("url")
	cmd.MarkFlagRequired("revision")
	return cmd
}

func runApply(path, from string, revision int64, switchURL string) error {
	abs, err := scpath.NewAbsolutePath(path)
	if err != nil {
		return err
	}

	res, err := anchor.Resolve(abs)
	if err != nil {
		return fmt.Errorf("resolve anchor: %w", err)
	}

	anchorAdmin := wcpath.New(res.Anchor)
	tc, err := loadTypedConfig(res.Anchor.String())
	if err != nil {
		return err
	}
	opts := editorOptionsFor(tc, switchURL)

	rend := &renderer{}
	eng := editor.New(anchorAdmin, res.Target, opts, rend.onNotify)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	drv := editor.NewCancellingDriver(eng, func() error { return ctx.Err() })

	if err := drv.SetTargetRevision(revision); err != nil {
		return err
	}
	root, err := drv.OpenRoot(0)
	if err != nil {
		if aerr := drv.AbortEdit(); aerr != nil {
			return fmt.Errorf("open_root: %w (abort also failed: %v)", err, aerr)
		}
		return fmt.Errorf("open_root: %w", err)
	}

	if err := applySnapshot(drv, root, from, revision); err != nil {
		if aerr := drv.AbortEdit(); aerr != nil {
			return fmt.Errorf("%w (abort also failed: %v)", err, aerr)
		}
		return err
	}
	if err := drv.CloseEdit(); err != nil {
		return err
	}

	rend.renderSummary(revision)
	return nil
}
