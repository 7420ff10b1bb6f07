package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aldrienne/remit/internal/config"
	"github.com/aldrienne/remit/internal/store"
)

func newMapCommand() *cobra.Command {
	var workdir string

	cmd := &cobra.Command{
		Use:   "map <account-id> <template-id>",
		Short: "Map a bank account to an email template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(workdir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runMap(cmd.Context(), cmd.OutOrStdout(), absDir, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&workdir, "workdir", ".", "project directory")

	return cmd
}

func runMap(ctx context.Context, out io.Writer, dir, accountID, templateID string) error {
	cfg, err := config.Load(filepath.Join(dir, configFile))
	if err != nil {
		return err
	}

	st, err := store.Open(resolvePath(dir, cfg.Store.Path))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	// The template must exist; a mapping to a missing template would skip
	// every group on that account at run time.
	if _, err := st.LoadEmailTemplate(ctx, templateID); err != nil {
		return fmt.Errorf("checking template %s: %w", templateID, err)
	}

	if err := st.MapAccountTemplate(ctx, accountID, templateID); err != nil {
		return fmt.Errorf("mapping account %s: %w", accountID, err)
	}

	fmt.Fprintf(out, "Account %s notifies with template %s\n", accountID, templateID)
	return nil
}
