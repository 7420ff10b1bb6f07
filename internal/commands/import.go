package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aldrienne/remit/internal/config"
	"github.com/aldrienne/remit/internal/importer"
	"github.com/aldrienne/remit/internal/store"
)

func newImportCommand() *cobra.Command {
	var workdir string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Ingest payment export CSVs waiting in import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(workdir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runImport(cmd.Context(), cmd.OutOrStdout(), absDir)
		},
	}

	cmd.Flags().StringVar(&workdir, "workdir", ".", "project directory")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, dir string) error {
	cfg, err := config.Load(filepath.Join(dir, configFile))
	if err != nil {
		return err
	}

	files, err := importer.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No export files waiting in import/")
		return nil
	}

	st, err := store.Open(resolvePath(dir, cfg.Store.Path))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	total := 0
	for _, f := range files {
		n, err := importer.Ingest(ctx, st, f.Path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", f.Name, err)
		}
		if err := importer.MarkProcessed(dir, f.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %s: %d payment(s)\n", f.Name, n)
		total += n
	}
	fmt.Fprintf(out, "Imported %d payment(s) from %d file(s)\n", total, len(files))
	return nil
}
