package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportMeritCmd() *cobra.Command {
	var (
		examID  uint
		output  string
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "export-merit",
		Short: "Write an exam's merit list to an XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if archive {
				result, err := a.services.Export().ArchiveMeritList(cmd.Context(), examID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived %d entries to %s\n", result.Entries, result.URL)
				return nil
			}

			if output == "" {
				output = fmt.Sprintf("merit-list-exam-%d.xlsx", examID)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := a.services.Export().ExportMeritList(cmd.Context(), examID, f); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().UintVar(&examID, "exam", 0, "exam id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&archive, "archive", false, "upload to object storage instead of writing a file")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}
