package cli

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <source>",
	Short: "Delete all records for a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initServices(); err != nil {
			return err
		}
		defer closeServices()

		deleted, err := retrieval.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Printf("Deleted %d record(s) for %s\n", deleted, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
