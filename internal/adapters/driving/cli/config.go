package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ragline configuration",
	Long: `View and change configuration values stored in the TOML config
file. Keys use dot notation, e.g. embedding.provider or
storage.backend.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all configuration values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := file.NewConfigStore(configDir)
		if err != nil {
			return err
		}
		cmd.Printf("Config file: %s\n\n", store.Path())

		keys := store.Keys()
		if len(keys) == 0 {
			cmd.Println("No configuration set.")
			return nil
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := store.Get(k)
			cmd.Printf("%s = %v\n", k, v)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := file.NewConfigStore(configDir)
		if err != nil {
			return err
		}
		v, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("key %q not set", args[0])
		}
		cmd.Printf("%v\n", v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := file.NewConfigStore(configDir)
		if err != nil {
			return err
		}
		if err := store.Set(args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("Set %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
