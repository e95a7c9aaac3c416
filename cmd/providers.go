package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	appconfig "github.com/searchmux/searchmux/internal/config"
	"github.com/searchmux/searchmux/internal/providers"
)

var providersOutputJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the search providers enabled by the current configuration",
	RunE:  runProviders,
}

func init() {
	providersCmd.Flags().BoolVarP(&providersOutputJSON, "json", "j", false, "Output in JSON format")
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry, err := providers.BuildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to build provider registry: %w", err)
	}

	type providerEntry struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}

	entries := make([]providerEntry, 0, registry.Len())
	for _, name := range registry.Names() {
		provider, ok := registry.Get(name)
		if !ok {
			continue
		}
		entries = append(entries, providerEntry{
			Name:     provider.Name(),
			Category: string(provider.Category()),
		})
	}

	if providersOutputJSON {
		encoded, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode providers: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No providers enabled.")
		return nil
	}

	fmt.Printf("Enabled providers (%d):\n", len(entries))
	for _, entry := range entries {
		fmt.Printf("  %-18s %s\n", entry.Name, entry.Category)
	}
	return nil
}
