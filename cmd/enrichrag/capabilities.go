package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/enrichrag/mcp"
)

var capabilitiesJSON bool

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the trusted sources used for enrichment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := newRegistry(cfg.Enrichment)
		if err != nil {
			return err
		}
		caps := registry.Capabilities()
		caps.AutoEnrichmentEnabled = caps.AutoEnrichmentEnabled && cfg.Enrichment.Enabled
		if capabilitiesJSON {
			data, err := json.MarshalIndent(caps, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal capabilities: %w", err)
			}
			cmd.Println(string(data))
			return nil
		}
		cmd.Println(mcp.RenderCapabilities(caps))
		return nil
	},
}

func init() {
	capabilitiesCmd.Flags().BoolVar(&capabilitiesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(capabilitiesCmd)
}
