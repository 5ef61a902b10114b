package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// writeFormatted prints v as indented JSON. Commands with a human form handle
// it before calling this.
func writeFormatted(cmd *cobra.Command, v any, format string) error {
	switch OutputFormat(format) {
	case FormatJSON, FormatHuman:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
