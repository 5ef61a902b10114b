package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zettel/internal/dirtree"
)

var (
	treeFlat bool
	treeBase string
)

var treeCmd = &cobra.Command{
	Use:   "tree [dir]",
	Short: "Print a directory tree as JSON",
	Long: `Walk a directory the way the server does for directory requests and print
the rebuilt tree, or the single-level listing with --flat.

Examples:
  zettel tree                    # content root
  zettel tree notes --flat
  zettel tree --base /notes      # paths usable as links`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().String("content", "", "Content root (default dir when none is given)")
	treeCmd.Flags().BoolVar(&treeFlat, "flat", false, "List one level only")
	treeCmd.Flags().StringVar(&treeBase, "base", "", "Prefix paths with this request path")
}

func runTree(cmd *cobra.Command, args []string) error {
	result, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := result.Config.ContentDir()
	if len(args) == 1 {
		dir = args[0]
	}

	if treeFlat {
		entries, err := dirtree.ReadEntries(dir, flatBase(treeBase))
		if err != nil {
			return fmt.Errorf("list %s: %w", dir, err)
		}
		return writeFormatted(cmd, entries, string(FormatJSON))
	}

	mode := dirtree.RootRelative
	if treeBase != "" {
		mode = dirtree.RequestRelative
	}
	tree, err := dirtree.Build(dir, mode, treeBase)
	if err != nil {
		return fmt.Errorf("build tree for %s: %w", dir, err)
	}
	return writeFormatted(cmd, tree, string(FormatJSON))
}

// flatBase gives the listing prefix for --base; listings stay relative
// without it.
func flatBase(base string) string {
	if base == "" {
		return ""
	}
	if base[0] != '/' {
		base = "/" + base
	}
	if base[len(base)-1] != '/' {
		base += "/"
	}
	return base
}
