package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oriumgames/stasis"
)

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the structure of a save file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		verbose, _ := cmd.Flags().GetBool("verbose")
		return showSave(cmd, args[0], verbose)
	},
}

func init() {
	showCmd.Flags().BoolP("verbose", "v", false, "list stored class schemas and object names")
	rootCmd.AddCommand(showCmd)
}

func showSave(cmd *cobra.Command, path string, verbose bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := stasis.ReadSaveDocument(f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	heading := color.New(color.FgCyan, color.Bold).SprintfFunc()

	fmt.Fprintf(out, "%s %s\n", heading("Title:"), doc.Title)
	fmt.Fprintf(out, "%s %s\n", heading("Saved:"), doc.SavedAt.Format(time.RFC1123))

	if doc.Global != nil && len(doc.Global.Named) > 0 {
		fmt.Fprintf(out, "%s %d objects, %d classes\n",
			heading("Globals:"), len(doc.Global.Named), len(doc.Global.Catalog.Classes()))
		if verbose {
			printCatalog(out, doc.Global.Catalog)
			for _, name := range sortedKeys(doc.Global.Named) {
				fmt.Fprintf(out, "    named %s\n", name)
			}
		}
	}

	for _, level := range sortedKeys(doc.Levels) {
		ld := doc.Levels[level]
		fmt.Fprintf(out, "%s %d named, %d spawned, %d destroyed, %d classes\n",
			heading("Level %s:", level),
			len(ld.Named), len(ld.Spawned), len(ld.Destroyed), len(ld.Catalog.Classes()))
		if !verbose {
			continue
		}
		printCatalog(out, ld.Catalog)
		for _, name := range sortedKeys(ld.Named) {
			fmt.Fprintf(out, "    named %s\n", name)
		}
		var lines []string
		for _, o := range ld.Spawned {
			lines = append(lines, fmt.Sprintf("    spawned %s %s", o.Class, o.SpawnID))
		}
		slices.Sort(lines)
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		for _, name := range sortedKeys(ld.Destroyed) {
			fmt.Fprintf(out, "    destroyed %s\n", name)
		}
	}
	return nil
}

func printCatalog(out io.Writer, cat *stasis.ClassCatalog) {
	for _, class := range cat.Classes() {
		def, err := cat.Lookup(class)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  %s\n", color.GreenString("class %s", class))
		for _, p := range def.Props {
			name, _ := cat.NameOf(p.NameID)
			prefix, _ := cat.NameOf(p.PrefixID)
			if prefix != "" {
				name = prefix + "/" + name
			}
			fmt.Fprintf(out, "    %-24s %s\n", name, p.Kind)
		}
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
