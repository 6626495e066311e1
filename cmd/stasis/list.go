package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oriumgames/stasis"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List save files in a directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		dir, _ := cmd.Flags().GetString("dir")
		return listSaves(cmd, dir)
	},
}

func init() {
	listCmd.Flags().StringP("dir", "d", "saves", "directory to read save files from")
	rootCmd.AddCommand(listCmd)
}

func listSaves(cmd *cobra.Command, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var infos []stasis.SaveInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sav") {
			continue
		}
		info, err := readInfo(filepath.Join(dir, e.Name()))
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("skipping %s: %v", e.Name(), err))
			continue
		}
		info.Slot = strings.TrimSuffix(e.Name(), ".sav")
		infos = append(infos, info)
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no saves found")
		return nil
	}
	slices.SortFunc(infos, func(a, b stasis.SaveInfo) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Slot, b.Slot)
	})

	heading := color.New(color.FgCyan, color.Bold).SprintfFunc()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", heading("SLOT"), heading("TITLE"), heading("SAVED"))
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Slot, info.Title, info.SavedAt.Format(time.RFC1123))
	}
	return w.Flush()
}

func readInfo(path string) (stasis.SaveInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return stasis.SaveInfo{}, err
	}
	defer f.Close()
	return stasis.ReadSaveInfo(f)
}
