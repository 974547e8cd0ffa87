package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/battlewithbytes/migration-console/internal/units"
)

func init() {
	rootCmd.AddCommand(sizeCmd)
}

var sizeCmd = &cobra.Command{
	Use:   "size <value>",
	Short: "Convert between byte counts and human-readable sizes",
	Example: `  migration-console size 1073741824
  migration-console size "1.5 GiB"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := convertSize(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

// convertSize renders a plain integer as a human size and anything else as
// a byte count.
func convertSize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return units.BytesToHuman(n), nil
	}
	n, err := units.HumanToBytes(s)
	if err != nil {
		return "", err
	}
	return humanize.Comma(int64(n)) + " bytes", nil
}
