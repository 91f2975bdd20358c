// Command groundtrack draws satellite ground tracks on a world map, either
// serving the animation over HTTP or rendering one selection to PNG files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "groundtrack",
		Short: "satellite ground tracks on a world map",
		Long: `groundtrack fetches satellite positions for an observer and animates
them minute by minute over a Kavrayskiy VII world map.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newRenderCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "groundtrack: %v\n", err)
		os.Exit(1)
	}
}
