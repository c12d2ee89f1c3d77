package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "ask <model> <prompt>",
		Short: "Stream a single model's answer to a prompt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			catalogDir := catalogDirFlag(cmd)
			a, err := newApp(ctx, catalogDir, envconfig.OsLookuper())
			if err != nil {
				return err
			}

			stream, err := a.router.Stream(ctx, args[0], args[1], system)
			if err != nil {
				return err
			}
			defer stream.Close()

			out := cmd.OutOrStdout()
			for {
				chunk, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return fmt.Errorf("stream failed: %w", err)
				}
				fmt.Fprint(out, chunk)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "System prompt")

	return cmd
}
