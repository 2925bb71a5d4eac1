package cmd

import (
	"context"
	"fmt"

	"demo-engine/app/session"

	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "查看本月剩余生成次数",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		credits, err := rt.client.GetCredits(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "套餐: %s\n", credits.Plan)
		fmt.Fprintf(out, "剩余: %d/%d\n", credits.Remaining, credits.Total)
		if credits.Remaining <= 0 {
			fmt.Fprintln(out, "本月生成次数已用完，升级套餐后继续使用")
		}
		return nil
	}),
}

var preferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "查看或修改默认生成选项",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		prefs, err := rt.prefs.Load()
		if err != nil {
			return err
		}
		opts := prefs.Options
		flags := cmd.Flags()
		changed := false
		for name, field := range map[string]*string{
			"language": &opts.Language,
			"quality":  &opts.Quality,
			"voice":    &opts.Voice,
		} {
			if flags.Changed(name) {
				*field, _ = flags.GetString(name)
				changed = true
			}
		}
		if changed {
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := rt.prefs.Save(session.Preferences{Options: opts}); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "语言:   %s\n", opts.Language)
		fmt.Fprintf(out, "清晰度: %s\n", opts.Quality)
		fmt.Fprintf(out, "配音:   %s\n", opts.Voice)
		return nil
	}),
}

func init() {
	preferencesCmd.Flags().String("language", "", "讲解语言: en, yo, ig, ha")
	preferencesCmd.Flags().String("quality", "", "清晰度: sd, hd, fullhd")
	preferencesCmd.Flags().String("voice", "", "配音")

	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(preferencesCmd)
}
