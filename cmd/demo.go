package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"demo-engine/app/apiclient"
	"demo-engine/app/utils/downloader"
	"demo-engine/app/utils/pathhelper"

	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "已生成演示的下载与分享",
}

var demoDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "下载演示视频",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		id := args[0]
		output, _ := cmd.Flags().GetString("output")
		overwrite, _ := cmd.Flags().GetBool("force")

		demo, err := rt.client.GetDemo(ctx, id)
		if err != nil {
			return err
		}
		if !demo.HasVideo() {
			return apiclient.NewValidationError("id", "演示尚未生成完成: "+demo.Status.Label(demo.ProgressPercent))
		}

		config := downloader.DefaultConfig()
		config.OverwriteFile = overwrite
		if demo.FileSize != nil {
			config.ExpectedSize = *demo.FileSize
		}
		savePath := pathhelper.OutputPath(output, id, ".mp4", isDir)

		result, err := downloader.SaveToFile(savePath, config, func(w io.Writer) (int64, error) {
			return rt.client.DownloadDemo(ctx, id, w)
		})
		if err != nil {
			return err
		}

		rt.log.Infof("演示已下载: DemoID=%s, 大小: %d 字节, 耗时: %s, 速度: %.2f MB/s", id, result.Size, result.Duration, result.Speed)
		fmt.Fprintf(cmd.OutOrStdout(), "已保存到 %s (%d 字节)\n", result.Path, result.Size)
		return nil
	}),
}

var demoShareCmd = &cobra.Command{
	Use:   "share <id>",
	Short: "获取演示分享链接",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		url, err := rt.client.ShareDemo(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	}),
}

var demoShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "查看演示当前状态和步骤",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		demo, err := rt.client.GetDemo(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", demo.ID, demo.Status.Label(demo.ProgressPercent))
		fmt.Fprintf(out, "主题: %s\n", demo.Prompt)
		for _, step := range demo.Steps {
			fmt.Fprintf(out, "  %d. %s\n", step.StepNumber, step.Title)
			if step.Description != "" {
				fmt.Fprintf(out, "     %s\n", step.Description)
			}
		}
		if demo.HasVideo() {
			fmt.Fprintf(out, "视频地址: %s\n", demo.VideoURL)
		}
		return nil
	}),
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func init() {
	demoDownloadCmd.Flags().StringP("output", "o", "", "保存路径或目录 (默认 <id>.mp4)")
	demoDownloadCmd.Flags().BoolP("force", "f", false, "覆盖已存在的文件")

	demoCmd.AddCommand(demoDownloadCmd)
	demoCmd.AddCommand(demoShareCmd)
	demoCmd.AddCommand(demoShowCmd)
	rootCmd.AddCommand(demoCmd)
}
