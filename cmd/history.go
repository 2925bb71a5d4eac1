package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"demo-engine/app/model"
	"demo-engine/app/service"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查看历史演示",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		sortFlag, _ := cmd.Flags().GetString("sort")
		criterion, err := service.ParseSortCriterion(sortFlag)
		if err != nil {
			return err
		}

		list := service.NewHistoryList(rt.client, rt.cfg.History.PageSize, rt.log.Named("history"))
		// 先加载第一页拿到总页数，超出范围的页码会被收窄
		if page > 1 {
			if err := list.LoadPage(ctx, 1); err != nil {
				return err
			}
		}
		if err := list.LoadPage(ctx, page); err != nil {
			return err
		}
		if err := list.Sort(criterion); err != nil {
			return err
		}

		printHistory(cmd.OutOrStdout(), list)
		return nil
	}),
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "删除一条历史演示",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		list := service.NewHistoryList(rt.client, rt.cfg.History.PageSize, rt.log.Named("history"))
		if err := list.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已删除 %s\n", args[0])
		return nil
	}),
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "最近提交过的主题",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		queries, err := rt.prefs.RecentQueries()
		if err != nil {
			return err
		}
		for _, q := range queries {
			fmt.Fprintln(cmd.OutOrStdout(), q)
		}
		return nil
	}),
}

func printHistory(out io.Writer, list *service.HistoryList) {
	items := list.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "暂无历史记录")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t状态\t时长\t创建时间\t主题")
	for _, d := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			d.Status.Label(d.ProgressPercent),
			formatDuration(d),
			d.CreatedAt.Local().Format("2006-01-02 15:04"),
			d.Prompt,
		)
	}
	w.Flush()
	fmt.Fprintf(out, "第 %d/%d 页，排序: %s\n", list.Page(), list.TotalPages(), list.SortBy())
}

func formatDuration(d model.Demo) string {
	if d.Duration == nil {
		return "-"
	}
	return (time.Duration(*d.Duration * float64(time.Second))).Round(time.Second).String()
}

func init() {
	historyCmd.Flags().Int("page", 1, "页码")
	historyCmd.Flags().String("sort", string(service.SortRecent), "排序: recent, oldest, duration")

	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyRecentCmd)
	rootCmd.AddCommand(historyCmd)
}
