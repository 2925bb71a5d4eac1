package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"demo-engine/app/apiclient"
	"demo-engine/app/model"
	"demo-engine/app/scheduler"
	"demo-engine/app/service"
	"demo-engine/app/session"
	"demo-engine/app/viewmodel"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "提交学习主题并等待演示生成",
	Args:  cobra.MinimumNArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		prefs, err := rt.prefs.Load()
		if err != nil {
			rt.log.Warnf("读取偏好失败，使用默认选项: %v", err)
		}
		opts := prefs.Options.WithDefaults()
		flags := cmd.Flags()
		if flags.Changed("language") {
			opts.Language, _ = flags.GetString("language")
		}
		if flags.Changed("quality") {
			opts.Quality, _ = flags.GetString("quality")
		}
		if flags.Changed("voice") {
			opts.Voice, _ = flags.GetString("voice")
		}
		if err := opts.Validate(); err != nil {
			return apiclient.NewValidationError("options", err.Error())
		}
		if save, _ := flags.GetBool("save-options"); save {
			if err := rt.prefs.Save(session.Preferences{Options: opts}); err != nil {
				return err
			}
		}

		lc := newLifecycle(ctx, rt)
		defer lc.Stop()

		noWatch, _ := flags.GetBool("no-watch")
		var id string
		start := func() error {
			id, err = lc.Submit(ctx, prompt, opts)
			return err
		}
		if noWatch {
			if err := start(); err != nil {
				return err
			}
		} else if err := follow(ctx, rt, out, lc, start); err != nil {
			return err
		}

		if err := rt.prefs.AddRecentQuery(prompt); err != nil {
			rt.log.Warnf("记录最近查询失败: %v", err)
		}
		if noWatch {
			fmt.Fprintf(out, "已提交，演示 ID: %s\n", id)
			fmt.Fprintf(out, "使用 demo-engine watch %s 查看进度\n", id)
		}
		fmt.Fprintf(out, "本月剩余生成次数: %d\n", lc.Quota())
		return nil
	}),
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "轮询已提交演示的生成进度",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		lc := newLifecycle(ctx, rt)
		defer lc.Stop()
		return follow(ctx, rt, cmd.OutOrStdout(), lc, func() error {
			return lc.Watch(args[0])
		})
	}),
}

// newLifecycle 创建控制器，已登录时用服务端额度覆盖本地默认值
func newLifecycle(ctx context.Context, rt *runtime) *service.DemoLifecycle {
	lc := service.NewDemoLifecycle(
		rt.client,
		scheduler.NewCronScheduler(rt.log.Named("poll")),
		rt.log.Named("demo"),
		service.LifecycleOptions{
			Interval: rt.cfg.Poll.PollInterval(),
			Quota:    rt.cfg.Quota.DefaultRemaining,
		},
	)
	if rt.auth.LoggedIn() {
		if credits, err := rt.client.GetCredits(ctx); err == nil {
			lc.SetQuota(credits.Remaining)
		} else {
			rt.log.Debugf("获取额度失败，使用本地默认值: %v", err)
		}
	}
	return lc
}

// follow 订阅控制器并执行 start，直到终态、超时或被中断
func follow(ctx context.Context, rt *runtime, out io.Writer, lc *service.DemoLifecycle, start func() error) error {
	if maxWait := rt.cfg.Poll.MaxWait(); maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	done := make(chan service.Update, 1)
	r := &progressRenderer{out: out, view: viewmodel.NewStepView()}
	unsubscribe := lc.Subscribe(func(u service.Update) {
		r.render(u)
		switch u.State {
		case service.StateCompleted, service.StateFailed, service.StateErrored:
			select {
			case done <- u:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := start(); err != nil {
		return err
	}
	fmt.Fprintf(out, "演示 ID: %s\n", lc.DemoID())

	select {
	case u := <-done:
		switch u.State {
		case service.StateCompleted:
			fmt.Fprintf(out, "视频地址: %s\n", u.Demo.VideoURL)
			fmt.Fprintf(out, "下载: demo-engine demo download %s\n", u.Demo.ID)
			return nil
		case service.StateFailed:
			return fmt.Errorf("演示生成失败: %s", u.Demo.ID)
		default:
			return u.Err
		}
	case <-ctx.Done():
		id := lc.DemoID()
		lc.Stop()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("等待超时，稍后可使用 demo-engine watch %s 继续查看", id)
		}
		return fmt.Errorf("已中断，稍后可使用 demo-engine watch %s 继续查看", id)
	}
}

// progressRenderer 把状态更新输出为进度行，回调串行执行
type progressRenderer struct {
	out      io.Writer
	view     *viewmodel.StepView
	printed  int
	lastLine string
	lastErr  string
}

func (r *progressRenderer) render(u service.Update) {
	if msg := apiclient.Message(u.Err); msg != r.lastErr {
		r.lastErr = msg
		if msg != "" {
			fmt.Fprintf(r.out, "! %s\n", msg)
		}
	}
	if u.Demo == nil {
		return
	}

	line := u.Demo.Status.Label(u.Demo.ProgressPercent)
	if line != r.lastLine {
		r.lastLine = line
		fmt.Fprintf(r.out, "[%s] %s\n", u.Demo.Status, line)
	}

	r.view.Apply(u.Demo)
	steps := r.view.Steps()
	for ; r.printed < len(steps); r.printed++ {
		step := steps[r.printed]
		fmt.Fprintf(r.out, "  %d. %s\n", step.StepNumber, step.Title)
	}
	r.view.Select(len(steps) - 1)
}

func init() {
	generateCmd.Flags().String("language", model.DefaultLanguage, "讲解语言: en, yo, ig, ha")
	generateCmd.Flags().String("quality", model.DefaultQuality, "清晰度: sd, hd, fullhd")
	generateCmd.Flags().String("voice", model.DefaultVoice, "配音")
	generateCmd.Flags().Bool("no-watch", false, "只提交不等待")
	generateCmd.Flags().Bool("save-options", false, "把本次选项保存为默认")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
}
