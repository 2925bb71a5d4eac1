package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"demo-engine/app/apiclient"
	"demo-engine/app/config"
	"demo-engine/app/database"
	"demo-engine/app/logger"
	"demo-engine/app/service"
	"demo-engine/app/session"

	"github.com/spf13/cobra"
)

// runtime 一次命令执行所需的全部依赖
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	tokens *session.DBStore
	prefs  *session.PreferenceStore
	client *apiclient.Client
	auth   *service.AuthService
}

// setup 加载配置、打开本地数据库并创建客户端
func setup() (*runtime, error) {
	cfg := config.Load()

	log := logger.New(cfg.Log)
	watchConfig(func(level string) {
		log.SetLevel(level)
		log.Infof("日志级别已更新: %s", log.Level())
	})

	// 初始化数据库
	if err := database.Init(cfg, log); err != nil {
		log.Close()
		return nil, err
	}

	tokens, err := session.NewDBStore(database.GetDB())
	if err != nil {
		database.Close()
		log.Close()
		return nil, err
	}

	client := apiclient.New(cfg.API, tokens, log.Named("api"))
	return &runtime{
		cfg:    cfg,
		log:    log,
		tokens: tokens,
		prefs:  session.NewPreferenceStore(database.GetDB()),
		client: client,
		auth:   service.NewAuthService(client, tokens, log.Named("auth")),
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.client.Close(); err != nil {
		rt.log.Debugf("关闭 HTTP 客户端失败: %v", err)
	}
	if err := database.Close(); err != nil {
		rt.log.Errorf("关闭本地数据库失败: %v", err)
	}
	rt.log.Sync()
	rt.log.Close()
}

// signalContext 收到中断信号时取消
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// withRuntime 包装需要依赖的命令
func withRuntime(run func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return run(ctx, rt, cmd, args)
	}
}
