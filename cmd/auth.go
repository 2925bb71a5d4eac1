package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "账号登录、注册与密码找回",
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "登录",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		password, err := passwordFlag(cmd, in, "password", "密码: ")
		if err != nil {
			return err
		}
		user, err := rt.auth.Login(ctx, args[0], password)
		if err != nil {
			return err
		}
		name := args[0]
		if user != nil && user.Name != "" {
			name = user.Name
		}
		fmt.Fprintf(cmd.OutOrStdout(), "欢迎回来，%s\n", name)
		return nil
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "注册新账号",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		in := bufio.NewReader(cmd.InOrStdin())
		password, err := passwordFlag(cmd, in, "password", "密码: ")
		if err != nil {
			return err
		}
		if _, err := rt.auth.Register(ctx, args[0], password, name); err != nil {
			return err
		}
		if rt.auth.LoggedIn() {
			fmt.Fprintln(cmd.OutOrStdout(), "注册成功，已自动登录")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "注册成功，请使用 demo-engine auth login %s 登录\n", args[0])
		}
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "退出登录",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		if err := rt.auth.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "已退出登录")
		return nil
	}),
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "查看当前用户",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		user, err := rt.auth.Me(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:    %s\n", user.ID)
		fmt.Fprintf(out, "邮箱:  %s\n", user.Email)
		fmt.Fprintf(out, "昵称:  %s\n", user.Name)
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看本地登录状态",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !rt.auth.LoggedIn() {
			fmt.Fprintln(out, "未登录")
			return nil
		}
		info, err := rt.auth.TokenInfo()
		if err != nil {
			rt.log.Debugf("解析访问令牌失败: %v", err)
			fmt.Fprintln(out, "已登录")
			return nil
		}
		fmt.Fprintf(out, "已登录: %s\n", info.Email)
		if !info.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "令牌到期时间: %s\n", info.ExpiresAt.Local().Format(time.DateTime))
		}
		return nil
	}),
}

var forgotCmd = &cobra.Command{
	Use:   "forgot <email>",
	Short: "发送重置密码邮件",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		if err := rt.auth.RequestPasswordReset(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "如果该邮箱已注册，重置链接已发送")
		return nil
	}),
}

var resetCmd = &cobra.Command{
	Use:   "reset <token>",
	Short: "使用重置令牌设置新密码",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		token := args[0]
		if err := rt.auth.ValidateResetToken(ctx, token); err != nil {
			return err
		}
		in := bufio.NewReader(cmd.InOrStdin())
		password, err := passwordFlag(cmd, in, "password", "新密码: ")
		if err != nil {
			return err
		}
		confirm, err := passwordFlag(cmd, in, "confirm", "确认新密码: ")
		if err != nil {
			return err
		}
		if err := rt.auth.ResetPassword(ctx, token, password, confirm); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "密码已更新，请重新登录")
		return nil
	}),
}

// passwordFlag 优先使用命令行参数，否则从标准输入读取一行
func passwordFlag(cmd *cobra.Command, in *bufio.Reader, flag, prompt string) (string, error) {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	loginCmd.Flags().String("password", "", "密码，留空时从标准输入读取")
	registerCmd.Flags().String("password", "", "密码，留空时从标准输入读取")
	registerCmd.Flags().String("name", "", "昵称")
	resetCmd.Flags().String("password", "", "新密码，留空时从标准输入读取")
	resetCmd.Flags().String("confirm", "", "再次输入新密码")

	authCmd.AddCommand(loginCmd, registerCmd, logoutCmd, meCmd, statusCmd, forgotCmd, resetCmd)
	rootCmd.AddCommand(authCmd)
}
