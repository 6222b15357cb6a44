/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wentf9/xops-deploy/cmd/version"
	"github.com/wentf9/xops-deploy/pkg/config"
	"github.com/wentf9/xops-deploy/pkg/logger"
	"github.com/wentf9/xops-deploy/pkg/sftp"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xdeploy [command] [flags]",
	Short: "xdeploy 把应用打包上传到一组服务器, 并提供 MySQL 远程备份",
	Long: `xdeploy 是一个部署工具:
打包源码目录, 通过 SSH/SFTP 上传到 mode 对应的一组主机, 解压并设置属主,
可选地检查 git 分支并在完成后发送 Telegram 通知。
同时提供 backupmysql 命令, 在远程执行 mysqldump 并下载压缩后的备份。

主机、mode 和打包规则写在 deploy.yaml 中 (--config 或 XDEPLOY_CONFIG 指定)。`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			version.PrintFullVersion()
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if e, err := config.LoadEnv(); err == nil {
			logger.SetLogLevel(e.LogLevel)
		}
		if globalOpts.Debug {
			logger.SetLogLevel("debug")
			logger.Logger.Debug("调试模式已开启")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "显示版本信息")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Debug, "debug", false, "开启调试模式")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.ConfigPath, "config", "c", "", "配置文件路径 (默认 $XDEPLOY_CONFIG 或 ./deploy.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.RepoDir, "repo", ".", "git 仓库目录")
	rootCmd.PersistentFlags().StringVar(&globalOpts.KnownHosts, "known-hosts", "", "known_hosts 文件, 为空时不校验主机公钥")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.Timeout, "timeout", 15*time.Second, "SSH 连接和握手超时")
	rootCmd.PersistentFlags().IntVar(&globalOpts.Threads, "threads", sftp.DefaultThreadsPerFile, "单个文件传输的并发分块数")
	rootCmd.PersistentFlags().Int64Var(&globalOpts.ChunkSize, "chunk-size", sftp.DefaultChunkSize, "传输分块大小 (字节)")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.NoProgress, "no-progress", false, "不显示传输进度条")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintFullVersion()
		},
	})
}

func printErr(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}
