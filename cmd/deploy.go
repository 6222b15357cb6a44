package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCmdDeploy() *cobra.Command {
	o := &ModeOptions{}
	cmd := &cobra.Command{
		Use:   "deploy [mode]",
		Short: "写入版本文件、打包并上传到 mode 对应的主机",
		Long: `完整的部署流程:
  1. 校验 mode 是否存在
  2. mode 设置了 check_branch 时要求当前 git 分支与 mode 同名
  3. 把当前提交写入版本文件 (默认 ./app/version)
  4. 按 archive 规则打包
  5. 逐台上传、解压、chown
  6. mode 设置了 notify 时发送 Telegram 通知

用法示例:
xdeploy deploy
xdeploy deploy rel
xdeploy deploy --mode dev`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			d, _, err := newDeployer(o.Mode, true)
			if err != nil {
				return err
			}
			res, err := d.Deploy(cmd.Context(), o.Mode)
			if err != nil {
				return err
			}
			printResult("deploy", res)
			fmt.Fprintln(cmd.OutOrStdout(), "Done.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.Mode, "mode", "m", "dev", "部署目标 mode")
	return cmd
}

func NewCmdCompress() *cobra.Command {
	return &cobra.Command{
		Use:   "compress",
		Short: "按 archive 规则生成部署包",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := newDeployer("", false)
			if err != nil {
				return err
			}
			if err := d.Compress(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已生成 %s\n", cfg.Archive.Filename)
			return nil
		},
	}
}

func NewCmdUpload() *cobra.Command {
	o := &ModeOptions{}
	cmd := &cobra.Command{
		Use:   "upload [mode]",
		Short: "把已生成的部署包上传到 mode 对应的主机",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			d, _, err := newDeployer(o.Mode, false)
			if err != nil {
				return err
			}
			res, err := d.Upload(cmd.Context(), o.Mode)
			if err != nil {
				return err
			}
			printResult("upload", res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.Mode, "mode", "m", "dev", "部署目标 mode")
	return cmd
}

func init() {
	rootCmd.AddCommand(NewCmdDeploy())
	rootCmd.AddCommand(NewCmdCompress())
	rootCmd.AddCommand(NewCmdUpload())
}
