package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCmdTgSend() *cobra.Command {
	var msg string
	cmd := &cobra.Command{
		Use:     "tg_send [msg]",
		Aliases: []string{"notify"},
		Short:   "发送一条 Telegram 消息",
		Long: `通过 Telegram bot 发送消息, 用于测试通知配置。
token 和 chat id 来自配置文件 telegram 段或
XDEPLOY_TELEGRAM_TOKEN / XDEPLOY_TELEGRAM_CHAT_ID。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				msg = args[0]
			}
			d, _, err := newDeployer("", false)
			if err != nil {
				return err
			}
			if err := d.Notify(cmd.Context(), msg); err != nil {
				return fmt.Errorf("send telegram msg failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "发送成功")
			return nil
		},
	}
	cmd.Flags().StringVar(&msg, "msg", "hello", "消息内容")
	return cmd
}

func init() {
	rootCmd.AddCommand(NewCmdTgSend())
}
