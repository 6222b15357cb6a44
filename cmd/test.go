package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wentf9/xops-deploy/pkg/config"
)

func NewCmdTest() *cobra.Command {
	var logs int
	cmd := &cobra.Command{
		Use:   "test",
		Short: "检查配置: 列出所有 mode、主机和最近的提交",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := newDeployer("", false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "test")

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "MODE\t名称\t主机地址\t用户\t认证方式\t部署目录\t属主\t备份\t选项")
			for _, mode := range d.Config.Modes() {
				g, _ := d.Config.GetGroup(mode)
				var flags []string
				if g.CheckBranch {
					flags = append(flags, "check_branch")
				}
				if g.Notify {
					flags = append(flags, "notify")
				}
				for _, n := range g.Nodes {
					backup := "-"
					if n.MySQL != nil {
						backup = strings.Join(n.MySQL.Databases, ",")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						mode,
						n.Name,
						fmt.Sprintf("%s:%d", n.Address, n.Port),
						n.User,
						n.AuthType(),
						n.DeployDir,
						n.Owner,
						backup,
						strings.Join(flags, ","),
					)
				}
			}
			w.Flush()

			a := cfg.Archive
			fmt.Fprintf(out, "\n打包: %s <- %s %v (排除 %v)\n", a.Filename, a.Root, a.Includes, a.Excludes)
			fmt.Fprintf(out, "版本文件: %s\n", cfg.VersionFile)
			fmt.Fprintf(out, "通知: %s\n", notifyStatus(cfg.Telegram))

			if d.Repo != nil && logs > 0 {
				branch, _ := d.Repo.Branch()
				lines, err := d.Repo.LastLog(logs)
				if err == nil {
					fmt.Fprintf(out, "\n分支 %s:\n%s\n", branch, strings.Join(lines, "\n"))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&logs, "log", "n", 3, "显示最近几条提交")
	return cmd
}

func notifyStatus(tg config.Telegram) string {
	if tg.Token == "" || tg.ChatID == "" {
		return "未配置"
	}
	return fmt.Sprintf("telegram chat %s", tg.ChatID)
}

func init() {
	rootCmd.AddCommand(NewCmdTest())
}
