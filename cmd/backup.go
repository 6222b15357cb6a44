package cmd

import (
	"github.com/spf13/cobra"
)

type BackupOptions struct {
	ModeOptions
	Out string
}

func NewCmdBackupMySQL() *cobra.Command {
	o := &BackupOptions{}
	cmd := &cobra.Command{
		Use:     "backupmysql [mode]",
		Aliases: []string{"backup"},
		Short:   "在远程主机上 mysqldump 并下载压缩后的备份",
		Long: `对 mode 中的每台主机执行:
mysqldump -> tar czf -> 下载到 --out 所在目录 -> 删除远程临时文件

本地文件名为 <YYYY-MM-DD-HH>.sql.tar.gz。
mode 中的每台主机都必须配置 mysql。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			d, _, err := newDeployer(o.Mode, false)
			if err != nil {
				return err
			}
			res, err := d.Backup(cmd.Context(), o.Mode, o.Out)
			if err != nil {
				return err
			}
			printResult("backupmysql", res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.Mode, "mode", "m", "mysql", "备份目标 mode")
	cmd.Flags().StringVarP(&o.Out, "out", "o", "~/test.sql", "备份保存位置, 使用其所在目录")
	return cmd
}

func init() {
	rootCmd.AddCommand(NewCmdBackupMySQL())
}
