/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wentf9/xops-deploy/pkg/probe"
)

func NewCmdPing() *cobra.Command {
	o := &ModeOptions{}
	checker := probe.NewChecker()
	cmd := &cobra.Command{
		Use:   "ping [mode]",
		Short: "检查 mode 中的主机是否可达",
		Long: `依次检查 mode 中每台主机:
先发送 ICMP Ping, 不通或没有权限时尝试连接 SSH 端口。
注意: 使用 --privileged 时需要 root 权限。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			d, _, err := newDeployer("", false)
			if err != nil {
				return err
			}
			g, err := d.Group(o.Mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, n := range g.Nodes {
				res := checker.Check(cmd.Context(), n.Address, n.Port)
				if !res.Reachable {
					failed++
					fmt.Fprintf(out, "[ERROR] %s %s 不可达 (%s)\n", n.Name, res.Addr, res.Method)
					continue
				}
				fmt.Fprintf(out, "[SUCCESS] %s %s %s rtt=%v loss=%.0f%%\n", n.Name, res.Addr, res.Method, res.RTT, res.Loss)
			}
			if failed > 0 {
				return fmt.Errorf("%d 台主机不可达", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.Mode, "mode", "m", "dev", "mode")
	cmd.Flags().BoolVar(&checker.Privileged, "privileged", false, "使用 raw socket 发送 ICMP")
	cmd.Flags().IntVar(&checker.Count, "count", 3, "ICMP 包数量")
	return cmd
}

func init() {
	rootCmd.AddCommand(NewCmdPing())
}
