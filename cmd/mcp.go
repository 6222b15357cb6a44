package cmd

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/wentf9/xops-deploy/cmd/version"
	"github.com/wentf9/xops-deploy/pkg/mcpserver"
)

func NewCmdMCP() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "以 MCP stdio server 方式运行, 暴露部署和备份工具",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout 由协议使用
			globalOpts.NoProgress = true
			d, _, err := newDeployer("", false)
			if err != nil {
				return err
			}
			return mcpserver.NewServer(d, version.Version).Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdMCP())
}
