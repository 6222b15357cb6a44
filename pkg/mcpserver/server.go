// Package mcpserver 通过 MCP 暴露部署操作, 供 AI 助手调用
package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/wentf9/xops-deploy/pkg/deploy"
	"github.com/wentf9/xops-deploy/pkg/models"
)

// ModeInfo 描述一个 mode, 地址已脱敏
type ModeInfo struct {
	Mode        string   `json:"mode"`
	Name        string   `json:"name,omitempty"`
	Hosts       []string `json:"hosts"`
	CheckBranch bool     `json:"check_branch"`
	Notify      bool     `json:"notify"`
	Backup      bool     `json:"backup"`
}

type ListModesOutput struct {
	Modes []ModeInfo `json:"modes"`
}

type ModeArgs struct {
	Mode string `json:"mode" jsonschema:"deployment mode defined in deploy.yaml"`
}

type BackupArgs struct {
	Mode string `json:"mode" jsonschema:"mode whose hosts carry mysql settings"`
	Out  string `json:"out,omitempty" jsonschema:"local path, backups are saved in its directory"`
}

type MessageArgs struct {
	Msg string `json:"msg" jsonschema:"message text"`
}

// RunOutput 是部署/上传/备份的结果
type RunOutput struct {
	Mode      string   `json:"mode"`
	Succeeded []string `json:"succeeded"`
	Files     []string `json:"files,omitempty"`
	Failed    string   `json:"failed,omitempty"`
	Notified  bool     `json:"notified"`
	Output    string   `json:"output"`
}

type CompressOutput struct {
	Archive string `json:"archive"`
	Output  string `json:"output"`
}

type SendOutput struct {
	Sent bool `json:"sent"`
}

// NewServer 基于 Deployer 创建 MCP server
// 工具调用的输出写入结果而不是 stdout, stdout 由 stdio transport 占用
func NewServer(d *deploy.Deployer, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "xdeploy",
		Version: version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_modes",
		Description: "List deployment modes and their hosts (addresses masked)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, ListModesOutput, error) {
		return nil, listModes(d), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "deploy",
		Description: "Write the version file, build the archive and upload it to every host of a mode",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args ModeArgs) (*mcp.CallToolResult, RunOutput, error) {
		dd, buf := capture(d)
		res, err := dd.Deploy(ctx, args.Mode)
		if err != nil {
			return nil, RunOutput{}, err
		}
		return nil, toOutput(res, buf), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload",
		Description: "Upload the existing archive to every host of a mode",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args ModeArgs) (*mcp.CallToolResult, RunOutput, error) {
		dd, buf := capture(d)
		res, err := dd.Upload(ctx, args.Mode)
		if err != nil {
			return nil, RunOutput{}, err
		}
		return nil, toOutput(res, buf), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compress",
		Description: "Build the deployment archive",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, CompressOutput, error) {
		dd, buf := capture(d)
		if err := dd.Compress(ctx); err != nil {
			return nil, CompressOutput{}, err
		}
		return nil, CompressOutput{Archive: d.Config.Archive().Filename, Output: buf.String()}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "backup_mysql",
		Description: "Dump MySQL databases on every host of a mode and download the compressed dumps",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args BackupArgs) (*mcp.CallToolResult, RunOutput, error) {
		out := args.Out
		if out == "" {
			out = "~/test.sql"
		}
		dd, buf := capture(d)
		res, err := dd.Backup(ctx, args.Mode, out)
		if err != nil {
			return nil, RunOutput{}, err
		}
		return nil, toOutput(res, buf), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a Telegram message through the configured bot",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args MessageArgs) (*mcp.CallToolResult, SendOutput, error) {
		if args.Msg == "" {
			return nil, SendOutput{}, fmt.Errorf("msg is required")
		}
		if err := d.Notify(ctx, args.Msg); err != nil {
			return nil, SendOutput{}, err
		}
		return nil, SendOutput{Sent: true}, nil
	})

	return server
}

func capture(d *deploy.Deployer) (*deploy.Deployer, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	dd := *d
	dd.Out = buf
	return &dd, buf
}

func listModes(d *deploy.Deployer) ListModesOutput {
	var out ListModesOutput
	for _, mode := range d.Config.Modes() {
		g, _ := d.Config.GetGroup(mode)
		out.Modes = append(out.Modes, ModeInfo{
			Mode:        mode,
			Name:        g.Name,
			Hosts:       hostNames(g.Nodes),
			CheckBranch: g.CheckBranch,
			Notify:      g.Notify,
			Backup:      hasBackup(g.Nodes),
		})
	}
	return out
}

func hasBackup(nodes []models.Node) bool {
	if len(nodes) == 0 {
		return false
	}
	for _, n := range nodes {
		if n.MySQL == nil {
			return false
		}
	}
	return true
}

func hostNames(nodes []models.Node) []string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, fmt.Sprintf("%s[%s]", n.Name, deploy.MaskAddr(n.Address)))
	}
	return names
}

func toOutput(res *deploy.Result, buf *bytes.Buffer) RunOutput {
	out := RunOutput{
		Mode:      res.Mode,
		Succeeded: hostNames(res.Succeeded),
		Files:     res.Files,
		Notified:  res.Notified,
		Output:    buf.String(),
	}
	if res.Failed != nil {
		out.Failed = res.Failed.Error()
	}
	return out
}
