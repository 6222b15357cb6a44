package models

const (
	DefaultPort      = 22
	DefaultUser      = "root"
	DefaultOwner     = "www:www"
	DefaultTempDir   = "/tmp"
	DefaultDeployDir = "/home"
	DefaultMySQLPort = 3306
)

// Identity 定义认证信息
// KeyPath 不为空时使用私钥认证，否则使用密码认证
type Identity struct {
	User       string `yaml:"user,omitempty"`
	KeyPath    string `yaml:"key_path,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"` // 私钥密码
	Password   string `yaml:"password,omitempty"`   // 登录密码
}

// AuthType 返回本次连接实际使用的认证方式: "key" 或 "password"
func (i Identity) AuthType() string {
	if i.KeyPath != "" {
		return "key"
	}
	return "password"
}

// Host 定义网络连接信息
type Host struct {
	Address string `yaml:"address"` // IP 或 域名
	Port    int    `yaml:"port,omitempty"`
}

// Endpoint 聚合了一次 SSH 连接需要的地址和认证信息
type Endpoint struct {
	Host     `yaml:",inline"`
	Identity `yaml:",inline"`
}

func (e *Endpoint) applyDefaults() {
	if e.Port == 0 {
		e.Port = DefaultPort
	}
	if e.User == "" {
		e.User = DefaultUser
	}
}

// MySQL 描述远程 mysqldump 所需的数据库连接参数
type MySQL struct {
	Host      string   `yaml:"host"`
	Port      int      `yaml:"port,omitempty"`
	User      string   `yaml:"user"`
	Password  string   `yaml:"password,omitempty"`
	Databases []string `yaml:"databases"`
}

// Node 是一个部署目标
type Node struct {
	Name     string `yaml:"name"`
	Endpoint `yaml:",inline"`

	Owner     string `yaml:"owner,omitempty"`      // chown 使用的 user:group
	TempDir   string `yaml:"temp_dir,omitempty"`   // 远程临时目录
	DeployDir string `yaml:"deploy_dir,omitempty"` // 远程部署目录
	SudoPwd   string `yaml:"sudo_pwd,omitempty"`   // 为空时使用登录密码

	// 跳板机
	Jump *Endpoint `yaml:"jump,omitempty"`

	// 安装完成后在远程执行的命令, 例如重启服务
	PostInstall []string `yaml:"post_install,omitempty"`

	// 仅备份用的主机需要配置
	MySQL *MySQL `yaml:"mysql,omitempty"`
}

// ApplyDefaults 填充未配置的字段
func (n *Node) ApplyDefaults() {
	n.Endpoint.applyDefaults()
	if n.Name == "" {
		n.Name = "server"
	}
	if n.Owner == "" {
		n.Owner = DefaultOwner
	}
	if n.TempDir == "" {
		n.TempDir = DefaultTempDir
	}
	if n.DeployDir == "" {
		n.DeployDir = DefaultDeployDir
	}
	if n.Jump != nil {
		n.Jump.applyDefaults()
	}
	if n.MySQL != nil && n.MySQL.Port == 0 {
		n.MySQL.Port = DefaultMySQLPort
	}
}

// SudoPassword 返回 sudo 时注入的密码
func (n Node) SudoPassword() string {
	if n.SudoPwd != "" {
		return n.SudoPwd
	}
	return n.Password
}

// Group 是一组共享部署策略的主机, Nodes 的顺序即上传顺序
type Group struct {
	Name        string `yaml:"name,omitempty"`
	Domain      string `yaml:"domain,omitempty"`
	Nodes       []Node `yaml:"servers"`
	Notify      bool   `yaml:"notify,omitempty"`       // 部署完成后发送消息
	NotifyLog   int    `yaml:"notify_log,omitempty"`   // 消息中附带最近几条提交记录
	CheckBranch bool   `yaml:"check_branch,omitempty"` // 要求当前分支名与 mode 相同
}

// Archive 定义打包规则
type Archive struct {
	Filename string   `yaml:"filename,omitempty"`
	Root     string   `yaml:"root"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes,omitempty"`

	// 打包前后在本地执行的命令
	Before []string `yaml:"before,omitempty"`
	After  []string `yaml:"after,omitempty"`
}
