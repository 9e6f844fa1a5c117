package config

import (
	"github.com/alex124513/rwa-backend/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链配置
type ChainConfig struct {
	ChainId             int64  `mapstructure:"chain_id"`              // 链ID
	RpcUrl              string `mapstructure:"rpc_url"`               // RPC节点URL
	PrivateKey          string `mapstructure:"private_key"`           // 管理员私钥
	FactoryAddress      string `mapstructure:"factory_address"`       // BankFactory合约地址
	PaymentTokenAddress string `mapstructure:"payment_token_address"` // TWDT合约地址
	Confirmations       int    `mapstructure:"confirmations"`         // 交易确认区块数
	DeployTimeout       int    `mapstructure:"deploy_timeout"`        // 部署确认超时（秒）
}

type TaskConfig struct {
	SyncInterval      int `mapstructure:"sync_interval"`      // 募资数据同步间隔（秒）
	ReconcileInterval int `mapstructure:"reconcile_interval"` // 孤儿部署对账间隔（秒）
	MonitorInterval   int `mapstructure:"monitor_interval"`   // 工厂事件扫描间隔（秒）
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/rwa-backend")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "rwa")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.chain_id", 1337)
	viper.SetDefault("chain.rpc_url", "http://localhost:8545")
	viper.SetDefault("chain.confirmations", 1)
	viper.SetDefault("chain.deploy_timeout", 120)
	viper.SetDefault("task.sync_interval", 60)
	viper.SetDefault("task.reconcile_interval", 300)
	viper.SetDefault("task.monitor_interval", 30)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
