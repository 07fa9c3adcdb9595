package config

// Config 配置主体
type Config struct {
	Server            ServerConfig      `mapstructure:"server"`
	DB                DBConfig          `mapstructure:"database"`
	Redis             RedisConfig       `mapstructure:"redis"`
	Mongo             MongoConfig       `mapstructure:"mongo"`
	Whop              WhopConfig        `mapstructure:"whop"`
	LLM               LLMConfig         `mapstructure:"llm"`
	Logstash          LogstashConfig    `mapstructure:"logstash"`
	Sync              SyncConfig        `mapstructure:"sync"`
	Kafka             KafkaConfig       `mapstructure:"kafka"`
	KafkaSyncConsumer KafkaSyncConsumer `mapstructure:"kafka_sync_consumer"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig Mongo配置，存放助手会话历史
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// WhopConfig 会员平台远程 API 配置
type WhopConfig struct {
	APIBase       string `mapstructure:"api_base"`
	APIKey        string `mapstructure:"api_key"`
	AppID         string `mapstructure:"app_id"`
	JWTPublicKey  string `mapstructure:"jwt_public_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	DevMode       bool   `mapstructure:"dev_mode"`
	DevCompanyID  string `mapstructure:"dev_company_id"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
}

type LLMConfig struct {
	URL    string `mapstructure:"url"`
	Model  string `mapstructure:"model"`
	ApiKey string `mapstructure:"api_key"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// SyncConfig 同步引擎参数
type SyncConfig struct {
	CronSpec        string `mapstructure:"cron_spec"`
	PageSize        int    `mapstructure:"page_size"`
	MaxChannels     int    `mapstructure:"max_channels"`
	MessagesPerChan int    `mapstructure:"messages_per_channel"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaSyncConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}
