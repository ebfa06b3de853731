package config

import (
	"os"
	"strconv"

	"asha-triage/internal/common/config"
)

// Config 分诊服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// HTTP 服务配置
	HTTP struct {
		Addr string
	}

	// 知识库检索服务配置（外部协作方）
	KnowledgeBase struct {
		BaseURL        string
		APIKey         string
		TopK           int // 检索返回的文档数量，默认 5
		TimeoutSeconds int
	}

	// 推理服务配置（外部协作方）
	Inference struct {
		BaseURL        string
		APIKey         string
		ModelVersion   string
		MaxTokens      int
		Temperature    float64
		TopP           float64
		TimeoutSeconds int
	}

	// 紧急升级策略配置
	Emergency struct {
		AutoEscalationThreshold float64 // 风险分自动升级阈值，默认 0.8
		PHCNotificationEnabled  bool    // 是否向 PHC 推送通知
		EmergencyContactNumber  string  // 兜底紧急联系电话
		NotifyTopicPrefix       string  // MQTT 通知主题前缀
	}

	// 分析事件配置
	Analytics struct {
		Stream string // Redis Streams 名称
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "asha_triage")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "asha-triage")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.KnowledgeBase.BaseURL = getEnv("KB_BASE_URL", "http://localhost:9100")
	cfg.KnowledgeBase.APIKey = getEnv("KB_API_KEY", "")
	cfg.KnowledgeBase.TopK = getEnvInt("KB_TOP_K", 5)
	cfg.KnowledgeBase.TimeoutSeconds = getEnvInt("KB_TIMEOUT_SECONDS", 10)

	cfg.Inference.BaseURL = getEnv("INFERENCE_BASE_URL", "http://localhost:9200")
	cfg.Inference.APIKey = getEnv("INFERENCE_API_KEY", "")
	cfg.Inference.ModelVersion = getEnv("INFERENCE_MODEL_VERSION", "claude-3-haiku-20240307")
	cfg.Inference.MaxTokens = getEnvInt("INFERENCE_MAX_TOKENS", 1024)
	cfg.Inference.Temperature = getEnvFloat("INFERENCE_TEMPERATURE", 0.2)
	cfg.Inference.TopP = getEnvFloat("INFERENCE_TOP_P", 0.9)
	cfg.Inference.TimeoutSeconds = getEnvInt("INFERENCE_TIMEOUT_SECONDS", 30)

	cfg.Emergency.AutoEscalationThreshold = getEnvFloat("EMERGENCY_AUTO_ESCALATION_THRESHOLD", 0.8)
	cfg.Emergency.PHCNotificationEnabled = getEnvBool("EMERGENCY_PHC_NOTIFICATION_ENABLED", false)
	cfg.Emergency.EmergencyContactNumber = getEnv("EMERGENCY_CONTACT_NUMBER", "108")
	cfg.Emergency.NotifyTopicPrefix = getEnv("EMERGENCY_NOTIFY_TOPIC_PREFIX", "asha/emergency/")

	cfg.Analytics.Stream = getEnv("ANALYTICS_STREAM", "asha:analytics:events")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
