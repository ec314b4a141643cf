package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"prism-connector/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Instagram   Instagram   `json:"instagram"`
	Cloudinary  Cloudinary  `json:"cloudinary"`
	Notifier    Notifier    `json:"notifier"`
	RateLimit   RateLimit   `json:"rateLimit"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	APIKey      string `json:"apiKey"`
	FrontendURL string `json:"frontendURL"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Instagram holds the Graph API application credentials plus the
// operator-provisioned fallback identity used when a persona's own
// credential stops working.
type Instagram struct {
	AppID              string `json:"appId"`
	AppSecret          string `json:"appSecret"`
	RedirectURI        string `json:"redirectURI"`
	WebhookVerifyToken string `json:"webhookVerifyToken"`
	FallbackToken      string `json:"fallbackToken"`
	FallbackAccountID  string `json:"fallbackAccountId"`
	DefaultPersona     string `json:"defaultPersona"`
}

// Cloudinary is used to reproject unsupported image formats to a public
// JPEG URL before publishing.
type Cloudinary struct {
	CloudName string `json:"cloudName"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// Notifier configures the outbound channels for credential-renewal alerts.
// Both are optional; unset means the channel is skipped.
type Notifier struct {
	PubsubProjectID string `json:"pubsubProjectId"`
	PubsubTopic     string `json:"pubsubTopic"`
	ServiceBusConn  string `json:"serviceBusConn"`
	ServiceBusQueue string `json:"serviceBusQueue"`
}

type RateLimit struct {
	PublishPerMinute  int `json:"publishPerMinute"`
	SchedulePerMinute int `json:"schedulePerMinute"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initDatabase(&C)
	initInstagram(&C)
	initCloudinary(&C)
	initNotifier(&C)
	initRateLimit(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("API_SECRET_KEY"); v != "" {
		C.App.APIKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 8000
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 8000
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		C.App.FrontendURL = v
	}
	if C.App.FrontendURL == "" {
		C.App.FrontendURL = "http://localhost:3000"
	}
	if C.App.APIKey == "" {
		logger.GetLogger().Warn("App.APIKey not set; API authentication will reject every request. Provide API_SECRET_KEY via environment.")
	}
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	// Optional MSSQL config via environment (Azure SQL in production)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_PORT"); v != "" && C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}

	if v := os.Getenv("MONGO_HOST"); v != "" && C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = v
	}
	if v := os.Getenv("MONGO_PORT"); v != "" && C.Database.Mongo.Port == "" {
		C.Database.Mongo.Port = v
	}
	if v := os.Getenv("MONGO_USER"); v != "" && C.Database.Mongo.User == "" {
		C.Database.Mongo.User = v
	}
	if v := os.Getenv("MONGO_PASSWORD"); v != "" && C.Database.Mongo.Password == "" {
		C.Database.Mongo.Password = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" && C.Database.Mongo.Name == "" {
		C.Database.Mongo.Name = v
	}
}

func initInstagram(C *Config) {
	if v := os.Getenv("INSTAGRAM_APP_ID"); v != "" {
		C.Instagram.AppID = v
	}
	if v := os.Getenv("INSTAGRAM_APP_SECRET"); v != "" {
		C.Instagram.AppSecret = v
	}
	if v := os.Getenv("INSTAGRAM_REDIRECT_URI"); v != "" {
		C.Instagram.RedirectURI = v
	}
	if C.Instagram.RedirectURI == "" {
		C.Instagram.RedirectURI = "http://localhost:8000/api/instagram/callback"
	}
	if v := os.Getenv("WEBHOOK_VERIFY_TOKEN"); v != "" {
		C.Instagram.WebhookVerifyToken = v
	}
	if C.Instagram.WebhookVerifyToken == "" {
		C.Instagram.WebhookVerifyToken = "virtual_prism_webhook_token"
	}
	if v := os.Getenv("INSTAGRAM_ACCESS_TOKEN"); v != "" {
		C.Instagram.FallbackToken = v
	}
	if v := os.Getenv("IG_USER_ID"); v != "" {
		C.Instagram.FallbackAccountID = v
	}
	if v := os.Getenv("DEFAULT_PERSONA_ID"); v != "" {
		C.Instagram.DefaultPersona = v
	}
	if C.Instagram.DefaultPersona == "" {
		C.Instagram.DefaultPersona = "demo"
	}
}

func initCloudinary(C *Config) {
	if v := os.Getenv("CLOUDINARY_CLOUD_NAME"); v != "" {
		C.Cloudinary.CloudName = v
	}
	if v := os.Getenv("CLOUDINARY_API_KEY"); v != "" {
		C.Cloudinary.APIKey = v
	}
	if v := os.Getenv("CLOUDINARY_API_SECRET"); v != "" {
		C.Cloudinary.APISecret = v
	}
}

func initNotifier(C *Config) {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		C.Notifier.PubsubProjectID = v
	}
	if v := os.Getenv("PUBSUB_TOPIC"); v != "" {
		C.Notifier.PubsubTopic = v
	}
	if C.Notifier.PubsubTopic == "" {
		C.Notifier.PubsubTopic = "ig-renewal-alerts"
	}
	if v := os.Getenv("SERVICEBUS_CONNECTION_STRING"); v != "" {
		C.Notifier.ServiceBusConn = v
	}
	if v := os.Getenv("SERVICEBUS_QUEUE"); v != "" {
		C.Notifier.ServiceBusQueue = v
	}
	if C.Notifier.ServiceBusQueue == "" {
		C.Notifier.ServiceBusQueue = "ig-renewal-alerts"
	}
}

func initRateLimit(C *Config) {
	if v := os.Getenv("RATE_LIMIT_PUBLISH"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			C.RateLimit.PublishPerMinute = n
		}
	}
	if C.RateLimit.PublishPerMinute == 0 {
		C.RateLimit.PublishPerMinute = 5
	}
	if v := os.Getenv("RATE_LIMIT_SCHEDULE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			C.RateLimit.SchedulePerMinute = n
		}
	}
	if C.RateLimit.SchedulePerMinute == 0 {
		C.RateLimit.SchedulePerMinute = 10
	}
}
