package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Build        string
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		RollbarToken string
		Server       ServerConfig
		Backend      BackendConfig
		Session      SessionConfig
		Redis        RedisConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		DisableReqLogs  bool
		ShutdownTimeout time.Duration
	}

	BackendConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	SessionConfig struct {
		Store      string // cookie | redis | memory
		CookieName string
		HashKey    string
		BlockKey   string
		MaxAge     time.Duration
		Secure     bool
	}

	RedisConfig struct {
		Addr      string
		Password  string
		DB        int
		KeyPrefix string
	}
)

// Session storage kinds.
const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

func setDefaults(conf *viper.Viper) {
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Masomo")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.addr", ":4200")
	conf.SetDefault("server.debugHost", ":4201")
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("backend.baseURL", "http://localhost:8000/api")
	conf.SetDefault("backend.timeout", 15*time.Second)

	conf.SetDefault("session.store", SessionStoreCookie)
	conf.SetDefault("session.cookieName", "masomo_session")
	conf.SetDefault("session.hashKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("session.blockKey", "")
	conf.SetDefault("session.maxAge", 7*24*time.Hour)
	conf.SetDefault("session.secure", false)

	conf.SetDefault("redis.addr", "127.0.0.1:6379")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)
	conf.SetDefault("redis.keyPrefix", "masomo:session:")
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed by the upper-cased env name, eg. `PROD_BACKEND_BASEURL`.
func NewConfig() *Config {
	conf := viper.New()
	setDefaults(conf)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Build:        conf.GetString("build"),
		Env:          env,
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			Addr:            conf.GetString("server.addr"),
			DebugHost:       conf.GetString("server.debugHost"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(conf.GetString("backend.baseURL"), "/"),
			Timeout: conf.GetDuration("backend.timeout"),
		},
		Session: SessionConfig{
			Store:      strings.ToLower(conf.GetString("session.store")),
			CookieName: conf.GetString("session.cookieName"),
			HashKey:    conf.GetString("session.hashKey"),
			BlockKey:   conf.GetString("session.blockKey"),
			MaxAge:     conf.GetDuration("session.maxAge"),
			Secure:     conf.GetBool("session.secure"),
		},
		Redis: RedisConfig{
			Addr:      conf.GetString("redis.addr"),
			Password:  conf.GetString("redis.password"),
			DB:        conf.GetInt("redis.db"),
			KeyPrefix: conf.GetString("redis.keyPrefix"),
		},
	}
}

// configDir returns the directory holding the .env files: $CONFIG_DIR or ./config.
func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(Getwd(), "config")
}
