package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const envPrefix = "HIBIKI_"

//DatabaseConfig holds the connection details for the shared rethinkdb instance
type DatabaseConfig struct {
	Address string
	Name    string
}

//IsConfigured returns true if a database address was provided. Without one the bot runs as a single process with
//its triggers held in memory.
func (c DatabaseConfig) IsConfigured() bool {
	return c.Address != ""
}

//DiscordConfig holds the discord credentials
type DiscordConfig struct {
	BotToken string
	//DevUID is a user who may run admin commands anywhere, including those affecting global triggers
	DevUID string
	//ShardIndex and ShardCount pick which guilds the gateway delivers to this process. Every process sharing a
	//database must use the same count and a different index.
	ShardIndex int
	ShardCount int
}

//AppConfig holds every setting the bot reads from the environment
type AppConfig struct {
	Database DatabaseConfig
	Discord  DiscordConfig

	DefaultPrefix  string
	ShardID        string
	RegexTimeout   time.Duration
	ReloadInterval time.Duration
	//MetricsAddr is where the prometheus endpoint listens; empty disables it
	MetricsAddr string
	LogLevel    logrus.Level
}

//LoadConfig reads configuration from the environment, loading a .env file first if one exists
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("Failed to load .env file due to error %v; continuing with system env vars", err)
	}

	token, err := getEnvRequired("DISCORD_BOT_TOKEN")
	if err != nil {
		return nil, err
	}

	regexTimeout, err := getDurationWithDefault("REGEX_TIMEOUT", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	reloadInterval, err := getDurationWithDefault("RELOAD_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	shardIndex, err := getIntWithDefault("SHARD_INDEX", 0)
	if err != nil {
		return nil, err
	}
	shardCount, err := getIntWithDefault("SHARD_COUNT", 1)
	if err != nil {
		return nil, err
	}
	if shardCount < 1 || shardIndex < 0 || shardIndex >= shardCount {
		return nil, fmt.Errorf("%vSHARD_INDEX must be between 0 and %vSHARD_COUNT-1, got index %d of %d", envPrefix, envPrefix, shardIndex, shardCount)
	}

	level, err := logrus.ParseLevel(getEnvWithDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid %vLOG_LEVEL: %w", envPrefix, err)
	}

	config := &AppConfig{
		Database: DatabaseConfig{
			Address: getEnvWithDefault("DB_ADDR", ""),
			Name:    getEnvWithDefault("DB_NAME", "hibiki"),
		},
		Discord: DiscordConfig{
			BotToken:   token,
			DevUID:     getEnvWithDefault("DISCORD_DEV_UID", ""),
			ShardIndex: shardIndex,
			ShardCount: shardCount,
		},
		DefaultPrefix:  getEnvWithDefault("DEFAULT_PREFIX", "!"),
		ShardID:        getEnvWithDefault("SHARD_ID", ulid.MustNew(ulid.Now(), rand.Reader).String()),
		RegexTimeout:   regexTimeout,
		ReloadInterval: reloadInterval,
		MetricsAddr:    getEnvWithDefault("METRICS_ADDR", ""),
		LogLevel:       level,
	}

	if config.Database.IsConfigured() {
		logrus.Infof("Using rethinkdb at %v (database %v)", config.Database.Address, config.Database.Name)
	} else {
		logrus.Warnf("%vDB_ADDR not set - triggers will be kept in memory and not shared with other shards", envPrefix)
	}
	if config.Database.IsConfigured() && shardCount == 1 {
		logrus.Warnf("%vSHARD_COUNT is 1 - run a single process per database, or guild trigger changes will not reach the others", envPrefix)
	}
	if config.Discord.DevUID == "" {
		logrus.Warnf("%vDISCORD_DEV_UID not set - global triggers cannot be managed", envPrefix)
	}

	return config, nil
}

func getEnvRequired(key string) (string, error) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("required environment variable %v%v is not set", envPrefix, key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(envPrefix + key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %v%v %q: %w", envPrefix, key, value, err)
	}
	return d, nil
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %v%v %q: %w", envPrefix, key, value, err)
	}
	return n, nil
}
