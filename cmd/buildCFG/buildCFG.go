package buildCFG

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"

	"campusconnect/internal/mailer"
)

type ServerConfig struct {
	Port         string
	Mode         string
	AllowOrigins []string
}

type MongoConfig struct {
	URI      string
	Database string
}

// Enabled is false when no URI is configured; the server then keeps its
// data in process memory.
func (c MongoConfig) Enabled() bool { return c.URI != "" }

type SessionConfig struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

func (c RabbitConfig) Enabled() bool { return c.Url != "" }

type UploadsConfig struct {
	Dir string
}

type AdminConfig struct {
	ID       string
	Password string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		log.Warn().Msg("server.port not set, using 5000")
		port = "5000"
	}
	mode := cfg.GetString("server.mode")
	if mode == "" {
		mode = "release"
	}
	return ServerConfig{
		Port:         port,
		Mode:         mode,
		AllowOrigins: splitList(cfg.GetString("server.allow_origins")),
	}
}

func BuildMongoConfig(cfg *config.Config, log *zerolog.Logger) MongoConfig {
	c := MongoConfig{
		URI:      cfg.GetString("mongo.uri"),
		Database: cfg.GetString("mongo.database"),
	}
	if c.Database == "" {
		c.Database = "campus_connect"
	}
	if !c.Enabled() {
		log.Warn().Msg("mongo.uri not set, data will not survive a restart")
	}
	return c
}

func BuildSessionConfig(cfg *config.Config, log *zerolog.Logger) (SessionConfig, error) {
	c := SessionConfig{
		CookieName: cfg.GetString("session.cookie"),
		Secret:     cfg.GetString("session.secret"),
		TTL:        24 * time.Hour,
	}
	if c.Secret == "" {
		return c, errors.New("session.secret is required")
	}
	if raw := cfg.GetString("session.ttl"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return c, errors.New("session.ttl: " + err.Error())
		}
		c.TTL = ttl
	}
	if raw := cfg.GetString("session.secure"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return c, errors.New("session.secure: " + err.Error())
		}
		c.Secure = secure
	}
	log.Info().Dur("ttl", c.TTL).Bool("secure", c.Secure).Msg("session config loaded")
	return c, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	c := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if !c.Enabled() {
		log.Info().Msg("rabbit.url not set, notifications are only logged")
		return c, nil
	}
	if c.Exchange == "" || c.Queue == "" {
		return c, errors.New("rabbit.exchange and rabbit.queue are required with rabbit.url")
	}
	return c, nil
}

func BuildMailerConfig(cfg *config.Config, log *zerolog.Logger) mailer.Config {
	c := mailer.Config{
		Host:     cfg.GetString("mailer.host"),
		Port:     cfg.GetString("mailer.port"),
		From:     cfg.GetString("mailer.from"),
		Password: cfg.GetString("mailer.password"),
		Inbox:    cfg.GetString("mailer.inbox"),
	}
	if c.Port == "" {
		c.Port = "587"
	}
	if !c.Enabled() {
		log.Info().Msg("mailer not configured, registration notices are skipped")
	}
	return c
}

func BuildUploadsConfig(cfg *config.Config) UploadsConfig {
	dir := cfg.GetString("uploads.dir")
	if dir == "" {
		dir = "uploads"
	}
	return UploadsConfig{Dir: dir}
}

func BuildAdminConfig(cfg *config.Config) AdminConfig {
	c := AdminConfig{
		ID:       cfg.GetString("admin.default_id"),
		Password: cfg.GetString("admin.default_password"),
	}
	if c.ID == "" {
		c.ID = "AD101"
	}
	if c.Password == "" {
		c.Password = "admin123"
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
