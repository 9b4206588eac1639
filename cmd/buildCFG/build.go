package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Password string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) *ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return &ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	host := cfg.GetString("database.host")
	port := cfg.GetString("database.port")
	user := cfg.GetString("database.user")
	pass := cfg.GetString("database.password")
	name := cfg.GetString("database.name")
	sslmode := cfg.GetString("database.sslmode")

	if host == "" || port == "" || user == "" || name == "" {
		return "", nil, nil, fmt.Errorf("incomplete database configuration")
	}
	if sslmode == "" {
		sslmode = "disable"
	}

	masterDSN := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, pass, host, port, name, sslmode)

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: time.Duration(cfg.GetInt("database.conn_max_lifetime_sec")) * time.Second,
	}

	log.Info().Str("host", host).Str("db", name).Msg("database configuration loaded")
	return masterDSN, nil, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (*RabbitConfig, error) {
	url := cfg.GetString("rabbitmq.url")
	if url == "" {
		return nil, fmt.Errorf("rabbitmq.url is not set")
	}

	exchange := cfg.GetString("rabbitmq.exchange")
	if exchange == "" {
		exchange = "notifications"
	}
	queue := cfg.GetString("rabbitmq.queue")
	if queue == "" {
		queue = "notification_emails"
	}

	log.Info().Str("exchange", exchange).Str("queue", queue).Msg("rabbitmq configuration loaded")
	return &RabbitConfig{Url: url, Exchange: exchange, Queue: queue}, nil
}

func BuildSMTPConfig(cfg *config.Config) *SMTPConfig {
	return &SMTPConfig{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetString("smtp.port"),
		From:     cfg.GetString("smtp.from"),
		Password: cfg.GetString("smtp.password"),
	}
}

// TicketSecret signs QR payloads; startup fails without it so tickets can
// never be minted unsigned.
func TicketSecret(cfg *config.Config) (string, error) {
	secret := cfg.GetString("ticket.secret")
	if secret == "" {
		return "", fmt.Errorf("ticket.secret is not set")
	}
	return secret, nil
}

func InstitutionDomain(cfg *config.Config) string {
	return cfg.GetString("institution.email_domain")
}
