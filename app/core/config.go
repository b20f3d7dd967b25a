package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var Config Configuration

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("database.dialect", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.database", "onlab")
	v.SetDefault("database.user", "onlab")
	v.SetDefault("database.password", "")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.do_auto_migrate", true)
	v.SetDefault("database.debug", false)

	v.SetDefault("server.hostname", "")
	v.SetDefault("server.internal_port", 8080)
	v.SetDefault("server.with_ssl", false)
	v.SetDefault("server.ssl_cert_file", "")
	v.SetDefault("server.ssl_key_file", "")
	v.SetDefault("server.table_config_path", "./config/tableconfig")
	v.SetDefault("server.deliver_front_end", false)
	v.SetDefault("server.front_end_path", "./dist")
	v.SetDefault("server.tmp_path", "./tmp")
	v.SetDefault("server.pdf_font_path", "")
	v.SetDefault("server.geocoder_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("server.timezone", "Asia/Jerusalem")

	v.SetDefault("mail_server.smtp_host", "")
	v.SetDefault("mail_server.smtp_port", 587)
	v.SetDefault("mail_server.smtp_username", "")
	v.SetDefault("mail_server.smtp_password", "")
	v.SetDefault("mail_server.from", "noreply@on-lab-il.org")
	v.SetDefault("mail_server.insecure_skip_verify", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.super_admin_emails", []string{})
	v.SetDefault("auth.session_ttl_hours", 24*14)

	v.SetDefault("sessions.backend", "memory")
	v.SetDefault("sessions.redis_addr", "localhost:6379")
	v.SetDefault("sessions.redis_password", "")
	v.SetDefault("sessions.redis_db", 0)

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.cities_file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// LoadConfig reads the config file (json or yaml) and applies environment
// overrides such as DATABASE_HOST or SERVER_INTERNAL_PORT.
// A missing config file is not an error.
func LoadConfig(configFile string) (Configuration, error) {
	v := viper.New()
	setConfigDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/onlab")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Configuration{}, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	cfg := Configuration{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("decoding config: %w", err)
	}

	for i, email := range cfg.Auth.SuperAdminEmails {
		cfg.Auth.SuperAdminEmails[i] = NormalizeEmail(email)
	}

	return cfg, nil
}
