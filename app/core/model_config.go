package core

// swagger:model
type Configuration struct {
	Database   ConfigurationDatabase   `json:"database" mapstructure:"database"`
	Server     ConfigurationServer     `json:"server" mapstructure:"server"`
	MailServer ConfigurationMailServer `json:"mail_server" mapstructure:"mail_server"`
	Auth       ConfigurationAuth       `json:"auth" mapstructure:"auth"`
	Sessions   ConfigurationSessions   `json:"sessions" mapstructure:"sessions"`
	Labs       []ConfigurationLab      `json:"labs" mapstructure:"labs"`
	Catalog    ConfigurationCatalog    `json:"catalog" mapstructure:"catalog"`
	Logging    ConfigurationLogging    `json:"logging" mapstructure:"logging"`
}

// swagger:model
type ConfigurationDatabase struct {
	Dialect       string `json:"dialect" mapstructure:"dialect"` // mysql, postgres, sqlite3
	Host          string `json:"host" mapstructure:"host"`
	Database      string `json:"database" mapstructure:"database"`
	User          string `json:"user" mapstructure:"user"`
	Password      string `json:"password" mapstructure:"password"`
	Port          int    `json:"port" mapstructure:"port"`
	SSLMode       string `json:"ssl_mode" mapstructure:"ssl_mode"`
	DoAutoMigrate bool   `json:"do_auto_migrate" mapstructure:"do_auto_migrate"`
	Debug         bool   `json:"debug" mapstructure:"debug"`
}

// swagger:model
type ConfigurationServer struct {
	Hostname        string `json:"hostname" mapstructure:"hostname"`
	InternalPort    int    `json:"internal_port" mapstructure:"internal_port"`
	WithSSL         bool   `json:"with_ssl" mapstructure:"with_ssl"`
	SSLCertFile     string `json:"ssl_cert_file" mapstructure:"ssl_cert_file"`
	SSLKeyFile      string `json:"ssl_key_file" mapstructure:"ssl_key_file"`
	TableConfigPath string `json:"table_config_path" mapstructure:"table_config_path"`
	DeliverFrontEnd bool   `json:"deliver_front_end" mapstructure:"deliver_front_end"`
	FrontEndPath    string `json:"front_end_path" mapstructure:"front_end_path"`
	TmpPath         string `json:"tmp_path" mapstructure:"tmp_path"`
	PdfFontPath     string `json:"pdf_font_path" mapstructure:"pdf_font_path"`
	GeocoderUrl     string `json:"geocoder_url" mapstructure:"geocoder_url"`
	Timezone        string `json:"timezone" mapstructure:"timezone"`
}

// swagger:model
type ConfigurationMailServer struct {
	SmtpHost           string `json:"smtp_host" mapstructure:"smtp_host"`
	SmtpPort           int    `json:"smtp_port" mapstructure:"smtp_port"`
	SmtpUsername       string `json:"smtp_username" mapstructure:"smtp_username"`
	SmtpPassword       string `json:"smtp_password" mapstructure:"smtp_password"`
	From               string `json:"from" mapstructure:"from"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

type ConfigurationAuth struct {
	JWTSecret        string   `json:"jwt_secret" mapstructure:"jwt_secret"`
	JWTIssuer        string   `json:"jwt_issuer" mapstructure:"jwt_issuer"`
	SuperAdminEmails []string `json:"super_admin_emails" mapstructure:"super_admin_emails"`
	SessionTTLHours  int      `json:"session_ttl_hours" mapstructure:"session_ttl_hours"`
}

type ConfigurationSessions struct {
	Backend       string `json:"backend" mapstructure:"backend"` // memory or redis
	RedisAddr     string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" mapstructure:"redis_db"`
}

type ConfigurationLab struct {
	Name         string   `json:"name" mapstructure:"name"`
	NotifyEmails []string `json:"notify_emails" mapstructure:"notify_emails"`
}

type ConfigurationCatalog struct {
	Path       string `json:"path" mapstructure:"path"`
	CitiesFile string `json:"cities_file" mapstructure:"cities_file"`
}

type ConfigurationLogging struct {
	Level       string `json:"level" mapstructure:"level"`
	Development bool   `json:"development" mapstructure:"development"`
}

// LabNotifyEmails returns the addresses to notify about new samples for the given lab.
func (c Configuration) LabNotifyEmails(lab string) []string {
	for _, l := range c.Labs {
		if l.Name == lab {
			return l.NotifyEmails
		}
	}
	return nil
}
