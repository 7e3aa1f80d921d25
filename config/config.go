package config

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	AppSource   string `env:"APP_SOURCE" envDefault:"mailgrove"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"MAILGROVE_POSTGRES_HOST,required"`
	Port            string `env:"MAILGROVE_POSTGRES_PORT,required"`
	User            string `env:"MAILGROVE_POSTGRES_USER,required"`
	DBName          string `env:"MAILGROVE_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILGROVE_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILGROVE_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"MAILGROVE_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"MAILGROVE_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"MAILGROVE_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILGROVE_POSTGRES_SSL_MODE" envDefault:"require"`
}

type S3StorageConfig struct {
	Region                string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID           string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey       string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint              string `env:"AWS_S3_ENDPOINT"`
	EmailAttachmentBucket string `env:"BUCKET_NAME_EMAIL_ATTACHMENT" envDefault:"attachments"`
}

type ThreadingConfig struct {
	// SubjectMatchWindowDays bounds how far back the subject fallback
	// looks for a conversation to join.
	SubjectMatchWindowDays int `env:"SUBJECT_MATCH_WINDOW_DAYS" envDefault:"7"`
	PreviewMessageLimit    int `env:"PREVIEW_MESSAGE_LIMIT" envDefault:"3"`
	PreviewSnippetLength   int `env:"PREVIEW_SNIPPET_LENGTH" envDefault:"200"`
}

type SyncConfig struct {
	AccountsFile string `env:"MAIL_ACCOUNTS_FILE"`
	SendDomain   string `env:"MAIL_SEND_DOMAIN" envDefault:"mailgrove.local"`
}
