package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Mail account sweep, every two minutes
	CronScheduleEmailSync string `env:"CRON_SCHEDULE_EMAIL_SYNC" envDefault:"0 */2 * * * *"`
}
