package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "grove"
	Version            = "v0.3.0"
	DefaultConfigDir   = "~/.config/grove"
	DefaultConfigPath  = "~/.config/grove/config.toml"
	DefaultStorePath   = "~/.config/grove/grove.db"
	DefaultKeyringUser = "database-connection"
	S3KeyringUser      = "s3-secret-access-key"
	GuestIDFileName    = "guest_id"
	SessionDirName     = "sessions"

	// Environment overrides
	EnvDBConnection   = "GROVE_DB_CONNECTION"
	EnvConfigDir      = "GROVE_CONFIG_DIR"
	EnvTestPostgres   = "GROVE_TEST_POSTGRES"
	EnvTestMongo      = "GROVE_TEST_MONGO"
	HeaderUserID      = "X-Grove-User"
	HeaderGuestID     = "X-Grove-Guest"
	DefaultServerAddr = "127.0.0.1:8484"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// MonthFormat is used by the calendar (YYYY-MM)
	MonthFormat = "2006-01"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "grove-"
	BackupFileSuffix = ".db"

	// Storage timeouts
	PersistTimeout = 5 * time.Second
	ConnectTimeout = 10 * time.Second

	// Server engine registry
	DefaultEngineCacheSize = 128
)

// Session States
const (
	StateToday SessionState = iota
	StateQuests
	StateGarden
	StateCalendar
	StateAddHabit
	StatePlant
)
