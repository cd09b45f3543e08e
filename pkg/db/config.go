package db

// Config carries the DSN ingredients Dialect needs. Pool sizing stays with
// the application config; only connection identity lives here.
type Config struct {
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}
