package pgvolume

import (
	"database/sql"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
)

// ConnParams are the connection settings, read from `PG_*` variables.
type ConnParams struct {
	Host     string `envconfig:"PG_HOST"     default:"localhost"`
	Port     string `envconfig:"PG_PORT"     default:"5432"`
	User     string `envconfig:"PG_USER"     default:"postgres"`
	Password string `envconfig:"PG_PASS"`
	DBName   string `envconfig:"PG_DB_NAME"  default:"postgres"`
	SSLMode  string `envconfig:"PG_SSL_MODE" default:"disable"`
}

func ConnParamsFromEnv() (*ConnParams, error) {
	var p ConnParams
	if err := envconfig.Process("", &p); err != nil {
		return nil, fmt.Errorf("reading postgres settings: %w", err)
	}
	return &p, nil
}

func (p *ConnParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

// OpenEnvPing opens a handle from the environment and pings it so that bad
// settings fail here rather than on the first block access.
func OpenEnvPing() (*sql.DB, error) {
	p, err := ConnParamsFromEnv()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", p.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf(
			"pinging postgres database `%s` at `%s:%s`: %w",
			p.DBName,
			p.Host,
			p.Port,
			err,
		)
	}
	return db, nil
}
