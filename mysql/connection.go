package mysql

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config contains configuration for connecting to a MySQL-compatible resource manager.
type Config struct {
	// DSN is the driver connection string, e.g. "user:pass@tcp(localhost:3306)/mydb".
	DSN string
	// MaxOpenConns caps the pool size. Each in-flight transaction branch holds one
	// connection exclusively, so this bounds the number of concurrent branches.
	MaxOpenConns int
	// MaxIdleConns is the number of idle connections retained by the pool.
	MaxIdleConns int
	// ConnMaxLifetime recycles connections older than this.
	ConnMaxLifetime time.Duration
	// AcquireTimeout bounds how long an Acquire waits for a free connection.
	// Zero means wait as long as the caller's context allows.
	AcquireTimeout time.Duration
}

// Connection wraps the database handle and the Config used to open it.
type Connection struct {
	DB *sql.DB
	Config
}

var connection *Connection
var mux sync.Mutex

// IsConnectionInstantiated reports whether a global Connection has been created.
func IsConnectionInstantiated() bool {
	return connection != nil
}

// OpenConnection returns the existing global Connection or opens a new one using the provided config.
func OpenConnection(config Config) (*Connection, error) {
	if connection != nil {
		return connection, nil
	}
	mux.Lock()
	defer mux.Unlock()

	if connection != nil {
		return connection, nil
	}
	if config.MaxOpenConns <= 0 {
		// default pool size
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = config.MaxOpenConns
	}
	db, err := sql.Open("mysql", config.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	var c = Connection{
		Config: config,
	}
	c.DB = db
	connection = &c
	return connection, nil
}

// CloseConnection closes and clears the global connection, if it exists.
func CloseConnection() {
	if connection != nil {
		mux.Lock()
		defer mux.Unlock()
		if connection == nil {
			return
		}
		connection.DB.Close()
		connection = nil
	}
}
