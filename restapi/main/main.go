package main

import (
	"context"
	"os"
	"time"

	"github.com/sharedcode/xa"
	"github.com/sharedcode/xa/mysql"
	"github.com/sharedcode/xa/participant"
	"github.com/sharedcode/xa/redis"
	"github.com/sharedcode/xa/restapi"
)

// Sample REST Api server hosting the transaction admin endpoints.
// Expects a MySQL DSN in XA_MYSQL_DSN and (optionally) a Redis host in XA_REDIS_HOST.
func main() {
	xa.ConfigureLogging()

	ctx := context.Background()

	mc := mysql.Config{
		DSN:             os.Getenv("XA_MYSQL_DSN"),
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
	}
	conn, err := mysql.OpenConnection(mc)
	if err != nil {
		panic(err)
	}
	defer mysql.CloseConnection()

	pool := mysql.NewPool(conn)
	dialect := mysql.NewDialect()

	var p participant.Participant
	if host := os.Getenv("XA_REDIS_HOST"); host != "" {
		if _, err := redis.OpenConnection(redis.Options{
			Address: host,
		}); err != nil {
			panic(err)
		}
		defer redis.CloseConnection()
		cache := redis.NewClient()
		if err := cache.Ping(ctx); err != nil {
			panic(err)
		}
		p = participant.NewParticipantWithCache(pool, dialect, cache)
	} else {
		p = participant.NewParticipant(pool, dialect)
	}

	restapi.Main(p)
}
