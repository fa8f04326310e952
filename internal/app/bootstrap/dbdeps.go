// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil unless fanout_backend is "redis".
	Redis *redis.Client

	// Runtime is allocated by ConnectDB and filled in by Startup.
	Runtime *Runtime
}
