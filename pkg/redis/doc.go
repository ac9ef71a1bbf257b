// Package redis connects to the Redis server that backs the redis session
// storage (session.RedisStorage).
//
//	client, err := redis.Connect(ctx, redis.Config{
//	    ConnectionURL: "redis://localhost:6379/0",
//	    RetryAttempts: 3,
//	    RetryInterval: 2 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	storage := session.NewRedisStorage(client, "authclient:session:", 0)
//
// Healthcheck returns the probe behind authclient.Client.Healthy and the
// storage_healthy field of the CLI status command. Errors wrap the go-redis
// cause with errors.Join.
package redis
