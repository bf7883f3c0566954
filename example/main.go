package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	braumchat "github.com/braumchat/braumchat"
	"github.com/braumchat/braumchat/logger"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	dsn := env("BRAUMCHAT_DSN", "root:root@tcp(127.0.0.1:3306)/braumchat?charset=utf8mb4&parseTime=True&loc=Local")
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Errorf("open mysql: %v", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: env("BRAUMCHAT_REDIS", "127.0.0.1:6379"),
	})

	engine := braumchat.NewEngine(
		braumchat.WithDB(db),
		braumchat.WithRDB(rdb),
		braumchat.WithJWTSecret(env("BRAUMCHAT_JWT_SECRET", "change-me-in-prod")),
		braumchat.WithTokenTTLs(15*time.Minute, 7*24*time.Hour),
		braumchat.WithPresenceTiming(90*time.Second, 30*time.Second),
		braumchat.WithAutoMigrate(true),
	)

	r := gin.Default()
	engine.RegisterRoutes(r.Group("/api/v1"))

	addr := env("BRAUMCHAT_ADDR", ":8080")
	logger.Infof("listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}
