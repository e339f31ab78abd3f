package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"

	"sagechat-backend/internal/database"
	"sagechat-backend/internal/directory"
	"sagechat-backend/internal/feed"
	"sagechat-backend/internal/handlers"
	"sagechat-backend/internal/hub"
	"sagechat-backend/internal/jwt"
	"sagechat-backend/internal/keyValue"
	"sagechat-backend/internal/membership"
	"sagechat-backend/internal/models"
	"sagechat-backend/internal/snowflake"
	"sagechat-backend/internal/store"
	"sagechat-backend/internal/subs"
)

func setupLogger(cfg *models.ConfigFile) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}
	if cfg.LogToFile {
		config.OutputPaths = append(config.OutputPaths, "app.log")
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func readConfigFile() (models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupRedis(cfg *models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDatabase,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func main() {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(&cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	db, err := database.Setup(&cfg)
	if err != nil {
		sugar.Fatal(err)
	}

	var broker feed.Broker
	var redisClient *redis.Client

	if cfg.SelfContained {
		broker = feed.NewLocalBroker(sugar)
	} else {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(&cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		broker = feed.NewRedisBroker(sugar, redisClient)
	}

	err = snowflake.Setup(cfg.SnowflakeWorkerID)
	if err != nil {
		sugar.Fatal(err)
	}

	isHttps := (cfg.TlsCert != "" && cfg.TlsKey != "")
	tokens := jwt.New(cfg.JwtSecret, isHttps)

	kv := keyValue.New(sugar, redisClient, cfg.SelfContained)
	documentStore := store.NewSQL(sugar, db, broker)
	policy := membership.NewPolicy(sugar, documentStore)

	// the server keeps its own directory read model current via the feed,
	// same as any client would
	dir := directory.New(sugar, documentStore)
	dir.Refresh(context.Background())

	serverSubs := subs.NewManager(sugar)
	err = serverSubs.Subscribe(subs.ChannelListKey, func() (*feed.Handle, error) {
		return broker.Subscribe(feed.ChannelTopic(), dir.Apply)
	})
	if err != nil {
		sugar.Fatal(err)
	}

	feedHub := hub.NewHub(sugar, broker)

	api := handlers.NewAPI(sugar, documentStore, policy, dir, feedHub, kv, tokens, isHttps)

	fmt.Printf("Server is running on %s:%s\n", cfg.Address, cfg.Port)

	err = api.Setup(&cfg)
	if err != nil {
		sugar.Fatal(err)
	}
}
