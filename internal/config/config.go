package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr               string
	EditorPassword     string
	EditorPasswordHash string
	SessionTTL         time.Duration
	// Storage
	DatabaseURL string
	SiteTable   string
	SiteRowID   string
	DataFile    string
	PublicDir   string
	HistoryDir  string
	CORSOrigin  string
	// Redis Configuration
	RedisURL string
	// Meilisearch Configuration
	MeiliURL       string
	MeiliMasterKey string
	// MinIO Configuration - asset uploads disabled if not configured
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:               getenv("API_ADDR", ":3000"),
		EditorPassword:     getenv("EDITOR_PASSWORD", "55"),
		EditorPasswordHash: getenv("EDITOR_PASSWORD_HASH", ""),
		SessionTTL:         time.Duration(getenvInt("EDITOR_SESSION_TTL_SECONDS", 3600)) * time.Second,
		DatabaseURL:        getenv("DATABASE_URL", ""),
		SiteTable:          getenv("SITE_TABLE", "site_data"),
		SiteRowID:          getenv("SITE_ROW_ID", "main"),
		DataFile:           getenv("DATA_FILE", "./data/site.json"),
		PublicDir:          getenv("PUBLIC_DIR", "./public"),
		HistoryDir:         getenv("HISTORY_DIR", "./data/history"),
		CORSOrigin:         getenv("CORS_ORIGIN", "*"),
		// Redis - empty by default, sessions fall back to in-memory storage
		RedisURL:       getenv("REDIS_URL", ""),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "ecosupply-assets"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
