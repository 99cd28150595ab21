package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the server reads from the
// environment. A .env file is honored when present so local runs do not
// need exported variables.
type Config struct {
	Port         string
	MongoURI     string
	DatabaseName string
	JWTSecret    string

	AllowedOrigins []string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string

	CloudinaryURL string
}

func Load() (*Config, error) {
	// Missing .env is fine; env vars may already be exported.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		DatabaseName:    getEnv("MONGODB_DATABASE", "shifted"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		PushSubscriber:  getEnv("PUSH_SUBSCRIBER", "mailto:admin@shifted.app"),
		CloudinaryURL:   os.Getenv("CLOUDINARY_URL"),
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		},
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitComma(origins)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
