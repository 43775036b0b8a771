package cli

import (
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load()
}

// resolveAPIKey picks the API key for a provider from the environment.
func resolveAPIKey(provider string) string {
	switch provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}
