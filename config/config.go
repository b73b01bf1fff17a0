package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

// Set overrides a key for the lifetime of the process. Env-style keys win over file keys.
func (c *Config) Set(key string, value any) {
	c.config.Set(key, value)
}

func (c *Config) GetEnv() string {
	if env := os.Getenv(keyEnv); len(env) > 0 {
		return env
	}
	return envLocal
}

func (c *Config) GetPort() string {
	return c.getString("PORT", "server.port", "8080")
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "server.log_level", "info")
}

func (c *Config) GetStoreBackend() string {
	return strings.ToLower(c.getString("STORE_BACKEND", "database.backend", "bolt"))
}

func (c *Config) GetBoltPath() string {
	return c.getString("BOLT_PATH", "database.bolt_path", "./.data/bioagents.db")
}

func (c *Config) GetIndexPath() string {
	return c.getString("INDEX_PATH", "database.index_path", "search.bleve")
}

func (c *Config) GetStoragePath() string {
	return c.getString("STORAGE_PATH", "database.storage_path", "./.data")
}

func (c *Config) GetModelProvider() string {
	return strings.ToLower(c.getString("MODEL_PROVIDER", "model.provider", "gemini"))
}

func (c *Config) GetGeminiAPIKey() string {
	if key := c.getString("GEMINI_API_KEY", "model.gemini.api_key", ""); len(key) > 0 {
		return key
	}
	return c.config.GetString("GOOGLE_API_KEY")
}

func (c *Config) GetGeminiModel() string {
	return c.getString("GEMINI_MODEL", "model.gemini.model", "gemini-2.0-flash")
}

func (c *Config) GetGeminiVisionModel() string {
	return c.getString("GEMINI_VISION_MODEL", "model.gemini.vision_model", c.GetGeminiModel())
}

func (c *Config) GetOpenAIAPIKey() string {
	return c.getString("OPENAI_API_KEY", "model.openai.api_key", "")
}

func (c *Config) GetOpenAIModel() string {
	return c.getString("OPENAI_MODEL", "model.openai.model", "gpt-4o-mini")
}

func (c *Config) GetOpenAIBaseURL() string {
	return c.getString("OPENAI_BASE_URL", "model.openai.base_url", "")
}

func (c *Config) GetRoleplayModel() string {
	return c.getString("ROLEPLAY_MODEL", "model.roleplay_model", "")
}

func (c *Config) GetCloudProjectID() string {
	return c.getString("GOOGLE_CLOUD_PROJECT", "cloud.project_id", "")
}

func (c *Config) GetServiceAccountJSON() string {
	return c.getString("GOOGLE_SERVICE_ACCOUNT_JSON", "cloud.service_account_json", "")
}

func (c *Config) GetClientEmail() string {
	return c.getString("GOOGLE_CLIENT_EMAIL", "cloud.client_email", "")
}

func (c *Config) GetPrivateKey() string {
	return c.getString("GOOGLE_PRIVATE_KEY", "cloud.private_key", "")
}

func (c *Config) GetCredentialsFile() string {
	return c.getString("GOOGLE_APPLICATION_CREDENTIALS", "cloud.credentials_file", "")
}

// GetAdminEmails returns the lower-cased admin allowlist.
func (c *Config) GetAdminEmails() []string {
	raw := c.getString("ADMIN_EMAILS", "admin.emails", "")
	emails := []string{}
	for _, email := range strings.Split(raw, ",") {
		email = strings.ToLower(strings.TrimSpace(email))
		if len(email) > 0 {
			emails = append(emails, email)
		}
	}
	return emails
}

func (c *Config) GetSearchBackend() string {
	return strings.ToLower(c.getString("SEARCH_BACKEND", "search.backend", "discovery"))
}

func (c *Config) GetSearchServingConfig() string {
	return c.getString("SEARCH_SERVING_CONFIG", "search.serving_config", "")
}

func (c *Config) GetSearchEndpoint() string {
	return c.getString("SEARCH_ENDPOINT", "search.endpoint", "https://discoveryengine.googleapis.com")
}

// GetSearchSeedDir is a directory of site content indexed into the local search backend at startup.
func (c *Config) GetSearchSeedDir() string {
	return c.getString("SEARCH_SEED_DIR", "search.seed_dir", "")
}

func (c *Config) GetDocumentAIProcessor() string {
	return c.getString("DOCUMENT_AI_PROCESSOR", "documents.processor", "")
}

func (c *Config) GetDocumentAILocation() string {
	return c.getString("DOCUMENT_AI_LOCATION", "documents.location", "us")
}

func (c *Config) getString(envKey string, fileKey string, defaultValue string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}
	if len(value) == 0 {
		value = defaultValue
	}

	return value
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
