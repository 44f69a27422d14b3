package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultSourceURL = "http://prod2.publicdata.landregistry.gov.uk.s3-website-eu-west-1.amazonaws.com/pp-monthly-update.txt"

// Config holds all application configuration loaded from an optional YAML file
// and environment variables.
type Config struct {
	SourceURL   string `yaml:"source_url"`
	RawPath     string `yaml:"raw_path"`
	TabularPath string `yaml:"tabular_path"`
	CleanedPath string `yaml:"cleaned_path"`
	SaveCleaned bool   `yaml:"save_cleaned"`
	ReportDir   string `yaml:"report_dir"`

	BatchSize       int    `yaml:"batch_size"`
	ChunkSize       int    `yaml:"chunk_size"`
	RawEncoding     string `yaml:"raw_encoding"`
	OverwriteOutput bool   `yaml:"overwrite_output"`
	DBInsertion     bool   `yaml:"db_insertion"`
	GenerateReports bool   `yaml:"generate_reports"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		SourceURL:   defaultSourceURL,
		RawPath:     "./data/pp-monthly-update.txt",
		TabularPath: "./data/property_transactions_pp-monthly-update.csv",
		CleanedPath: "./data/cleaned_property_transactions_pp-monthly-update.csv",
		SaveCleaned: true,
		ReportDir:   "./output",

		BatchSize:       50000,
		ChunkSize:       8192,
		RawEncoding:     "utf-8",
		OverwriteOutput: true,
		DBInsertion:     true,
		GenerateReports: true,

		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "hm_land",
		PostgresPassword: "",
		PostgresDB:       "price_paid_data",
		PostgresSSLMode:  "disable",

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads the .env file, applies the YAML file at path (if any) and finally
// the environment. The result is not validated: callers apply their own
// overrides first and then call Validate.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Defaults()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.SourceURL = getEnv("SOURCE_URL", c.SourceURL)
	c.RawPath = getEnv("RAW_PATH", c.RawPath)
	c.TabularPath = getEnv("TABULAR_PATH", c.TabularPath)
	c.CleanedPath = getEnv("CLEANED_PATH", c.CleanedPath)
	c.SaveCleaned = getEnvBool("SAVE_CLEANED", c.SaveCleaned)
	c.ReportDir = getEnv("REPORT_DIR", c.ReportDir)

	c.BatchSize = getEnvInt("BATCH_SIZE", c.BatchSize)
	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.RawEncoding = getEnv("RAW_ENCODING", c.RawEncoding)
	c.OverwriteOutput = getEnvBool("OVERWRITE_OUTPUT", c.OverwriteOutput)
	c.DBInsertion = getEnvBool("DB_INSERTION", c.DBInsertion)
	c.GenerateReports = getEnvBool("GENERATE_REPORTS", c.GenerateReports)

	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate reports every setting that would make a run impossible.
func (c *Config) Validate() error {
	var errs []error
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if strings.TrimSpace(c.RawPath) == "" {
		errs = append(errs, errors.New("raw path is empty"))
	}
	if strings.TrimSpace(c.TabularPath) == "" {
		errs = append(errs, errors.New("tabular path is empty"))
	}
	if c.SaveCleaned && strings.TrimSpace(c.CleanedPath) == "" {
		errs = append(errs, errors.New("cleaned path is empty but save_cleaned is set"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string. Every value is quoted so
// empty values and values with spaces survive the key=value parser.
func (c *Config) DSN() string {
	pairs := []struct{ key, val string }{
		{"host", c.PostgresHost},
		{"port", c.PostgresPort},
		{"user", c.PostgresUser},
		{"password", c.PostgresPassword},
		{"dbname", c.PostgresDB},
		{"sslmode", c.PostgresSSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.key+"="+dsnQuote(p.val))
	}
	return strings.Join(parts, " ")
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func dsnQuote(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
