package config

import (
	"os"
	"strconv"
	"strings"

	"surveystat/internal/errors"
)

// Config represents the complete pipeline configuration
type Config struct {
	Input     InputConfig
	Schema    SchemaConfig
	Screening ScreeningConfig
	Testing   TestingConfig
	Output    OutputConfig
	Archive   ArchiveConfig
}

// InputConfig locates the survey export
type InputConfig struct {
	ExportFile string
}

// SchemaConfig names the columns of the wide export. Stimulus columns follow
// the convention "<index>_<FamilyLabel> <Field>".
type SchemaConfig struct {
	IDColumn        string
	ResponseIDCol   string
	StartedAtCol    string
	ProgressCol     string
	CategoryCol   string // free-text source of the secondary factor; optional
	CategoryLabel string // substring marking AI exposure
	// ConditionLabels names the column families, standard arm first, then the
	// ethics arm; any further labels are extra arms recognized during inference.
	ConditionLabels []string
	StimulusCount   int
	TendencyField   string
	DecisionField   string
	TextField       string
	ConfidenceField string
	MinIDLength     int
}

// ScreeningConfig holds quality-screening thresholds
type ScreeningConfig struct {
	MinComplete     int     // evaluations below this flag incomplete
	BiasRate        float64 // rejection rate at/above this (or its mirror) flags extreme bias
	MaxMeanTextLen  float64
	MinTextVariance float64
	MinTextsForVar  int
	ExtremeMeanBand float64 // distance from scale ends that counts as degenerate
	ApplyScreening  bool    // when false, review/exclude participants stay in the tests
}

// TestingConfig holds statistical-testing settings
type TestingConfig struct {
	Alpha           float64
	MinExpectedCell float64 // chi-square vs exact-test switch point
}

// OutputConfig locates the report directory
type OutputConfig struct {
	Dir string
}

// ArchiveConfig holds the optional Postgres results archive. Empty URL
// disables archiving entirely.
type ArchiveConfig struct {
	DatabaseURL string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Input: InputConfig{
			ExportFile: os.Getenv("EXPORT_FILE"),
		},
		Schema:    loadSchemaConfig(),
		Screening: loadScreeningConfig(),
		Testing: TestingConfig{
			Alpha:           getEnvFloatOrDefault("ALPHA", 0.05),
			MinExpectedCell: getEnvFloatOrDefault("MIN_EXPECTED_CELL", 5.0),
		},
		Output: OutputConfig{
			Dir: getEnvOrDefault("OUTPUT_DIR", "./out"),
		},
		Archive: ArchiveConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadSchemaConfig() SchemaConfig {
	labels := strings.Split(getEnvOrDefault("CONDITION_LABELS", "UEQ,UEEQ"), ",")
	for i := range labels {
		labels[i] = strings.TrimSpace(labels[i])
	}

	return SchemaConfig{
		IDColumn:        getEnvOrDefault("ID_COLUMN", "PROLIFIC_PID"),
		ResponseIDCol:   getEnvOrDefault("RESPONSE_ID_COLUMN", "ResponseId"),
		StartedAtCol:    getEnvOrDefault("STARTED_AT_COLUMN", "StartDate"),
		ProgressCol:     getEnvOrDefault("PROGRESS_COLUMN", "Progress"),
		CategoryCol:     getEnvOrDefault("CATEGORY_COLUMN", ""),
		CategoryLabel:   getEnvOrDefault("CATEGORY_LABEL", "AI-generated"),
		ConditionLabels: labels,
		StimulusCount:   getEnvIntOrDefault("STIMULUS_COUNT", 15),
		TendencyField:   getEnvOrDefault("TENDENCY_FIELD", "Tendency"),
		DecisionField:   getEnvOrDefault("DECISION_FIELD", "Release"),
		TextField:       getEnvOrDefault("TEXT_FIELD", "Explanation"),
		ConfidenceField: getEnvOrDefault("CONFIDENCE_FIELD", "Confidence"),
		MinIDLength:     getEnvIntOrDefault("MIN_ID_LENGTH", 20),
	}
}

func loadScreeningConfig() ScreeningConfig {
	return ScreeningConfig{
		MinComplete:     getEnvIntOrDefault("MIN_COMPLETE", 10),
		BiasRate:        getEnvFloatOrDefault("BIAS_RATE", 0.95),
		MaxMeanTextLen:  getEnvFloatOrDefault("MAX_MEAN_TEXT_LEN", 2000),
		MinTextVariance: getEnvFloatOrDefault("MIN_TEXT_VARIANCE", 1.0),
		MinTextsForVar:  getEnvIntOrDefault("MIN_TEXTS_FOR_VARIANCE", 5),
		ExtremeMeanBand: getEnvFloatOrDefault("EXTREME_MEAN_BAND", 0.5),
		ApplyScreening:  getEnvBoolOrDefault("APPLY_SCREENING", true),
	}
}

func validateConfig(config *Config) error {
	if config.Input.ExportFile == "" {
		return errors.ConfigInvalid("EXPORT_FILE is required")
	}
	if len(config.Schema.ConditionLabels) < 2 {
		return errors.ConfigInvalid("CONDITION_LABELS must name at least two condition families")
	}
	for _, label := range config.Schema.ConditionLabels {
		if label == "" {
			return errors.ConfigInvalid("condition labels cannot be empty")
		}
	}
	if config.Schema.StimulusCount < 1 {
		return errors.ConfigInvalid("STIMULUS_COUNT must be positive")
	}
	if config.Screening.MinComplete > config.Schema.StimulusCount {
		return errors.ConfigInvalid("MIN_COMPLETE cannot exceed STIMULUS_COUNT")
	}
	if config.Testing.Alpha <= 0 || config.Testing.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0,1)")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
