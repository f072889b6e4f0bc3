package config

import (
	"encoding/json"
	"os"

	"github.com/edulog/edulog/internal/flagx"
	"github.com/edulog/edulog/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	DatabaseDSN             string `json:"database_dsn"`
	TokenSweepSpec          string `json:"token_sweep_spec"`
	DeactivationSweepSpec   string `json:"deactivation_sweep_spec"`
	ExperimentInactiveDays  int    `json:"experiment_inactive_days"`
	ParticipantInactiveDays int    `json:"participant_inactive_days"`
	CourseInactiveDays      int    `json:"course_inactive_days"`
	SecretLength            int    `json:"secret_length"`
	S3RootUser              string `json:"s3_root_user"`
	S3RootPassword          string `json:"s3_root_password"`
	S3Bucket                string `json:"s3_bucket"`
	S3Region                string `json:"s3_region"`
	S3BaseEndpoint          string `json:"s3_base_endpoint"`

	PresignValidity timex.Duration `json:"presign_validity"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
//
// Zero values in the JSON file leave the corresponding Config field at its
// current (default) value.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.TokenSweepSpec != "" {
		config.TokenSweepSpec = c.TokenSweepSpec
	}
	if c.DeactivationSweepSpec != "" {
		config.DeactivationSweepSpec = c.DeactivationSweepSpec
	}
	if c.ExperimentInactiveDays > 0 {
		config.ExperimentInactiveDays = c.ExperimentInactiveDays
	}
	if c.ParticipantInactiveDays > 0 {
		config.ParticipantInactiveDays = c.ParticipantInactiveDays
	}
	if c.CourseInactiveDays > 0 {
		config.CourseInactiveDays = c.CourseInactiveDays
	}
	if c.SecretLength > 0 {
		config.SecretLength = c.SecretLength
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.PresignValidity.Duration > 0 {
		config.PresignValidity = c.PresignValidity.Duration
	}
}
