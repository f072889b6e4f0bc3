package config

import (
	"flag"
	"os"

	"github.com/edulog/edulog/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-t string   token sweep cron spec (e.g., "@every 10m")
//	-i string   deactivation sweep cron spec (e.g., "@every 24h")
//	-x int      experiment inactivity window, days
//	-n int      participant inactivity window, days
//	-o int      course inactivity window, days
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-t", "-i", "-x", "-n", "-o", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TokenSweepSpec, "t", config.TokenSweepSpec, "token sweep cron spec")
	fs.StringVar(&config.DeactivationSweepSpec, "i", config.DeactivationSweepSpec, "deactivation sweep cron spec")

	fs.IntVar(&config.ExperimentInactiveDays, "x", config.ExperimentInactiveDays, "experiment inactivity window (in days)")
	fs.IntVar(&config.ParticipantInactiveDays, "n", config.ParticipantInactiveDays, "participant inactivity window (in days)")
	fs.IntVar(&config.CourseInactiveDays, "o", config.CourseInactiveDays, "course inactivity window (in days)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
