package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	yaml "gopkg.in/yaml.v3"
)

type ErrInvalidJob struct {
	msg string
}

func (e *ErrInvalidJob) Error() string {
	return e.msg
}

// Job is everything one sync run needs to know.
type Job struct {
	HostName string `yaml:"host_name" toml:"host-name"`
	Folder   string `yaml:"folder" toml:"folder"`

	Index        string `yaml:"index" toml:"index"`
	ErrorPage    string `yaml:"error_page" toml:"error-page"`
	BucketRegion string `yaml:"bucket_region" toml:"bucket-region"`

	Profile         string `yaml:"profile" toml:"profile"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access-key-id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret-access-key"`

	Repair         bool `yaml:"repair" toml:"repair"`
	AllowHidden    bool `yaml:"allow_hidden" toml:"allow-hidden"`
	NoCDN          bool `yaml:"no_cdn" toml:"no-cdn"`
	SkipWait       bool `yaml:"skip_wait" toml:"skip-wait"`
	TakeOverBucket bool `yaml:"take_over_bucket" toml:"take-over-bucket"`

	Workers               int      `yaml:"workers" toml:"workers"`
	InvalidationBatchSize int      `yaml:"invalidation_batch_size" toml:"invalidation-batch-size"`
	InvalidationRetry     Duration `yaml:"invalidation_retry" toml:"invalidation-retry"`
	PollInterval          Duration `yaml:"poll_interval" toml:"poll-interval"`
}

// Duration decodes "90s"-style strings from either file format.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns a job with every optional field at its default value.
func Default() *Job {
	return &Job{
		Index:                 "index.html",
		ErrorPage:             "4xx.html",
		BucketRegion:          "us-east-1",
		Workers:               4,
		InvalidationBatchSize: 3000,
		InvalidationRetry:     Duration{time.Minute},
		PollInterval:          Duration{15 * time.Second},
	}
}

// Load reads a job file over the defaults. TOML is used for files ending in
// .toml, YAML for anything else. A missing file is not an error.
func Load(path string) (*Job, error) {
	job := Default()
	if path == "" {
		return job, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return job, nil
		}
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, job)
	} else {
		err = yaml.Unmarshal(data, job)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return job, nil
}

// Normalize strips a URL scheme and trailing slash from the host name.
func (j *Job) Normalize() {
	host := strings.TrimSpace(j.HostName)
	for _, prefix := range []string{"http://", "https://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	j.HostName = strings.TrimSuffix(host, "/")
}

func (j *Job) Validate() error {
	if j.HostName == "" {
		return &ErrInvalidJob{msg: "a host name is required"}
	}
	if strings.Contains(j.HostName, "/") {
		return &ErrInvalidJob{msg: fmt.Sprintf("host name %q must not contain a path", j.HostName)}
	}
	if j.Folder == "" {
		return &ErrInvalidJob{msg: "a folder to sync is required"}
	}
	if j.Index == "" || strings.Contains(j.Index, "/") {
		return &ErrInvalidJob{msg: fmt.Sprintf("invalid index document name %q", j.Index)}
	}
	if j.Workers < 1 {
		return &ErrInvalidJob{msg: fmt.Sprintf("workers must be at least 1, got %d", j.Workers)}
	}
	if j.InvalidationBatchSize < 1 {
		return &ErrInvalidJob{msg: fmt.Sprintf("invalidation batch size must be at least 1, got %d", j.InvalidationBatchSize)}
	}
	if j.InvalidationRetry.Duration <= 0 || j.PollInterval.Duration <= 0 {
		return &ErrInvalidJob{msg: "wait intervals must be positive"}
	}
	return nil
}
