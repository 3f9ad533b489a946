// Package configs for work with configurations
package configs

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Conf for config yaml
type Conf struct {
	Server struct {
		Listen         string        `yaml:"listen"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxUploadSize  int64         `yaml:"max_upload_size"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Storage struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"storage"`
	CloudStorage struct {
		EndPointURL string `yaml:"endpoint_url"`
		Bucket      string `yaml:"bucket"`
		Region      string `yaml:"region"`
		Secure      bool   `yaml:"secure"`
		Secrets     struct {
			Key    string `yaml:"aws_key"`
			Secret string `yaml:"aws_secret"`
		} `yaml:"secrets"`
	} `yaml:"cloud_storage"`
	Events struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"events"`
}

// Storage backends
const (
	BackendBolt = "bolt"
	BackendS3   = "s3"
)

// Load config from file
func Load(fileName string) (res *Conf, err error) {
	res = &Conf{}
	data, err := os.ReadFile(fileName) // nolint
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, err
	}
	res.SetDefaults()
	return res, nil
}

// SetDefaults fills values missing in config file
func (c *Conf) SetDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8080"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.MaxUploadSize == 0 {
		c.Server.MaxUploadSize = 512 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "var/podcastapi.db"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendBolt
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "var/files.bdb"
	}
	if c.Storage.PublicURL == "" {
		c.Storage.PublicURL = "http://" + c.Server.Listen + "/files"
	}
	if c.Events.Timeout == 0 {
		c.Events.Timeout = 10 * time.Second
	}
}
