package storage

import "errors"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Object    string
}

// Validate reports missing connection settings.
func (c *MinIOConfig) Validate() error {
	if c == nil || c.Endpoint == "" {
		return errors.New("minio endpoint missing")
	}
	if c.Bucket == "" {
		return errors.New("minio bucket missing")
	}
	return nil
}
