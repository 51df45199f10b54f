// internal/config/database.go
package config

import (
	"fmt"
	"net"
)

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// UseS3 reports whether S3 credentials are configured; otherwise uploads go to LocalDir.
func (a *AWSConfig) UseS3() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != ""
}
