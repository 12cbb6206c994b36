// Package config provides configuration management for the risk monitor.
// This file centralizes the default ports of the service and its dependencies.
package config

// Service ports
const (
	// APIServerPort is the port for the REST API server.
	APIServerPort = 8080

	// MetricsPort is the port the Prometheus metrics endpoint listens on.
	MetricsPort = 9100
)

// Infrastructure service ports
const (
	// PostgresPort is the default port for PostgreSQL.
	PostgresPort = 5432

	// RedisPort is the default port for Redis.
	RedisPort = 6379

	// NATSPort is the default port for NATS messaging.
	NATSPort = 4222
)

// ServicePorts maps service names to their default ports. Useful for health
// checks and for detecting collisions in a config.
var ServicePorts = map[string]int{
	"api":      APIServerPort,
	"metrics":  MetricsPort,
	"postgres": PostgresPort,
	"redis":    RedisPort,
	"nats":     NATSPort,
}

// GetServicePort returns the default port for a service name.
// Returns 0 if the service is not known.
func GetServicePort(service string) int {
	if port, ok := ServicePorts[service]; ok {
		return port
	}
	return 0
}
