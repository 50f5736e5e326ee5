// Package env reads the platform variables that sit outside the DROPPOINT_ config namespace.
package env

import "os"

// Get returns the value of key or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// ListenAddr prefers the platform-assigned PORT over the configured one.
func ListenAddr(configuredPort string) string {
	return ":" + Get("PORT", configuredPort)
}

// InstanceID names this dyno/replica in logs and lock keys.
func InstanceID() string {
	return Get("DYNO", "local")
}
