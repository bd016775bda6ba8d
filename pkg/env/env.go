package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// InstanceID names the running process in logs. DYNO is set on Heroku.
func InstanceID() string {
	return Get("TASKRENT_INSTANCE_ID", Get("DYNO", "local"))
}
