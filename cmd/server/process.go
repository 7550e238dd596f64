package main

import (
	"os"
	"strconv"
)

// getProcessInfo returns process details for the startup log
func getProcessInfo() map[string]interface{} {
	return map[string]interface{}{
		"pid":      os.Getpid(),
		"hostname": getHostname(),
		"args":     os.Args,
	}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// getPort lets a platform-assigned PORT override the configured admin port
func getPort(configured int) int {
	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port <= 65535 {
			return port
		}
	}
	return configured
}
