// Package cli provides command-line interface setup and configuration
// for the bulkimagen application. It handles flag parsing, command
// creation, API key resolution and configuration management using cobra
// and viper.
package cli
