// Package config loads and validates the application configuration and the
// journey definition files.
//
// Configuration is YAML with struct-tag validation. A small set of
// environment variables (SKYSCANNER_API_KEY, SKYSCANNER_LOG_LEVEL) override
// the file so secrets can stay out of it. Journey files can additionally be
// watched for changes with a debounced fsnotify watcher.
package config
