// Package config provides the configuration of campus-fetch: the campus
// and its credentials, the courses to synchronize, and the output, crawl
// and report settings. Values come from a YAML file, the environment and
// CLI flags.
package config
