// Package config loads the application configuration from a YAML file
// and the environment.
//
// Resolution order: config.yml (if found), then automatic environment
// variables, then an optional .env file. Environment variables win over
// file values. Sub-package Config structs declare their own defaults and
// validation; Load applies them after unmarshalling.
package config
