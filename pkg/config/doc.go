// Package config provides the string-keyed configuration sources the
// provider resolver reads from: the process environment, static maps,
// YAML files and viper-managed command-line flags.
package config
