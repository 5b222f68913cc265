// Package file loads pipeline configuration from a TOML file.
//
// Values resolve in three layers: built-in defaults, then the config
// file, then VECSYNC_* environment variables. Secrets never live in
// the file; the embedding API key is read from the environment
// variable the file names.
package file
