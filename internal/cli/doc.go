// Package cli parses the gridlink command line. Flags, an optional
// gridlink.yaml and GRIDLINK_* environment variables are merged with viper;
// flags win over the environment, which wins over the file.
package cli
