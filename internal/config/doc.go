// Package config defines controller settings and the speed table loader.
//
// Settings are read from an optional YAML file and validated with defaults
// filled in. The speed table is a JSON or YAML mapping of temperature to fan
// speed percent; any failure to read it is reported as fan.ErrConfig.
package config
