// Package config holds the config-driven construction parameters used
// to build an engine.Engine: a struct populated from JSON (or defaults)
// at process start and passed by value to engine.New, keeping
// configuration and the domain objects it configures as separate types.
package config
