/*
Package config loads registry configuration from YAML or JSON.

# Overview

Config wraps a map[string]any and provides typed accessor methods that return
a default value when a key is missing or has the wrong type. Settings is the
registry-specific view built on top of it.

# Basic Usage

	settings, err := config.LoadSettings("singleton.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	reg := singleton.New(singleton.OptionsFromSettings(settings)...)

A settings file looks like:

	sweep_interval: 30s     # 0 disables periodic sweeping
	dispose_on_clear: true
	metrics: true
	tracing: false
	log_level: info         # debug|info|warn|error
	event_buffer: 256       # 0 disables lifecycle events

Keys that are absent keep the values from DefaultSettings.

# Type Coercion

Duration accepts a string parsed with time.ParseDuration ("30s", "1h30m"),
an int or float64 interpreted as seconds, or a time.Duration. Int accepts a
float64 only when it has no fractional part, which is what encoding/json
produces for whole numbers.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
