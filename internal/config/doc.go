// Package config holds the bridge configuration.
//
// Values come from Baseline(), an optional YAML/JSON file and FCB_*
// environment variables, in increasing precedence. Keys are snake_case;
// nested keys map to env names by replacing dots with underscores, e.g.
// timing.command_start_mission is FCB_TIMING_COMMAND_START_MISSION.
//
// Watch reloads the file on change; only settings that are safe to apply at
// runtime (currently the log level) are acted on by the caller.
package config
