// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The config command.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/authform/internal/config"
)

// HandleConfig handles "config [show|path|get|keys|init]".
func HandleConfig(rt *Runtime) error {
	switch strings.ToLower(rt.Args.Subcommand) {
	case "", "show":
		return handleConfigShow(rt)
	case "path":
		return handleConfigPath(rt)
	case "get":
		return handleConfigGet(rt)
	case "keys":
		return handleConfigKeys(rt)
	case "init":
		return handleConfigInit(rt)
	default:
		return &ValidationError{
			Field:   "config subcommand",
			Value:   rt.Args.Subcommand,
			Reason:  "unknown subcommand",
			Example: "authform config [show|path|get KEY|keys|init]",
		}
	}
}

func handleConfigShow(rt *Runtime) error {
	safe := rt.Config.Redacted()
	if rt.Args.JSON {
		return NewJSONResponse("config show", safe).Write(rt.Out)
	}
	enc := toml.NewEncoder(rt.Out)
	enc.Indent = "  "
	return enc.Encode(safe)
}

func configPath(rt *Runtime) (string, error) {
	if rt.Args.ConfigPath != "" {
		return rt.Args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

func handleConfigPath(rt *Runtime) error {
	return OutputJSON(rt.Out, rt.Args.JSON, "config path", func() (interface{}, error) {
		path, err := configPath(rt)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(path)
		data := ConfigPathData{Path: path, Exists: statErr == nil}
		if !rt.Args.JSON {
			fmt.Fprintln(rt.Out, path)
		}
		return data, nil
	})
}

func handleConfigGet(rt *Runtime) error {
	return OutputJSON(rt.Out, rt.Args.JSON, "config get", func() (interface{}, error) {
		key := rt.Args.ConfigKey
		if key == "" {
			return nil, ErrMissingArgument("key", "authform config get provider.kind")
		}
		value, err := rt.Config.Get(key)
		if err != nil {
			return nil, &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "authform config keys"}
		}
		if config.IsSecretKey(key) {
			if s, ok := value.(string); ok && s != "" {
				value = "[REDACTED]"
			}
		}
		if !rt.Args.JSON {
			fmt.Fprintln(rt.Out, formatValue(value))
		}
		return ConfigValueData{Key: key, Value: value}, nil
	})
}

func formatValue(v interface{}) string {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprint(v)
}

func handleConfigKeys(rt *Runtime) error {
	keys := config.GetAllKeys()
	if rt.Args.JSON {
		return NewJSONResponse("config keys", keys).Write(rt.Out)
	}
	for _, k := range keys {
		fmt.Fprintln(rt.Out, k)
	}
	return nil
}

func handleConfigInit(rt *Runtime) error {
	return OutputJSON(rt.Out, rt.Args.JSON, "config init", func() (interface{}, error) {
		path, err := configPath(rt)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err == nil && !rt.Args.Force {
			return nil, NewCommandError("config", "init", "file exists (use --force to overwrite)", errors.New(path))
		}

		if err := writeConfig(rt.Args.ConfigPath, config.Default()); err != nil {
			return nil, NewCommandError("config", "init", "write file", err)
		}
		if !rt.Args.JSON {
			fmt.Fprintf(rt.Out, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
		}
		return ConfigPathData{Path: path, Exists: true}, nil
	})
}

// writeConfig writes cfg to path, or to the default location when path is
// empty. A .json path gets JSON, matching LoadFromPath.
func writeConfig(path string, cfg *config.Config) error {
	switch {
	case path == "":
		return config.Save(cfg)
	case strings.HasSuffix(path, ".json"):
		return config.SaveJSON(cfg, path)
	default:
		return config.SaveTOML(cfg, path)
	}
}
