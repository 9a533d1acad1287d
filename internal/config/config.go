// Package config loads devup options and service definitions.
//
// Precedence is CLI flags > DEVUP_* environment variables > TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable named by an `env` tag.
const EnvPrefix = "DEVUP_"

// LoadConfig fills opts from the TOML file named by its Config field and
// from the environment. Fields are mapped with `toml:"a.b"` and `env:"X"`
// tags. If cmd is provided, flags explicitly set on the command line are
// left untouched.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		markChanged := func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		}
		cmd.Flags().VisitAll(markChanged)
		cmd.PersistentFlags().VisitAll(markChanged)
	}

	// apply visits every settable field that was not set on the command line.
	apply := func(fn func(field reflect.Value, tag reflect.StructTag)) {
		for i := 0; i < v.NumField(); i++ {
			fieldType := t.Field(i)
			if changedFlags[fieldNameToFlag(fieldType.Name)] {
				continue
			}
			fn(v.Field(i), fieldType.Tag)
		}
	}

	if field := v.FieldByName("Config"); field.IsValid() && field.String() != "" {
		data, err := readConfigFile(field.String())
		if err != nil {
			return err
		}
		if data != nil {
			var tree map[string]any
			if err := toml.Unmarshal(data, &tree); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}
			apply(func(field reflect.Value, tag reflect.StructTag) {
				if tomlPath := tag.Get("toml"); tomlPath != "" {
					if value := getNestedValue(tree, tomlPath); value != nil {
						setFieldValue(field, value)
					}
				}
			})
		}
	}

	apply(func(field reflect.Value, tag reflect.StructTag) {
		if envKey := tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				setFieldValueFromString(field, envValue)
			}
		}
	})

	return nil
}

// readConfigFile returns the file contents, or nil if the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return data, nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	current := data
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return
		}
		slice := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				slice = append(slice, s)
			}
		}
		field.Set(reflect.ValueOf(slice))
	}
}

// setFieldValueFromString sets a field from an environment variable.
// Slices are comma separated.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(value, ",")
		slice := make([]string, len(parts))
		for i, part := range parts {
			slice[i] = strings.TrimSpace(part)
		}
		field.Set(reflect.ValueOf(slice))
	}
}

// LoadLoggingModules returns the per-module levels from the [logging.modules]
// table of the config file. A missing or unreadable file yields an empty map.
func LoadLoggingModules(configPath string) map[string]string {
	modules, err := ReadLoggingModules(configPath)
	if err != nil {
		return make(map[string]string)
	}
	return modules
}

// ReadLoggingModules is LoadLoggingModules with read and parse errors
// reported.
func ReadLoggingModules(configPath string) (map[string]string, error) {
	modules := make(map[string]string)
	if configPath == "" {
		return modules, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Logging struct {
			Modules map[string]string `toml:"modules"`
		} `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, configPath, err)
	}
	for module, level := range raw.Logging.Modules {
		modules[module] = level
	}
	return modules, nil
}
