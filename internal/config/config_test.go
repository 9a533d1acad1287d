package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// TestConfig represents a test configuration structure.
type TestConfig struct {
	Config string

	StringField string   `toml:"test.string_field" env:"STRING_FIELD"`
	BoolField   bool     `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField    int      `toml:"test.int_field" env:"INT_FIELD"`
	SliceField  []string `toml:"test.slice_field" env:"SLICE_FIELD"`

	NestedString string `toml:"nested.value" env:"NESTED_VALUE"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devup.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[test]
string_field = "hello world"
bool_field = true
int_field = 42
slice_field = ["item1", "item2", "item3"]

[nested]
value = "nested value"
`)

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "hello world" {
		t.Errorf("StringField = %q", config.StringField)
	}
	if !config.BoolField {
		t.Error("BoolField = false, want true")
	}
	if config.IntField != 42 {
		t.Errorf("IntField = %d, want 42", config.IntField)
	}
	if want := []string{"item1", "item2", "item3"}; !reflect.DeepEqual(config.SliceField, want) {
		t.Errorf("SliceField = %v, want %v", config.SliceField, want)
	}
	if config.NestedString != "nested value" {
		t.Errorf("NestedString = %q", config.NestedString)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("DEVUP_STRING_FIELD", "env string")
	t.Setenv("DEVUP_BOOL_FIELD", "false")
	t.Setenv("DEVUP_INT_FIELD", "123")
	t.Setenv("DEVUP_SLICE_FIELD", "a, b ,c")
	t.Setenv("DEVUP_NESTED_VALUE", "env nested")

	config := &TestConfig{BoolField: true}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "env string" {
		t.Errorf("StringField = %q", config.StringField)
	}
	if config.BoolField {
		t.Error("BoolField = true, want false")
	}
	if config.IntField != 123 {
		t.Errorf("IntField = %d, want 123", config.IntField)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(config.SliceField, want) {
		t.Errorf("SliceField = %v, want %v", config.SliceField, want)
	}
	if config.NestedString != "env nested" {
		t.Errorf("NestedString = %q", config.NestedString)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeConfig(t, `
[test]
string_field = "toml value"
int_field = 100
`)
	t.Setenv("DEVUP_STRING_FIELD", "env override")

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "env override" {
		t.Errorf("StringField = %q, want env override", config.StringField)
	}
	if config.IntField != 100 {
		t.Errorf("IntField = %d, want 100 from TOML", config.IntField)
	}
}

func TestLoadConfigFlagsWin(t *testing.T) {
	path := writeConfig(t, `
[test]
string_field = "toml value"
int_field = 100
`)
	t.Setenv("DEVUP_INT_FIELD", "200")

	config := &TestConfig{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&config.StringField, "string-field", "", "")
	cmd.Flags().IntVar(&config.IntField, "int-field", 0, "")
	if err := cmd.Flags().Parse([]string{"--string-field=flag value", "--int-field=7"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := LoadConfig(config, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.StringField != "flag value" {
		t.Errorf("StringField = %q, want flag value", config.StringField)
	}
	if config.IntField != 7 {
		t.Errorf("IntField = %d, want 7", config.IntField)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := &TestConfig{Config: filepath.Join(t.TempDir(), "nope.toml")}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[test\ninvalid toml syntax\n")
	if err := LoadConfig(&TestConfig{Config: path}, nil); err == nil {
		t.Error("LoadConfig should fail for invalid TOML")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{"value": "nested_value"},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
		{"root.child", nil},
	}

	for _, test := range tests {
		if result := getNestedValue(data, test.path); result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":         "port",
		"LoggingLevel": "logging-level",
		"NoClear":      "no-clear",
		"BackendDir":   "backend-dir",
	}
	for field, want := range tests {
		if got := fieldNameToFlag(field); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", field, got, want)
		}
	}
}

func TestSetFieldValueTypeMismatch(t *testing.T) {
	type target struct {
		Port int
		Name string
	}
	s := &target{Port: 1, Name: "keep"}
	v := reflect.ValueOf(s).Elem()

	setFieldValue(v.FieldByName("Port"), "not a number")
	setFieldValue(v.FieldByName("Name"), int64(5))
	setFieldValueFromString(v.FieldByName("Port"), "abc")

	if s.Port != 1 || s.Name != "keep" {
		t.Errorf("mismatched values changed fields: %+v", s)
	}
}

func TestLoadLoggingModules(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "info"

[logging.modules]
output = "debug"
api = "warn"
`)

	modules := LoadLoggingModules(path)
	if modules["output"] != "debug" || modules["api"] != "warn" || len(modules) != 2 {
		t.Errorf("modules = %v", modules)
	}
	if got := LoadLoggingModules(""); len(got) != 0 {
		t.Errorf("empty path returned %v", got)
	}
}
