package config

import (
	_ "embed"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag when reading the environment.
const EnvPrefix = "STARTER_TEMPLATE_"

//go:embed default_config.toml
var defaultConfigTOML []byte

// AppConfig is the resolved application configuration.
type AppConfig struct {
	ProgramName string `toml:"program.name" env:"PROGRAM_NAME"`

	CLILogLevel        string `toml:"logging.cli_log_level" env:"LOGGING_CLI_LOG_LEVEL" flag:"log-level"`
	JournaldLogLevel   string `toml:"logging.journald_log_level" env:"LOGGING_JOURNALD_LOG_LEVEL"`
	RollingLogLevel    string `toml:"logging.rolling_log_level" env:"LOGGING_ROLLING_LOG_LEVEL"`
	RollingLogPath     string `toml:"logging.rolling_log_path" env:"LOGGING_ROLLING_LOG_PATH"`
	RollingLogPrefix   string `toml:"logging.rolling_log_prefix" env:"LOGGING_ROLLING_LOG_PREFIX"`
	RollingLogMaxFiles int    `toml:"logging.rolling_log_max_files" env:"LOGGING_ROLLING_LOG_MAX_FILES"`
}

// Manager resolves AppConfig from layered sources, lowest precedence first:
// embedded defaults, file sources in the order added, environment, Set
// overrides, and flags explicitly changed on the command line.
type Manager struct {
	mu        sync.RWMutex
	files     []string
	overrides map[string]string
	flags     *pflag.FlagSet
	lookupEnv func(string) (string, bool)
}

// NewManager returns a manager with only the embedded defaults.
func NewManager() *Manager {
	return &Manager{
		overrides: make(map[string]string),
		lookupEnv: os.LookupEnv,
	}
}

// AddFileSource layers a TOML file over the previous sources. The file must
// exist; it is re-read on every Snapshot.
func (m *Manager) AddFileSource(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file source: %w", err)
	}
	if _, err := readTOML(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, path)
	return nil
}

// Files returns the file sources in precedence order.
func (m *Manager) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.files...)
}

// Set overrides a single key, addressed by its dotted TOML path.
func (m *Manager) Set(key, value string) error {
	if _, ok := fieldByTOMLPath(reflect.TypeOf(AppConfig{}), key); !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[key] = value
	return nil
}

// BindFlags makes explicitly changed flags with a matching flag tag the
// highest precedence source.
func (m *Manager) BindFlags(fs *pflag.FlagSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags = fs
}

// Snapshot resolves every source into a fresh AppConfig.
func (m *Manager) Snapshot() (AppConfig, error) {
	m.mu.RLock()
	files := append([]string(nil), m.files...)
	overrides := make(map[string]string, len(m.overrides))
	for k, v := range m.overrides {
		overrides[k] = v
	}
	flags := m.flags
	lookupEnv := m.lookupEnv
	m.mu.RUnlock()

	cfg, err := Defaults()
	if err != nil {
		return AppConfig{}, err
	}

	for _, path := range files {
		data, err := readTOML(path)
		if err != nil {
			return AppConfig{}, err
		}
		applyTOML(&cfg, data)
	}

	applyEnv(&cfg, EnvPrefix, lookupEnv)
	applyOverrides(&cfg, overrides)
	if flags != nil {
		applyFlags(&cfg, flags)
	}
	return cfg, nil
}

// Get returns the resolved value of one dotted key.
func (m *Manager) Get(key string) (string, error) {
	cfg, err := m.Snapshot()
	if err != nil {
		return "", err
	}
	v := reflect.ValueOf(cfg)
	idx, ok := fieldByTOMLPath(v.Type(), key)
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return fmt.Sprint(v.Field(idx).Interface()), nil
}

// Load is a Watcher loader that ignores the path and re-resolves every source.
func (m *Manager) Load(string) (AppConfig, error) {
	return m.Snapshot()
}

// Defaults returns the embedded default configuration.
func Defaults() (AppConfig, error) {
	var data map[string]any
	if err := toml.Unmarshal(defaultConfigTOML, &data); err != nil {
		return AppConfig{}, fmt.Errorf("failed to parse default config: %w", err)
	}
	var cfg AppConfig
	applyTOML(&cfg, data)
	return cfg, nil
}

func readTOML(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var data map[string]any
	if err := toml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}
	return data, nil
}

// applyTOML copies values addressed by each field's toml tag into opts.
func applyTOML(opts any, data map[string]any) {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if tomlPath := t.Field(i).Tag.Get("toml"); tomlPath != "" {
			if value := getNestedValue(data, tomlPath); value != nil {
				setFieldValue(v.Field(i), value)
			}
		}
	}
}

// applyEnv reads prefix+env tag for each field of opts.
func applyEnv(opts any, prefix string, lookup func(string) (string, bool)) {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if envKey := t.Field(i).Tag.Get("env"); envKey != "" {
			if envValue, ok := lookup(prefix + envKey); ok && envValue != "" {
				setFieldValueFromString(v.Field(i), envValue)
			}
		}
	}
}

func applyOverrides(opts any, overrides map[string]string) {
	v := reflect.ValueOf(opts).Elem()
	for key, value := range overrides {
		if idx, ok := fieldByTOMLPath(v.Type(), key); ok {
			setFieldValueFromString(v.Field(idx), value)
		}
	}
}

// applyFlags copies flags the user explicitly set, matched by flag tag.
func applyFlags(opts any, fs *pflag.FlagSet) {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		name := t.Field(i).Tag.Get("flag")
		if name == "" {
			continue
		}
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			setFieldValueFromString(v.Field(i), strings.Join(sv.GetSlice(), ","))
			continue
		}
		setFieldValueFromString(v.Field(i), f.Value.String())
	}
}

func fieldByTOMLPath(t reflect.Type, path string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == path {
			return i, true
		}
	}
	return 0, false
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			return nil
		}
	}
	return nil
}

// setFieldValue sets a field value using reflection.
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
	case reflect.Int:
		if i, ok := value.(int64); ok {
			field.SetInt(i)
		} else if i, intOk := value.(int); intOk {
			field.SetInt(int64(i))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			if arr, ok := value.([]any); ok {
				slice := make([]string, len(arr))
				for i, v := range arr {
					if s, strOk := v.(string); strOk {
						slice[i] = s
					}
				}
				field.Set(reflect.ValueOf(slice))
			}
		}
	}
}

// setFieldValueFromString sets a field value from string (for env vars).
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
	case reflect.Int:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}
