package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portalkit/internal/model"

	"gopkg.in/yaml.v3"
)

const (
	envConfig    = "PORTAL_CONFIG"
	envConfigDir = "PORTAL_CONFIG_DIR"
	envAddr      = "PORTAL_ADDR"
	envDB        = "PORTAL_DB"
	envLogLevel  = "PORTAL_LOG_LEVEL"
)

type Config struct {
	Server   Server   `json:"server,omitempty" yaml:"server"`
	Database Database `json:"database,omitempty" yaml:"database"`
	Logging  Logging  `json:"logging,omitempty" yaml:"logging"`

	// Admins may customize every container's portal pages.
	Admins []string `json:"admins,omitempty" yaml:"admins,omitempty"`

	// Regions are the extension points offered in add-webpart menus, in display order.
	Regions []string `json:"regions,omitempty" yaml:"regions,omitempty"`

	FolderTypes map[string]FolderType      `json:"folderTypes,omitempty" yaml:"folderTypes,omitempty"`
	Containers  map[string]ContainerConfig `json:"containers,omitempty" yaml:"containers,omitempty"`
}

type Server struct {
	Addr     string `json:"addr,omitempty" yaml:"addr"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Compress bool   `json:"compress" yaml:"compress"`
}

type Database struct {
	Path string `json:"path,omitempty" yaml:"path"`
}

type Logging struct {
	Level  string `json:"level,omitempty" yaml:"level"`
	Format string `json:"format,omitempty" yaml:"format"`
}

// FolderType lists the default parts of each named tab.
type FolderType struct {
	Tabs map[string][]PartConfig `json:"tabs,omitempty" yaml:"tabs"`
}

type PartConfig struct {
	Name       string            `json:"name,omitempty" yaml:"name"`
	Location   string            `json:"location,omitempty" yaml:"location,omitempty"`
	Permanent  bool              `json:"permanent,omitempty" yaml:"permanent,omitempty"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

type ContainerConfig struct {
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	FolderType string `json:"folderType,omitempty" yaml:"folderType,omitempty"`

	// Editors may customize this container in addition to the admins.
	Editors []string `json:"editors,omitempty" yaml:"editors,omitempty"`
}

func Dir() (string, error) {
	// Keeps tests away from ~/.portalkit.
	if v := strings.TrimSpace(os.Getenv(envConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".portalkit"), nil
}

// Path is $PORTAL_CONFIG, else config.yaml in Dir.
func Path() (string, error) {
	if v := strings.TrimSpace(os.Getenv(envConfig)); v != "" {
		return v, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Default() *Config {
	dbPath := "portal.sqlite"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "portal.sqlite")
	}
	return &Config{
		Server:   Server{Addr: "127.0.0.1:8080", Prefix: "/portal", Compress: true},
		Database: Database{Path: dbPath},
		Logging:  Logging{Level: "info", Format: "console"},
		Admins:   []string{"admin"},
		Regions:  []string{model.LocationBody, model.LocationRight},
		FolderTypes: map[string]FolderType{
			"collaboration": {Tabs: map[string][]PartConfig{
				"wiki": {
					{Name: "Wiki", Location: model.LocationBody, Permanent: true,
						Properties: map[string]string{"source": "# Welcome\n\nEdit this page to get started."}},
					{Name: "Links", Location: model.LocationRight,
						Properties: map[string]string{"link.1.text": "Home", "link.1.href": "/portal/home"}},
				},
			}},
		},
		Containers: map[string]ContainerConfig{
			"home": {Path: "/home", FolderType: "collaboration"},
		},
	}
}

// Load reads the config at path (Path() when empty) on top of Default, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(envDB)); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is empty")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q (expected debug|info|warn|error)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q (expected console|json)", c.Logging.Format)
	}
	for name, ft := range c.FolderTypes {
		for tab, parts := range ft.Tabs {
			for i, p := range parts {
				if strings.TrimSpace(p.Name) == "" {
					return fmt.Errorf("folderTypes.%s.tabs.%s[%d]: name is empty", name, tab, i)
				}
			}
		}
	}
	for id, cc := range c.Containers {
		if cc.FolderType == "" {
			continue
		}
		if _, ok := c.FolderTypes[cc.FolderType]; !ok {
			return fmt.Errorf("containers.%s: unknown folder type %q", id, cc.FolderType)
		}
	}
	return nil
}

// Container resolves a container id to its configured path and folder type.
func (c *Config) Container(id string) model.Container {
	cc := c.Containers[id]
	path := cc.Path
	if path == "" {
		path = "/" + id
	}
	return model.Container{ID: id, Path: path, FolderType: cc.FolderType}
}

func (c *Config) IsAdmin(user string) bool {
	for _, a := range c.Admins {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(user)) {
			return true
		}
	}
	return false
}

// Save writes cfg to path atomically, keeping the previous file as path.bak.
func Save(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.yaml.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, "config.yaml.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
