/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"

	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

type GemrocConfig struct {
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	// Dir is where received frames are persisted
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// KeepPackets is the number of decoded packets kept in the state database
	KeepPackets int `json:"keep_packets,omitempty" yaml:"keep_packets,omitempty"`
}

type ApiConfig struct {
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
}

type Config struct {
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	*GemrocConfig `json:"gemroc,omitempty" yaml:"gemroc,omitempty"`
	*ApiConfig    `json:"api,omitempty" yaml:"api,omitempty"`
	filepath      string
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.filepath
}

// SetPath sets the config file path used by Load and Persist
func (c *Config) SetPath(path string) {
	c.filepath = path
}

// ListenAddr is the UDP address GEMROC frames are received on
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.GemrocConfig.Address, strconv.Itoa(c.GemrocConfig.Port))
}

// ApiAddr is the address of the HTTP API
func (c *Config) ApiAddr() string {
	return net.JoinHostPort(c.ApiConfig.Address, strconv.Itoa(c.ApiConfig.Port))
}

// ApiPrefix is the base URL of the HTTP API
func (c *Config) ApiPrefix() string {
	return fmt.Sprintf("http://%s/api", c.ApiAddr())
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the current values. A missing file
// leaves the defaults untouched.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("Config file %s not found, using defaults", c.filepath)
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// String returns the config in the same YAML form it is persisted in
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		log.Error("Error while marshaling config: %s", err)
		return ""
	}
	return string(data)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return home
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		DBPath:   DefaultDBPath(),
		GemrocConfig: &GemrocConfig{
			Address:     DefaultGemrocAddress,
			Port:        DefaultGemrocPort,
			Dir:         ".",
			KeepPackets: DefaultKeepPackets,
		},
		ApiConfig: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		filepath: DefaultConfigPath(),
	}
}
