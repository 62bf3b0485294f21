// Package cmock drives the CMock mock generator for C headers.
package cmock

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Plugin names a CMock plugin.
type Plugin string

// Plugins enabled for every generated mock.
const (
	// PluginIgnore lets tests ignore calls that have no expectation.
	PluginIgnore Plugin = "ignore"
	// PluginReturnThruPtr fills pointer output parameters.
	PluginReturnThruPtr Plugin = "return_thru_ptr"
)

// DefaultMockPrefix is prepended to the header name to form mock file and symbol names.
const DefaultMockPrefix = "mock_"

// Config is the option set handed to CMock.
type Config struct {
	Plugins    []Plugin
	MockPrefix string
	MockPath   string
}

// NewConfig returns the fixed configuration writing mocks into mockPath.
func NewConfig(mockPath string) Config {
	return Config{
		Plugins:    []Plugin{PluginIgnore, PluginReturnThruPtr},
		MockPrefix: DefaultMockPrefix,
		MockPath:   mockPath,
	}
}

// Validate reports configurations CMock would reject or misinterpret.
func (c Config) Validate() error {
	var errs []error

	if c.MockPath == "" {
		errs = append(errs, errors.New("mock path is empty"))
	}

	if c.MockPrefix == "" {
		errs = append(errs, errors.New("mock prefix is empty"))
	}

	for _, p := range c.Plugins {
		if p == "" {
			errs = append(errs, errors.New("plugin name is empty"))
		}
	}

	return errors.Join(errs...)
}

// optionsFile is the document layout CMock loads via "-o<file>".
// CMock reads Ruby symbols, so keys and plugin names carry a leading colon.
type optionsFile struct {
	CMock options `yaml:":cmock"`
}

type options struct {
	Plugins    []string `yaml:":plugins"`
	MockPrefix string   `yaml:":mock_prefix"`
	MockPath   string   `yaml:":mock_path"`
}

// quotedKeys hold user-supplied strings. Plain scalars such as ":mocks" would
// load as Ruby symbols, so their values are always double quoted.
var quotedKeys = map[string]bool{
	":mock_prefix": true,
	":mock_path":   true,
}

// YAML renders the configuration as a CMock options file.
func (c Config) YAML() ([]byte, error) {
	plugins := make([]string, 0, len(c.Plugins))
	for _, p := range c.Plugins {
		plugins = append(plugins, ":"+string(p))
	}

	doc := optionsFile{CMock: options{
		Plugins:    plugins,
		MockPrefix: c.MockPrefix,
		MockPath:   c.MockPath,
	}}

	var node yaml.Node
	if err := node.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode cmock options: %w", err)
	}

	quoteValues(&node)

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("failed to encode cmock options: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode cmock options: %w", err)
	}

	return buf.Bytes(), nil
}

func quoteValues(node *yaml.Node) {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if quotedKeys[key.Value] && value.Kind == yaml.ScalarNode {
				value.Style = yaml.DoubleQuotedStyle
			}
		}
	}

	for _, child := range node.Content {
		quoteValues(child)
	}
}
