// Package config provides vehicle profile loading and validation. A profile
// names the diagnostic gateway, the tester address, the ECU address map and
// the coding modifications available for the vehicle.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a complete vehicle profile.
type Profile struct {
	Vehicle       VehicleConfig           `yaml:"vehicle"`
	Gateway       GatewayConfig           `yaml:"gateway"`
	TesterAddress uint16                  `yaml:"tester_address,omitempty"`
	ReadTimeoutMs int                     `yaml:"read_timeout_ms,omitempty"`
	ECUAddresses  map[string]uint16       `yaml:"ecu_addresses"`
	Modifications map[string]Modification `yaml:"modifications,omitempty"`
	HistoryPath   string                  `yaml:"history_path,omitempty"`
}

// VehicleConfig identifies the vehicle the profile targets.
type VehicleConfig struct {
	Series     string `yaml:"series"`
	Model      string `yaml:"model"`
	Engine     string `yaml:"engine"`
	SeriesCode string `yaml:"series_code,omitempty"`
}

// Description renders the vehicle as one short string, e.g. "G01 X3 B48".
func (v VehicleConfig) Description() string {
	return fmt.Sprintf("%s %s %s", v.Series, v.Model, v.Engine)
}

// GatewayConfig locates the diagnostic gateway on the vehicle network.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port,omitempty"`
}

// Addr returns the gateway as a dialable host:port string.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// Modification is one named coding change: a target ECU and the parameters
// to write on it.
type Modification struct {
	ECU        string      `yaml:"ecu"`
	CAFD       string      `yaml:"cafd,omitempty"`
	Parameters []Parameter `yaml:"parameters"`
}

// Parameter is one data identifier write within a modification. Value is
// what gets written when the modification is applied.
type Parameter struct {
	Name    string `yaml:"name"`
	DID     uint16 `yaml:"did"`
	Default string `yaml:"default,omitempty"`
	Value   string `yaml:"value"`
}

// Default returns the built-in G01 X3 B48 profile.
func Default() *Profile {
	return &Profile{
		Vehicle: VehicleConfig{
			Series:     "G01",
			Model:      "X3",
			Engine:     "B48",
			SeriesCode: "S15A",
		},
		Gateway:       GatewayConfig{Host: "169.254.0.8", Port: 13400},
		TesterAddress: 0x0E00,
		ReadTimeoutMs: 10000,
		ECUAddresses: map[string]uint16{
			"DME":   0x12,
			"TCU":   0x18,
			"PDC":   0x60,
			"KOMBI": 0x61,
			"HU":    0x63,
			"IHKA":  0x9B,
			"ZGM":   0xA4,
			"FEM":   0xB0,
			"REM":   0xB1,
			"BDC":   0xF1,
		},
		Modifications: map[string]Modification{
			"scr1_remote_start": {
				ECU:  "BDC",
				CAFD: "000000b5",
				Parameters: []Parameter{
					{Name: "SCR_VERBAU", DID: 0x3000, Default: "not_active", Value: "aktiv"},
					{Name: "SCR_ANZEIGE", DID: 0x3001, Default: "not_active", Value: "aktiv"},
				},
			},
			"angel_eyes_brightness": {
				ECU:  "FEM",
				CAFD: "000000b5",
				Parameters: []Parameter{
					{Name: "LICHT_HELLIGKEIT", DID: 0x4000, Default: "50", Value: "100"},
				},
			},
			"exhaust_flaps": {
				ECU:  "DME",
				CAFD: "0000000f",
				Parameters: []Parameter{
					{Name: "KLAPPE_OFFEN", DID: 0x5000, Default: "normal", Value: "dauerhaft"},
				},
			},
			"video_in_motion": {
				ECU:  "HU",
				CAFD: "00000a07",
				Parameters: []Parameter{
					{Name: "VIDEO_FREIGABE", DID: 0x6000, Default: "not_active", Value: "aktiv"},
				},
			},
		},
	}
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}
	return Parse(data)
}

// Parse parses profile YAML data and applies defaults for omitted fields.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile YAML: %w", err)
	}
	applyDefaults(&p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func applyDefaults(p *Profile) {
	def := Default()
	if p.Gateway.Port == 0 {
		p.Gateway.Port = def.Gateway.Port
	}
	if p.TesterAddress == 0 {
		p.TesterAddress = def.TesterAddress
	}
	if p.ReadTimeoutMs == 0 {
		p.ReadTimeoutMs = def.ReadTimeoutMs
	}
	if len(p.ECUAddresses) == 0 {
		p.ECUAddresses = def.ECUAddresses
	}
}

// Validate checks the profile for internal consistency.
func (p *Profile) Validate() error {
	if p.Gateway.Host == "" {
		return fmt.Errorf("profile: gateway host is required")
	}
	if p.Gateway.Port <= 0 || p.Gateway.Port > 65535 {
		return fmt.Errorf("profile: gateway port %d out of range", p.Gateway.Port)
	}
	for name, mod := range p.Modifications {
		if _, ok := p.ECUAddresses[mod.ECU]; !ok {
			return fmt.Errorf("profile: modification %q targets unknown ecu %q", name, mod.ECU)
		}
		if len(mod.Parameters) == 0 {
			return fmt.Errorf("profile: modification %q has no parameters", name)
		}
		for _, param := range mod.Parameters {
			if param.Value == "" {
				return fmt.Errorf("profile: modification %q parameter %q has no value", name, param.Name)
			}
		}
	}
	return nil
}

// ECUAddress resolves a short ECU name like "DME" to its logical address.
func (p *Profile) ECUAddress(name string) (uint16, error) {
	addr, ok := p.ECUAddresses[name]
	if !ok {
		return 0, fmt.Errorf("profile: unknown ecu %q", name)
	}
	return addr, nil
}

// ToYAML returns the profile as YAML bytes.
func (p *Profile) ToYAML() ([]byte, error) {
	return yaml.Marshal(p)
}
