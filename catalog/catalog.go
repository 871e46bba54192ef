// Package catalog maps coding-data container ids to the ECU modules they
// belong to, with human-readable names for the functions each module covers.
// The data set targets the G01 platform with the B48 engine.
package catalog

import "strings"

// Module describes one codeable ECU and its known modification surface.
type Module struct {
	CAFDID     string
	Name       string
	ECU        string
	ECUAddress uint16
	Functions  []string
	CommonMods []string
}

var modules = []Module{
	{
		CAFDID:     "0000000f",
		Name:       "DME - Engine Control (B48)",
		ECU:        "DME",
		ECUAddress: 0x12,
		Functions: []string{
			"Engine mapping",
			"Fuel injection",
			"Ignition timing",
			"Turbo boost control",
			"Exhaust flaps",
			"Launch control",
			"Rev limiter",
		},
		CommonMods: []string{
			"Exhaust flaps always open",
			"Rev limiter increase",
			"Launch control activation",
		},
	},
	{
		CAFDID:     "000000b5",
		Name:       "FEM - Front Electronic Module",
		ECU:        "FEM",
		ECUAddress: 0xB0,
		Functions: []string{
			"Remote engine start (SCR1)",
			"Angel eyes brightness",
			"DRL control",
			"Welcome lights",
			"Puddle lights",
			"Interior lighting",
		},
		CommonMods: []string{
			"SCR1 Remote Start Enable",
			"Angel eyes 100% brightness",
			"Welcome light duration",
		},
	},
	{
		CAFDID:     "000000b6",
		Name:       "BDC - Body Domain Controller",
		ECU:        "BDC",
		ECUAddress: 0xF1,
		Functions: []string{
			"Central locking",
			"Alarm system",
			"Comfort access",
			"Power windows",
			"Seat memory",
		},
		CommonMods: []string{
			"Auto lock/unlock",
			"Windows via remote",
		},
	},
	{
		CAFDID:     "0000003f",
		Name:       "KOMBI - Instrument Cluster",
		ECU:        "KOMBI",
		ECUAddress: 0x61,
		Functions: []string{
			"Gauge display",
			"Warning lights",
			"Trip computer",
			"Speed display",
			"Needle sweep",
		},
		CommonMods: []string{
			"Needle sweep enable",
			"Digital speed display",
			"Extended menu",
		},
	},
	{
		CAFDID:     "00000a07",
		Name:       "HU - Head Unit (iDrive)",
		ECU:        "HU",
		ECUAddress: 0x63,
		Functions: []string{
			"Video in motion",
			"DVD region",
			"USB video",
			"CarPlay settings",
			"Display settings",
		},
		CommonMods: []string{
			"Video in motion",
			"DVD region free",
			"USB video playback",
		},
	},
	{
		CAFDID:     "00000160",
		Name:       "IHKA - Automatic Climate Control",
		ECU:        "IHKA",
		ECUAddress: 0x9B,
		Functions: []string{
			"Temperature control",
			"Fan speed",
			"Auto mode",
			"Seat heating",
			"Steering wheel heat",
		},
		CommonMods: []string{
			"Max heat/cool on startup",
		},
	},
	{
		CAFDID:     "00000f9b",
		Name:       "TCU - Transmission Control",
		ECU:        "TCU",
		ECUAddress: 0x18,
		Functions: []string{
			"Shift points",
			"Sport mode",
			"Comfort mode",
			"Manual mode",
		},
		CommonMods: []string{
			"Faster shifts",
			"Sport mode default",
		},
	},
}

// searchIndex holds shorthand terms that do not literally appear in the
// module records, mapped to the container ids they refer to.
var searchIndex = map[string][]string{
	"remote start":    {"000000b5"},
	"scr1":            {"000000b5"},
	"engine start":    {"000000b5"},
	"angel eyes":      {"000000b5"},
	"drl":             {"000000b5"},
	"lights":          {"000000b5", "0000003f"},
	"exhaust":         {"0000000f"},
	"exhaust flaps":   {"0000000f"},
	"launch control":  {"0000000f"},
	"rev limiter":     {"0000000f"},
	"video":           {"00000a07"},
	"video in motion": {"00000a07"},
	"dvd":             {"00000a07"},
	"needle sweep":    {"0000003f"},
	"gauge":           {"0000003f"},
	"cluster":         {"0000003f"},
	"shift":           {"00000f9b"},
	"transmission":    {"00000f9b"},
	"dme":             {"0000000f"},
	"engine":          {"0000000f"},
}

var byID = func() map[string]*Module {
	m := make(map[string]*Module, len(modules))
	for i := range modules {
		m[modules[i].CAFDID] = &modules[i]
	}
	return m
}()

// Lookup returns the module for a container id, or nil when unknown.
func Lookup(cafdID string) *Module {
	return byID[strings.ToLower(cafdID)]
}

// All returns every known module in a stable order.
func All() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

// ByECU returns the module with the given short ECU name, or nil.
func ByECU(name string) *Module {
	for i := range modules {
		if strings.EqualFold(modules[i].ECU, name) {
			return &modules[i]
		}
	}
	return nil
}

// Search finds modules whose indexed terms, name or function list contain
// the query, case-insensitively. Each module appears at most once.
func Search(query string) []Module {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	matched := make(map[string]bool)
	for term, termIDs := range searchIndex {
		if strings.Contains(term, q) {
			for _, id := range termIDs {
				matched[id] = true
			}
		}
	}
	for _, m := range modules {
		if matched[m.CAFDID] {
			continue
		}
		if strings.Contains(strings.ToLower(m.Name), q) {
			matched[m.CAFDID] = true
			continue
		}
		for _, fn := range m.Functions {
			if strings.Contains(strings.ToLower(fn), q) {
				matched[m.CAFDID] = true
				break
			}
		}
	}
	// Emit in catalog order so results are stable.
	var out []Module
	for _, m := range modules {
		if matched[m.CAFDID] {
			out = append(out, m)
		}
	}
	return out
}
