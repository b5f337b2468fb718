package core

import (
	"bytes"
	"sync"

	"avrtimer/tinycompress"
)

// Constant is a firmware constant exposed to the host
type Constant struct {
	Name  string
	Value interface{}
}

// Enumeration maps symbolic argument values to their wire encoding: the
// index of each name in Values
type Enumeration struct {
	Name   string
	Values []string
}

// Dictionary is the identify data: version, constants, enumerations and the
// command and response formats, as JSON
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	enumerations  map[string]*Enumeration
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte
}

// Defaults reported until SetVersion and SetBuildVersions are called
const (
	DefaultVersion       = "avrtimer-0.1.0"
	DefaultBuildVersions = "go-tinygo"
)

var globalDictionary = NewDictionary(globalRegistry)

func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		enumerations:  make(map[string]*Enumeration),
		commandReg:    cmdReg,
		version:       DefaultVersion,
		buildVersions: DefaultBuildVersions,
	}
}

func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

// AddConstant adds or replaces a constant and drops the cached dictionary
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{Name: name, Value: value}
	d.cachedDict = nil
}

func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// the caller may reuse its slice
	valuesCopy := make([]string, len(values))
	copy(valuesCopy, values)
	d.enumerations[name] = &Enumeration{Name: name, Values: valuesCopy}
	d.cachedDict = nil
}

// SetVersion replaces the firmware version string
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cachedDict = nil
}

// SetBuildVersions replaces the toolchain description
func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cachedDict = nil
}

// BuildDictionary compresses the JSON and caches it. Call it once every
// command and constant is registered. If compression fails the plain JSON is
// served instead.
func (d *Dictionary) BuildDictionary() {
	// registry lock is taken before the dictionary lock, never inside it
	commands, responses := d.commandReg.GetCommandsAndResponses()

	d.mu.Lock()
	defer d.mu.Unlock()

	jsonData := d.buildJSON(commands, responses)
	DebugPrintln("[BuildDict] JSON " + itoa(len(jsonData)) + " bytes")

	var buf bytes.Buffer
	w := tinycompress.NewWriter(&buf)
	if _, err := w.Write(jsonData); err != nil {
		DebugPrintln("[BuildDict] compression failed: " + err.Error())
		d.cachedDict = jsonData
		return
	}
	if err := w.Close(); err != nil {
		DebugPrintln("[BuildDict] compression failed: " + err.Error())
		d.cachedDict = jsonData
		return
	}
	d.cachedDict = buf.Bytes()
	DebugPrintln("[BuildDict] compressed " + itoa(len(d.cachedDict)) + " bytes")
}

// Generate returns the cached dictionary, or plain JSON when
// BuildDictionary has not run since the last change
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cachedDict
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}

	commands, responses := d.commandReg.GetCommandsAndResponses()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildJSON(commands, responses)
}

// buildJSON writes the dictionary by hand; encoding/json is too heavy for
// the AVR build. Caller holds d.mu.
func (d *Dictionary) buildJSON(commands, responses map[string]int) []byte {
	result := make([]byte, 0, 1024)

	result = append(result, `{"version":"`...)
	result = append(result, d.version...)
	result = append(result, `","build_versions":"`...)
	result = append(result, d.buildVersions...)
	result = append(result, `","config":{`...)

	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	sortStrings(names)
	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, name)
		result = append(result, ':')
		result = appendQuoted(result, valueToString(d.constants[name].Value))
	}

	result = append(result, `},"commands":`...)
	result = appendIDMap(result, commands)
	result = append(result, `,"responses":`...)
	result = appendIDMap(result, responses)

	if len(d.enumerations) > 0 {
		result = append(result, `,"enumerations":{`...)
		names = names[:0]
		for name := range d.enumerations {
			names = append(names, name)
		}
		sortStrings(names)
		for i, name := range names {
			if i > 0 {
				result = append(result, ',')
			}
			result = appendQuoted(result, name)
			result = append(result, ':')

			values := make(map[string]int)
			for idx, v := range d.enumerations[name].Values {
				if v != "" {
					values[v] = idx
				}
			}
			result = appendIDMap(result, values)
		}
		result = append(result, '}')
	}

	return append(result, '}')
}

func appendQuoted(b []byte, s string) []byte {
	b = append(b, '"')
	b = append(b, s...)
	return append(b, '"')
}

// appendIDMap writes {"key":id,...} ordered by id
func appendIDMap(b []byte, m map[string]int) []byte {
	b = append(b, '{')
	for i, k := range sortedKeys(m) {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendQuoted(b, k)
		b = append(b, ':')
		b = append(b, itoa(m[k])...)
	}
	return append(b, '}')
}

// GetChunk returns a copy of up to count bytes of the dictionary at offset.
// Past the end it returns an empty slice, which ends the host's identify loop.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}

// Reset drops every constant and enumeration and restores the default
// version strings
func (d *Dictionary) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = DefaultVersion
	d.buildVersions = DefaultBuildVersions
	d.constants = make(map[string]*Constant)
	d.enumerations = make(map[string]*Enumeration)
	d.cachedDict = nil
}
