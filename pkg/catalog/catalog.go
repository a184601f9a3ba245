package catalog

import (
	"fmt"
	"os"

	"github.com/obiverse/dojo/pkg/jutsu"
	"github.com/obiverse/dojo/pkg/ninja"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog format
type File struct {
	Capabilities []jutsu.Definition `yaml:"capabilities"`
	Contracts    []ninja.Contract   `yaml:"contracts"`
}

// Catalog is a compiled set of capabilities and contracts
type Catalog struct {
	Capabilities []*jutsu.Capability
	Contracts    []ninja.Contract
}

// Load reads and parses a catalog file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &f, nil
}

// Default returns the built-in catalog
func Default() *File {
	return &File{
		Capabilities: jutsu.DefaultDefinitions(),
		Contracts:    ninja.DefaultContracts(),
	}
}

// Merge overlays overlay on base. Entries with the same id replace the base
// entry in place; new entries are appended in file order.
func Merge(base, overlay *File) *File {
	merged := &File{}
	if base != nil {
		merged.Capabilities = append(merged.Capabilities, base.Capabilities...)
		merged.Contracts = append(merged.Contracts, base.Contracts...)
	}
	if overlay == nil {
		return merged
	}

	capIndex := make(map[string]int, len(merged.Capabilities))
	for i, d := range merged.Capabilities {
		capIndex[d.ID] = i
	}
	for _, d := range overlay.Capabilities {
		if i, ok := capIndex[d.ID]; ok {
			merged.Capabilities[i] = d
			continue
		}
		capIndex[d.ID] = len(merged.Capabilities)
		merged.Capabilities = append(merged.Capabilities, d)
	}

	contractIndex := make(map[string]int, len(merged.Contracts))
	for i, c := range merged.Contracts {
		contractIndex[c.ID] = i
	}
	for _, c := range overlay.Contracts {
		if i, ok := contractIndex[c.ID]; ok {
			merged.Contracts[i] = c
			continue
		}
		contractIndex[c.ID] = len(merged.Contracts)
		merged.Contracts = append(merged.Contracts, c)
	}

	return merged
}

// Compile compiles every capability and validates every contract. A
// contract that names a capability missing from the file is an error.
func (f *File) Compile() (*Catalog, error) {
	c := &Catalog{
		Capabilities: make([]*jutsu.Capability, 0, len(f.Capabilities)),
		Contracts:    make([]ninja.Contract, 0, len(f.Contracts)),
	}

	known := make(map[string]bool, len(f.Capabilities))
	for _, def := range f.Capabilities {
		capability, err := jutsu.Compile(def)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jutsu %s: %w", def.ID, err)
		}
		known[def.ID] = true
		c.Capabilities = append(c.Capabilities, capability)
	}

	for _, contract := range f.Contracts {
		if err := contract.Validate(); err != nil {
			return nil, err
		}
		for _, name := range contract.Capabilities {
			if !known[name] {
				return nil, fmt.Errorf("contract %s references unknown jutsu: %s", contract.ID, name)
			}
		}
		c.Contracts = append(c.Contracts, contract)
	}

	return c, nil
}

// Apply replaces the registry catalog. Workers already summoned keep their
// bindings.
func (c *Catalog) Apply(r *ninja.Registry) error {
	return r.ReplaceCatalog(c.Capabilities, c.Contracts)
}

// LoadMerged loads path over the built-in catalog and compiles the result.
// An empty path yields the built-in catalog.
func LoadMerged(path string) (*Catalog, error) {
	f := Default()
	if path != "" {
		overlay, err := Load(path)
		if err != nil {
			return nil, err
		}
		f = Merge(f, overlay)
	}
	return f.Compile()
}
