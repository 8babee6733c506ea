package entities

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile builds a Library from the defaults merged with a YAML override file.
// An empty path returns the defaults.
func LoadFile(path string) (*Library, error) {
	def := DefaultDefinition()
	if path == "" {
		return New(def), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity library %s: %w", path, err)
	}

	var override Definition
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse entity library %s: %w", path, err)
	}

	return New(Merge(def, override)), nil
}

// Merge appends override lists to base and lets override map entries win.
func Merge(base, override Definition) Definition {
	out := base
	out.Departments = append(append([]string(nil), base.Departments...), override.Departments...)
	out.Roles = append(append([]string(nil), base.Roles...), override.Roles...)
	out.Skills = append(append([]string(nil), base.Skills...), override.Skills...)
	out.Locations = append(append([]string(nil), base.Locations...), override.Locations...)
	out.Abbreviations = mergeMap(base.Abbreviations, override.Abbreviations)
	out.SkillSynonyms = mergeMap(base.SkillSynonyms, override.SkillSynonyms)
	out.RoleSynonyms = mergeMap(base.RoleSynonyms, override.RoleSynonyms)
	out.LocationAlias = mergeMap(base.LocationAlias, override.LocationAlias)
	out.TermSynonyms = mergeMap(base.TermSynonyms, override.TermSynonyms)
	out.Plurals = mergeMap(base.Plurals, override.Plurals)
	return out
}

func mergeMap(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
