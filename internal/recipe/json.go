package recipe

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ParseJSON decodes the JSON recipe dialect (dub.json / package.json)
// into the surface-agnostic IR.
func ParseJSON(b []byte) (*Recipe, error) {
	var raw map[string]json.RawValue
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding JSON recipe")
	}
	return parseJSONObject(raw)
}

func parseJSONObject(raw map[string]json.RawValue) (*Recipe, error) {
	r := &Recipe{}
	settingsByKey := map[string]SuffixedSettings{}
	var suffixOrder []string

	for key, val := range raw {
		switch key {
		case "name":
			if err := json.Unmarshal(val, &r.Name); err != nil {
				return nil, errors.Wrap(err, "decoding name")
			}
		case "version":
			if err := json.Unmarshal(val, &r.Version); err != nil {
				return nil, errors.Wrap(err, "decoding version")
			}
		case "description":
			json.Unmarshal(val, &r.Description)
		case "homepage":
			json.Unmarshal(val, &r.Homepage)
		case "license":
			json.Unmarshal(val, &r.License)
		case "authors":
			if err := decodeStringList(val, &r.Authors); err != nil {
				return nil, errors.Wrap(err, "decoding authors")
			}
		case "dependencies":
			deps, err := parseDependencyMap(val)
			if err != nil {
				return nil, errors.Wrap(err, "decoding dependencies")
			}
			r.Dependencies = deps
		case "configurations":
			cfgs, err := parseConfigurations(val)
			if err != nil {
				return nil, errors.Wrap(err, "decoding configurations")
			}
			r.Configurations = cfgs
		case "subPackages":
			subs, err := parseSubPackages(val)
			if err != nil {
				return nil, errors.Wrap(err, "decoding subPackages")
			}
			r.SubPackages = subs
		default:
			name, suffix := splitSuffixedKey(key)
			if !knownFieldNames[name] {
				r.UnknownFields = append(r.UnknownFields, key)
				continue
			}
			entry := settingsByKey[suffix]
			entry.Suffix = suffix
			if err := applySettingsField(&entry.Settings, name, val); err != nil {
				return nil, errors.Wrapf(err, "decoding %q", key)
			}
			if _, seen := settingsByKey[suffix]; !seen {
				suffixOrder = append(suffixOrder, suffix)
			}
			settingsByKey[suffix] = entry
		}
	}

	sort.Strings(suffixOrder)
	for _, s := range suffixOrder {
		r.RootSettings = append(r.RootSettings, settingsByKey[s])
	}
	sort.Strings(r.UnknownFields)
	return r, nil
}

func decodeStringList(val json.RawValue, out *[]string) error {
	var list []string
	if err := json.Unmarshal(val, &list); err == nil {
		*out = append(*out, list...)
		return nil
	}
	var single string
	if err := json.Unmarshal(val, &single); err != nil {
		return err
	}
	*out = append(*out, single)
	return nil
}

func applySettingsField(s *BuildSettings, name string, val json.RawValue) error {
	switch name {
	case "dflags":
		return decodeStringList(val, &s.DFlags)
	case "lflags":
		return decodeStringList(val, &s.LFlags)
	case "libs":
		return decodeStringList(val, &s.Libs)
	case "importPaths":
		return decodeStringList(val, &s.ImportPaths)
	case "stringImportPaths":
		return decodeStringList(val, &s.StringImportPaths)
	case "versions":
		return decodeStringList(val, &s.Versions)
	case "sourceFiles":
		return decodeStringList(val, &s.SourceFiles)
	case "excludedSourceFiles":
		return decodeStringList(val, &s.ExcludedSourceFiles)
	case "copyFiles":
		return decodeStringList(val, &s.CopyFiles)
	case "preBuildCommands":
		return decodeStringList(val, &s.PreBuildCommands)
	case "postBuildCommands":
		return decodeStringList(val, &s.PostBuildCommands)
	case "environments":
		if s.Environments == nil {
			s.Environments = map[string]string{}
		}
		return json.Unmarshal(val, &s.Environments)
	case "mainSourceFile":
		return json.Unmarshal(val, &s.MainSourceFile)
	case "targetType":
		return json.Unmarshal(val, &s.TargetType)
	case "targetName":
		return json.Unmarshal(val, &s.TargetName)
	case "targetPath":
		return json.Unmarshal(val, &s.TargetPath)
	default:
		return errors.Errorf("unhandled settings field %q", name)
	}
}

type rawDependencySpec struct {
	Version    string `json:"version"`
	Path       string `json:"path"`
	Repository string `json:"repository"`
	Optional   bool   `json:"optional"`
	Default    bool   `json:"default"`
}

func parseDependencyMap(val json.RawValue) ([]Dependency, error) {
	var raw map[string]json.RawValue
	if err := json.Unmarshal(val, &raw); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)

	deps := make([]Dependency, 0, len(names))
	for _, key := range names {
		name, sub := splitDependencyName(key)
		d := Dependency{Name: name, SubPackage: sub}

		var asString string
		if err := json.Unmarshal(raw[key], &asString); err == nil {
			d.Constraint = asString
			deps = append(deps, d)
			continue
		}

		var spec rawDependencySpec
		if err := json.Unmarshal(raw[key], &spec); err != nil {
			return nil, errors.Wrapf(err, "dependency %q", key)
		}
		d.Constraint = spec.Version
		d.Path = spec.Path
		d.Repository = spec.Repository
		d.Optional = spec.Optional
		d.Default = spec.Default
		deps = append(deps, d)
	}
	return deps, nil
}

func splitDependencyName(key string) (name, sub string) {
	if idx := strings.IndexByte(key, ':'); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return key, ""
}

func parseConfigurations(val json.RawValue) ([]Configuration, error) {
	var rawList []map[string]json.RawValue
	if err := json.Unmarshal(val, &rawList); err != nil {
		return nil, err
	}

	cfgs := make([]Configuration, 0, len(rawList))
	for _, raw := range rawList {
		c := Configuration{}
		settingsByKey := map[string]SuffixedSettings{}
		var suffixOrder []string

		for key, v := range raw {
			switch key {
			case "name":
				json.Unmarshal(v, &c.Name)
			case "platforms":
				if err := decodeStringList(v, &c.Platforms); err != nil {
					return nil, errors.Wrap(err, "decoding configuration platforms")
				}
			case "subConfigurations":
				c.SubConfigurations = map[string]string{}
				if err := json.Unmarshal(v, &c.SubConfigurations); err != nil {
					return nil, errors.Wrap(err, "decoding subConfigurations")
				}
			default:
				name, suffix := splitSuffixedKey(key)
				if !knownFieldNames[name] {
					continue
				}
				entry := settingsByKey[suffix]
				entry.Suffix = suffix
				if err := applySettingsField(&entry.Settings, name, v); err != nil {
					return nil, errors.Wrapf(err, "configuration %q key %q", c.Name, key)
				}
				if _, seen := settingsByKey[suffix]; !seen {
					suffixOrder = append(suffixOrder, suffix)
				}
				settingsByKey[suffix] = entry
			}
		}

		sort.Strings(suffixOrder)
		for _, s := range suffixOrder {
			c.Settings = append(c.Settings, settingsByKey[s])
		}
		cfgs = append(cfgs, c)
	}
	return cfgs, nil
}

func parseSubPackages(val json.RawValue) ([]SubPackageRef, error) {
	var rawList []json.RawValue
	if err := json.Unmarshal(val, &rawList); err != nil {
		return nil, err
	}

	refs := make([]SubPackageRef, 0, len(rawList))
	for _, item := range rawList {
		var path string
		if err := json.Unmarshal(item, &path); err == nil {
			refs = append(refs, SubPackageRef{Path: path})
			continue
		}

		var obj map[string]json.RawValue
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, err
		}
		inline, err := parseJSONObject(obj)
		if err != nil {
			return nil, err
		}
		refs = append(refs, SubPackageRef{Inline: inline})
	}
	return refs, nil
}
