package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Reads the optional material file of a model. The format is one
 * `key = value` pair per line, `#` starts a comment:
 *
 *	name = crate
 *	diffuse_albedo = 1 1 1 1
 *	fresnel_r0 = 0.05 0.05 0.05
 *	roughness = 0.2
 *
 * Keys that are missing keep the values of params, a *metadata.MaterialConfig.
 */
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	defaults, ok := params.(*metadata.MaterialConfig)
	if !ok || defaults == nil {
		defaults = &metadata.MaterialConfig{
			DiffuseAlbedo: math.NewVec4(1, 1, 1, 1),
			FresnelR0:     math.NewVec3(0.05, 0.05, 0.05),
			Roughness:     0.2,
		}
	}
	mCfg, err := parseMaterialFile(path, *defaults)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeMaterial,
		Name:     mCfg.Name,
		FullPath: path,
		DataSize: uint64(unsafe.Sizeof(metadata.MaterialConfig{})),
		Data:     mCfg,
	}, nil
}

func (ml *MaterialLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

func parseMaterialFile(filename string, materialConfig metadata.MaterialConfig) (*metadata.MaterialConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if materialConfig.Name == "" {
		materialConfig.Name = resourceName(filename)
	}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			core.LogWarn("%s:%d: skipping invalid line: %s", filename, lineNo, line)
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "name":
			materialConfig.Name = value
		case "diffuse_albedo":
			v, err := parseFloats(value, 4)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: diffuse_albedo: %w", filename, lineNo, err)
			}
			materialConfig.DiffuseAlbedo = math.NewVec4(v[0], v[1], v[2], v[3])
		case "fresnel_r0":
			v, err := parseFloats(value, 3)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: fresnel_r0: %w", filename, lineNo, err)
			}
			materialConfig.FresnelR0 = math.NewVec3(v[0], v[1], v[2])
		case "roughness":
			v, err := parseFloats(value, 1)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: roughness: %w", filename, lineNo, err)
			}
			materialConfig.Roughness = v[0]
		default:
			core.LogError("Unknown key '%s' found in file. Skipping...", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := validateMaterial(&materialConfig); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &materialConfig, nil
}

func parseFloats(value string, n int) ([]float32, error) {
	fields := strings.Fields(value)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i, field := range fields {
		f, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", field)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func validateMaterial(material *metadata.MaterialConfig) error {
	a := material.DiffuseAlbedo
	if !inRange(a.X) || !inRange(a.Y) || !inRange(a.Z) || !inRange(a.W) {
		return fmt.Errorf("diffuse_albedo values must be between 0.0 and 1.0")
	}
	f := material.FresnelR0
	if !inRange(f.X) || !inRange(f.Y) || !inRange(f.Z) {
		return fmt.Errorf("fresnel_r0 values must be between 0.0 and 1.0")
	}
	if !inRange(material.Roughness) {
		return fmt.Errorf("roughness must be between 0.0 and 1.0")
	}
	return nil
}

// Check if a float32 value is within [0.0, 1.0]
func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}
