// Package load reads the two input files the mixture example needs: a YAML
// description of the candidate normal distributions and a file of data
// samples, one value per line. These replace mixture_fread.c's
// fscanf-based parsers with typed Go equivalents.
package load

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Normal describes the search ranges and mutation variances for one
// component of the mixture, mirroring struct normal in mixture.h.
type Normal struct {
	Name      string  `yaml:"name"`
	MuMin     float64 `yaml:"mu_min"`
	MuMax     float64 `yaml:"mu_max"`
	SigmaMin  float64 `yaml:"sigma_min"`
	SigmaMax  float64 `yaml:"sigma_max"`
	MuVar     float64 `yaml:"mu_var"`
	SigmaVar  float64 `yaml:"sigma_var"`
}

// distributionFile is the on-disk YAML schema: a flat list of normals.
type distributionFile struct {
	Distributions []Normal `yaml:"distributions"`
}

// Distributions reads a YAML file describing the normal distributions to
// fit, replacing read_mixture_file's "<name> (mu_min,mu_max) (sigma_min,
// sigma_max) mu_var sigma_var" line format with a typed schema.
func Distributions(path string) ([]Normal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: reading distribution file: %w", err)
	}

	var doc distributionFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("load: parsing distribution file: %w", err)
	}
	if len(doc.Distributions) == 0 {
		return nil, fmt.Errorf("load: %s declares no distributions", path)
	}

	for i, n := range doc.Distributions {
		if n.MuMin > n.MuMax {
			return nil, fmt.Errorf("load: distribution %q: mu_min > mu_max", n.Name)
		}
		if n.SigmaMin > n.SigmaMax {
			return nil, fmt.Errorf("load: distribution %q: sigma_min > sigma_max", n.Name)
		}
		if n.SigmaMin <= 0 {
			return nil, fmt.Errorf("load: distribution %q: sigma_min must be positive", n.Name)
		}
		doc.Distributions[i] = n
	}

	return doc.Distributions, nil
}

// Samples reads a data file of one floating point value per line, the same
// format read_data_file consumed via fscanf("%lf\n", ...).
func Samples(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: reading data file: %w", err)
	}
	defer f.Close()

	var samples []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("load: %s:%d: %w", path, line, err)
		}
		samples = append(samples, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load: %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("load: %s contains no samples", path)
	}

	return samples, nil
}
