// Package jobfile loads clustering jobs from YAML or JSON files.
//
// Environment variables override the tunables in a file:
//
//	SSFCM_FUZZIFIER        - global fuzzifier exponent M
//	SSFCM_ALPHA            - supervision confidence threshold
//	SSFCM_EPSILON          - convergence tolerance
//	SSFCM_MAX_ITERATIONS   - iteration cap
//	SSFCM_NORM_MODE        - l2_normalization | min_max_scaling
package jobfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TrevorS/ssfcm"
)

// Job is the on-disk shape of a clustering request. Tunables left unset
// take the engine defaults.
type Job struct {
	Dataset       [][]float64 `yaml:"dataset"`
	FieldsLen     []int       `yaml:"fields_len"`
	FieldsWeight  []float64   `yaml:"fields_weight,omitempty"`
	Identity      []string    `yaml:"identity,omitempty"`
	SupervisedSet [][]string  `yaml:"supervised_set"`

	Fuzzifier     *float64 `yaml:"fuzzifier,omitempty"`
	Alpha         *float64 `yaml:"alpha,omitempty"`
	Epsilon       *float64 `yaml:"epsilon,omitempty"`
	MaxIterations *int     `yaml:"max_iterations,omitempty"`
	NormMode      string   `yaml:"norm_mode,omitempty"`
	Workers       int      `yaml:"workers,omitempty"`
}

// Load reads a job from path. JSON files are accepted since JSON is a
// subset of YAML.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a job from YAML or JSON bytes.
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobfile: %w", err)
	}
	return &job, nil
}

// ApplyEnv overrides tunables from SSFCM_* environment variables. Values
// that do not parse are reported as errors rather than ignored.
func (j *Job) ApplyEnv() error {
	if v := os.Getenv("SSFCM_FUZZIFIER"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("jobfile: SSFCM_FUZZIFIER: %w", err)
		}
		j.Fuzzifier = &f
	}
	if v := os.Getenv("SSFCM_ALPHA"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("jobfile: SSFCM_ALPHA: %w", err)
		}
		j.Alpha = &f
	}
	if v := os.Getenv("SSFCM_EPSILON"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("jobfile: SSFCM_EPSILON: %w", err)
		}
		j.Epsilon = &f
	}
	if v := os.Getenv("SSFCM_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("jobfile: SSFCM_MAX_ITERATIONS: %w", err)
		}
		j.MaxIterations = &n
	}
	if v := os.Getenv("SSFCM_NORM_MODE"); v != "" {
		j.NormMode = strings.TrimSpace(v)
	}
	return nil
}

// Config builds a new ssfcm.Config from the job. The returned value shares
// no slices with j.
func (j *Job) Config() ssfcm.Config {
	cfg := ssfcm.DefaultConfig()
	cfg.FieldsLen = append([]int(nil), j.FieldsLen...)
	cfg.FieldsWeight = append([]float64(nil), j.FieldsWeight...)
	cfg.Identity = append([]string(nil), j.Identity...)
	cfg.SupervisedSet = make([][]string, len(j.SupervisedSet))
	for i, group := range j.SupervisedSet {
		cfg.SupervisedSet[i] = append([]string{}, group...)
	}
	if j.Fuzzifier != nil {
		cfg.Fuzzifier = *j.Fuzzifier
	}
	if j.Alpha != nil {
		cfg.Alpha = *j.Alpha
	}
	if j.Epsilon != nil {
		cfg.Epsilon = *j.Epsilon
	}
	if j.MaxIterations != nil {
		cfg.MaxIterations = *j.MaxIterations
	}
	if j.NormMode != "" {
		cfg.NormMode = ssfcm.NormMode(j.NormMode)
	}
	cfg.Workers = j.Workers
	return cfg
}
