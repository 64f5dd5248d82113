package model

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact file names inside the configured model directory. All three must
// be present for the learned detector to activate; anything else is the
// supported "model absent" configuration.
const (
	weightsFile = "model.onnx"
	specFile    = "model.json"
	classesFile = "classes.txt"
)

// Spec describes the pretrained network so the wrapper can feed and read it
// without hardcoding a particular export. It is loaded from model.json next
// to the weights.
type Spec struct {
	// InputName and OutputName are the ONNX tensor names.
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`

	// InputSize is the square side the image is letterboxed to.
	InputSize int `json:"input_size"`

	// OutputRows and OutputAttrs describe the detection tensor layout:
	// OutputRows proposals of OutputAttrs values each, where a row is
	// (cx, cy, w, h, objectness, class scores...). This matches YOLO
	// v4/v5-style exports.
	OutputRows  int `json:"output_rows"`
	OutputAttrs int `json:"output_attrs"`
}

// Artifacts is a located, validated set of model files plus the parsed spec
// and class name list.
type Artifacts struct {
	WeightsPath string
	Spec        Spec
	Classes     []string
}

// Locate probes dir for the three artifact files and loads the two small
// ones.
//
// A missing directory or file returns an error; the caller treats every
// error from here as "learned detector unavailable", not as a failure of
// the pipeline.
func Locate(dir string) (*Artifacts, error) {
	if dir == "" {
		return nil, fmt.Errorf("model directory not configured")
	}

	weights := filepath.Join(dir, weightsFile)
	if _, err := os.Stat(weights); err != nil {
		return nil, fmt.Errorf("weights %s: %w", weights, err)
	}

	spec, err := loadSpec(filepath.Join(dir, specFile))
	if err != nil {
		return nil, err
	}

	classes, err := loadClasses(filepath.Join(dir, classesFile))
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		WeightsPath: weights,
		Spec:        spec,
		Classes:     classes,
	}, nil
}

func loadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("model spec %s: %w", path, err)
	}

	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("model spec %s: %w", path, err)
	}

	if spec.InputName == "" || spec.OutputName == "" {
		return Spec{}, fmt.Errorf("model spec %s: tensor names missing", path)
	}
	if spec.InputSize <= 0 {
		return Spec{}, fmt.Errorf("model spec %s: input_size must be positive", path)
	}
	if spec.OutputRows <= 0 || spec.OutputAttrs < 6 {
		return Spec{}, fmt.Errorf("model spec %s: implausible output layout %dx%d",
			path, spec.OutputRows, spec.OutputAttrs)
	}

	return spec, nil
}

func loadClasses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("class names %s: %w", path, err)
	}
	defer f.Close()

	var classes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			classes = append(classes, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("class names %s: %w", path, err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("class names %s: empty", path)
	}

	return classes, nil
}
