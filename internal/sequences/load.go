package sequences

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/animseq/internal/models"
)

// LoadDefinition reads a single catalogue file from disk.
func LoadDefinition(path string) (*Definition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	def, err := parseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// LoadDefinitionsFromDir loads all catalogue files from a directory.
func LoadDefinitionsFromDir(dir string) ([]*Definition, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Definition{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Definition{}, nil
		}
		return nil, fmt.Errorf("read catalog dir %s: %w", dir, err)
	}

	defs := make([]*Definition, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isCatalogFile(entry.Name()) {
			continue
		}
		def, err := LoadDefinition(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})

	return defs, nil
}

func isCatalogFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func parseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}

	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, fmt.Errorf("catalog name is required")
	}
	def.Description = strings.TrimSpace(def.Description)

	if len(def.Steps) == 0 && len(def.Commands) == 0 {
		return nil, fmt.Errorf("catalog defines no steps or commands")
	}

	steps := make(map[string]StepDef, len(def.Steps))
	for tag, step := range def.Steps {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, fmt.Errorf("step tag is required")
		}
		if tag == models.TerminalTag {
			return nil, fmt.Errorf("step %q is reserved", tag)
		}
		if err := normalizeStep(&step); err != nil {
			return nil, fmt.Errorf("step %q: %w", tag, err)
		}
		steps[tag] = step
	}
	def.Steps = steps

	seen := make(map[models.Command]struct{})
	for i := range def.Commands {
		cmd := &def.Commands[i]
		cmd.Name = models.Command(strings.ToLower(strings.TrimSpace(string(cmd.Name))))
		if cmd.Name == "" {
			return nil, fmt.Errorf("command %d: name is required", i+1)
		}
		if _, exists := seen[cmd.Name]; exists {
			return nil, fmt.Errorf("duplicate command %q", cmd.Name)
		}
		seen[cmd.Name] = struct{}{}
		cmd.Description = strings.TrimSpace(cmd.Description)
		if len(cmd.Steps) == 0 {
			return nil, fmt.Errorf("command %q: steps are required", cmd.Name)
		}
		for j := range cmd.Steps {
			cmd.Steps[j] = strings.TrimSpace(cmd.Steps[j])
			if cmd.Steps[j] == "" {
				return nil, fmt.Errorf("command %q step %d: tag is required", cmd.Name, j+1)
			}
		}
	}

	return &def, nil
}

func normalizeStep(step *StepDef) error {
	step.Kind = models.StepKind(strings.ToLower(strings.TrimSpace(string(step.Kind))))
	step.Axis = strings.ToLower(strings.TrimSpace(step.Axis))
	step.Pose = strings.TrimSpace(step.Pose)

	switch step.Kind {
	case models.StepKindTranslate:
		if step.Axis != string(models.AxisX) && step.Axis != string(models.AxisZ) {
			return fmt.Errorf("translate axis must be x or z, got %q", step.Axis)
		}
		if step.Amount == 0 {
			return fmt.Errorf("translate amount must be non-zero")
		}

	case models.StepKindRotate:
		if _, err := models.ParseAxis(step.Axis); err != nil {
			return err
		}
		if step.Amount == 0 {
			return fmt.Errorf("rotate amount must be non-zero")
		}

	case models.StepKindPose:
		if step.Pose == "" {
			return fmt.Errorf("pose is required")
		}

	case models.StepKindToggle:

	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownStep, step.Kind)
	}

	return nil
}
