package sequences

import (
	"fmt"
	"sort"

	"github.com/opencode-ai/animseq/internal/models"
)

// CommandInfo describes a compiled command.
type CommandInfo struct {
	Name        models.Command `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags"`
	Source      string         `json:"source"`
}

// Catalog maps commands to pre-decoded steps. It is immutable once built.
type Catalog struct {
	units    Units
	commands map[models.Command]compiledCommand
	order    []models.Command
}

type compiledCommand struct {
	info  CommandInfo
	steps []models.Step
}

// NewCatalog compiles definitions into a catalog.
//
// Definitions are consulted in order: the first definition that names a step
// tag or command wins. Every command tag must resolve, so a bad catalogue
// fails here instead of at tick time.
func NewCatalog(defs []*Definition, units Units) (*Catalog, error) {
	if units.MoveRate <= 0 || units.RotateAngle <= 0 {
		return nil, fmt.Errorf("move rate and rotate angle must be positive")
	}

	steps := make(map[string]StepDef)
	for _, def := range defs {
		if def == nil {
			continue
		}
		for tag, step := range def.Steps {
			if _, exists := steps[tag]; !exists {
				steps[tag] = step
			}
		}
	}

	c := &Catalog{
		units:    units,
		commands: make(map[models.Command]compiledCommand),
	}
	for _, def := range defs {
		if def == nil {
			continue
		}
		for _, cmd := range def.Commands {
			if _, exists := c.commands[cmd.Name]; exists {
				continue
			}
			compiled, err := c.compile(cmd, steps)
			if err != nil {
				return nil, fmt.Errorf("catalog %q: %w", def.Name, err)
			}
			compiled.info.Source = def.Source
			c.commands[cmd.Name] = compiled
			c.order = append(c.order, cmd.Name)
		}
	}

	sort.SliceStable(c.order, func(i, j int) bool {
		return commandRank(c.order[i]) < commandRank(c.order[j])
	})

	return c, nil
}

func (c *Catalog) compile(cmd CommandDef, steps map[string]StepDef) (compiledCommand, error) {
	out := make([]models.Step, 0, len(cmd.Steps))
	for i, tag := range cmd.Steps {
		if tag == models.TerminalTag {
			if i != len(cmd.Steps)-1 {
				return compiledCommand{}, fmt.Errorf("command %q: %q must be the last step", cmd.Name, tag)
			}
			continue
		}
		def, ok := steps[tag]
		if !ok {
			return compiledCommand{}, fmt.Errorf("command %q step %d: %w %q", cmd.Name, i+1, ErrUnknownStep, tag)
		}
		out = append(out, c.decode(tag, def))
	}

	// NewSequence validates and appends the terminal step.
	seq, err := models.NewSequence(cmd.Name, out)
	if err != nil {
		return compiledCommand{}, fmt.Errorf("command %q: %w", cmd.Name, err)
	}

	return compiledCommand{
		info: CommandInfo{
			Name:        cmd.Name,
			Description: cmd.Description,
			Tags:        seq.Tags(),
		},
		steps: seq.Steps,
	}, nil
}

func (c *Catalog) decode(tag string, def StepDef) models.Step {
	step := models.Step{
		Tag:  tag,
		Kind: def.Kind,
		Pose: def.Pose,
	}
	switch def.Kind {
	case models.StepKindTranslate:
		step.Axis = models.Axis(def.Axis)
		step.Amount = def.Amount * c.units.MoveRate
	case models.StepKindRotate:
		step.Axis = models.Axis(def.Axis)
		step.Amount = def.Amount * c.units.RotateAngle
	}
	return step
}

// Build returns a fresh sequence for command.
func (c *Catalog) Build(command models.Command) (models.Sequence, error) {
	compiled, ok := c.commands[command]
	if !ok {
		return models.Sequence{}, fmt.Errorf("%w %q", ErrUnknownCommand, command)
	}
	steps := make([]models.Step, len(compiled.steps))
	copy(steps, compiled.steps)
	return models.NewSequence(command, steps)
}

// Has reports whether the catalog knows command.
func (c *Catalog) Has(command models.Command) bool {
	_, ok := c.commands[command]
	return ok
}

// Commands lists the compiled commands, builtin commands first.
func (c *Catalog) Commands() []CommandInfo {
	out := make([]CommandInfo, 0, len(c.order))
	for _, name := range c.order {
		info := c.commands[name].info
		info.Tags = append([]string(nil), info.Tags...)
		out = append(out, info)
	}
	return out
}

// Units returns the scaling used when the catalog was compiled.
func (c *Catalog) Units() Units {
	return c.units
}

func commandRank(name models.Command) int {
	for i, builtin := range models.Commands {
		if builtin == name {
			return i
		}
	}
	return len(models.Commands)
}
