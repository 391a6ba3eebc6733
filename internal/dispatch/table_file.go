package dispatch

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"signsync/internal/domain"
)

// Tables is an endpoint table file. Either section may be omitted, in which
// case the caller keeps its built-in table.
type Tables struct {
	Recording Table
	Frame     Table
}

type tableFile struct {
	Recording map[string]Route `mapstructure:"recording" validate:"omitempty,dive"`
	Frame     map[string]Route `mapstructure:"frame" validate:"omitempty,dive"`
}

// LoadTables reads a YAML, TOML or JSON endpoint table file.
func LoadTables(path string) (Tables, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Tables{}, fmt.Errorf("failed to read endpoint table %q: %w", path, err)
	}

	var file tableFile
	if err := v.Unmarshal(&file); err != nil {
		return Tables{}, fmt.Errorf("failed to decode endpoint table %q: %w", path, err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return Tables{}, fmt.Errorf("invalid endpoint table %q: %w", path, err)
	}

	recording, err := buildTable(file.Recording)
	if err != nil {
		return Tables{}, fmt.Errorf("invalid recording section in %q: %w", path, err)
	}
	frame, err := buildTable(file.Frame)
	if err != nil {
		return Tables{}, fmt.Errorf("invalid frame section in %q: %w", path, err)
	}
	return Tables{Recording: recording, Frame: frame}, nil
}

func buildTable(routes map[string]Route) (Table, error) {
	if len(routes) == 0 {
		return nil, nil
	}

	table := Table{}
	for name, route := range routes {
		task, err := domain.ParseTask(name)
		if err != nil {
			return nil, err
		}
		if !isEndpoint(route.Path) {
			return nil, fmt.Errorf("task %q: path %q must start with / or be an http(s) URL", task, route.Path)
		}
		table[task] = route
	}
	for _, task := range domain.Tasks() {
		if _, ok := table[task]; !ok {
			return nil, fmt.Errorf("missing route for task %q", task)
		}
	}
	return table, nil
}

func isEndpoint(path string) bool {
	return strings.HasPrefix(path, "/") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://")
}
