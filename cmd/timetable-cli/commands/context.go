package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// AppContext holds dependencies shared by every command.
type AppContext struct {
	Logger *zap.Logger
	Stdout io.Writer
}

func (a *AppContext) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *AppContext) stdout() io.Writer {
	if a.Stdout == nil {
		return os.Stdout
	}
	return a.Stdout
}

// decodeFile reads JSON or YAML into dest. YAML is a superset of JSON, so
// anything that is not a .json file goes through yaml.v3.
func decodeFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// loadRequest decodes a typed request, or the string-encoded form payload when raw is set.
func loadRequest(path string, raw bool) (scheduler.Request, error) {
	if !raw {
		var req scheduler.Request
		err := decodeFile(path, &req)
		return req, err
	}
	var form scheduler.RawRequest
	if err := decodeFile(path, &form); err != nil {
		return scheduler.Request{}, err
	}
	return scheduler.ParseRaw(form)
}

// loadSchedule accepts either {"timetable": {...}} or the bare day map.
func loadSchedule(path string) (scheduler.WeeklySchedule, error) {
	var out scheduler.Output
	if err := decodeFile(path, &out); err == nil && len(out.Timetable) > 0 {
		return out.Timetable, nil
	}
	var schedule scheduler.WeeklySchedule
	if err := decodeFile(path, &schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func writeOutput(app *AppContext, path string, body []byte) error {
	if path == "" || path == "-" {
		_, err := app.stdout().Write(body)
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	app.logger().Info("output written", zap.String("path", path), zap.Int("bytes", len(body)))
	return nil
}
