package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/scheduler"
)

const requestYAML = `
timeSlots:
  - "09:00-10:00"
  - "10:00-11:00"
breaks: []
subjectsPerClass:
  Class 4A: [Math]
classDetails:
  - name: Class 4A
    students: 30
faculty:
  - name: Mr. Rao
    subjects: [Math]
    availability: Mon Tue Wed Thu Fri
    maxHours: 10
rooms:
  - name: Room 101
    type: theory
    capacity: 40
holidays: []
`

func newTestApp() (*AppContext, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &AppContext{Logger: zap.NewNop(), Stdout: out}, out
}

func run(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func writeRequest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(requestYAML), 0o644))
	return path
}

func TestGenerateWritesJSONTimetable(t *testing.T) {
	app, stdout := newTestApp()
	input := writeRequest(t)

	require.NoError(t, run(GenerateCmd(app), "-i", input))

	var out scheduler.Output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out.Timetable[scheduler.Day("Monday")], 2)
	entry := out.Timetable[scheduler.Day("Monday")][0]
	assert.Equal(t, "Math", entry.Subject)
	assert.Equal(t, "Mr. Rao", entry.Teacher)
	assert.Equal(t, "Room 101", entry.Room)
}

func TestGenerateExportsXLSXToFile(t *testing.T) {
	app, _ := newTestApp()
	input := writeRequest(t)
	output := filepath.Join(t.TempDir(), "timetable.xlsx")

	require.NoError(t, run(GenerateCmd(app), "-i", input, "-f", "xlsx", "-o", output))

	body, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	app, _ := newTestApp()
	err := run(GenerateCmd(app), "-i", writeRequest(t), "-f", "docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestGenerateRequiresInput(t *testing.T) {
	app, _ := newTestApp()
	assert.Error(t, run(GenerateCmd(app)))
}

func TestVerifyAcceptsGeneratedTimetable(t *testing.T) {
	input := writeRequest(t)
	timetable := filepath.Join(t.TempDir(), "timetable.json")

	genApp, _ := newTestApp()
	require.NoError(t, run(GenerateCmd(genApp), "-i", input, "-o", timetable))

	app, stdout := newTestApp()
	require.NoError(t, run(VerifyCmd(app), "-i", input, "-t", timetable))
	assert.Contains(t, stdout.String(), "OK: no violations")
}

func TestVerifyReportsViolations(t *testing.T) {
	input := writeRequest(t)
	genApp, generated := newTestApp()
	require.NoError(t, run(GenerateCmd(genApp), "-i", input))

	tampered := strings.Replace(generated.String(), "Room 101", "Room 999", 1)
	timetable := filepath.Join(t.TempDir(), "timetable.json")
	require.NoError(t, os.WriteFile(timetable, []byte(tampered), 0o644))

	app, stdout := newTestApp()
	err := run(VerifyCmd(app), "-i", input, "-t", timetable)
	require.ErrorIs(t, err, ErrViolations)
	assert.Contains(t, stdout.String(), scheduler.ViolationUnknownRoom)
}

func TestLoadRequestRawForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.json")
	form := map[string]string{
		"timeSlots":        `["09:00-10:00"]`,
		"breaks":           `[]`,
		"subjectsPerClass": `{"Class 4A":["Math"]}`,
		"classDetails":     `[{"name":"Class 4A","students":30}]`,
		"faculty":          `[{"name":"Mr. Rao","subjects":["Math"],"availability":"Mon","maxHours":5}]`,
		"rooms":            `[{"name":"Room 101","type":"theory","capacity":40}]`,
		"holidays":         `[]`,
	}
	data, err := json.Marshal(form)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	req, err := loadRequest(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-10:00"}, req.TimeSlots)
	assert.Equal(t, "Mr. Rao", req.Faculty[0].Name)
}

func TestLoadRequestRawFormYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.yaml")
	form := `timeSlots: '["09:00-10:00","10:00-11:00"]'
breaks: '["10:00-11:00"]'
subjectsPerClass: '{"Class 4A":["Math"]}'
classDetails: '[{"name":"Class 4A","students":30}]'
faculty: '[{"name":"Mr. Rao","subjects":["Math"],"availability":"Mon","maxHours":5}]'
rooms: '[{"name":"Room 101","type":"theory","capacity":40}]'
holidays: '["Friday"]'
specialDemands: 'Math in the morning'
`
	require.NoError(t, os.WriteFile(path, []byte(form), 0o644))

	req, err := loadRequest(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, req.TimeSlots)
	assert.Equal(t, []string{"10:00-11:00"}, req.Breaks)
	assert.Equal(t, []string{"Math"}, req.SubjectsPerClass["Class 4A"])
	assert.Equal(t, "Class 4A", req.ClassDetails[0].Name)
	assert.Equal(t, "Mr. Rao", req.Faculty[0].Name)
	assert.Equal(t, "Room 101", req.Rooms[0].Name)
	assert.Equal(t, []string{"Friday"}, req.Holidays)
	assert.Equal(t, "Math in the morning", req.SpecialDemands)
}

func TestGenerateFlagUsage(t *testing.T) {
	app, _ := newTestApp()
	flags := GenerateCmd(app).Flags()

	assert.Contains(t, flags.Lookup("max-consecutive").Usage, "per class")
	assert.Contains(t, flags.Lookup("strict").Usage, "time windows")
}

func TestTokenIssuesBearerToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	app, stdout := newTestApp()

	require.NoError(t, run(TokenCmd(app), "--user", "admin-1", "--role", "admin"))

	token := strings.TrimSpace(stdout.String())
	assert.Equal(t, 3, len(strings.Split(token, ".")))
}
