package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/study-planner-api/internal/timetable"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/export"
	"github.com/noah-isme/study-planner-api/pkg/logger"
)

const (
	dateLayout   = "2006-01-02"
	maxDaysCount = 366
)

// planFile is the YAML input. Command-line flags override its constraint fields.
type planFile struct {
	HoursPerDay     float64             `yaml:"hours_per_day"`
	PreferredBlocks []string            `yaml:"preferred_blocks"`
	ExamDate        string              `yaml:"exam_date"`
	DaysCount       int                 `yaml:"days_count"`
	Spread          bool                `yaml:"spread"`
	Subjects        []timetable.Subject `yaml:"subjects"`
}

type generateOptions struct {
	subjectsPath string
	output       string
	format       string
	hoursPerDay  float64
	blocks       []string
	examDate     string
	daysCount    int
	spread       bool
	today        string
	timezone     string
	granularity  int
}

var genOpts generateOptions

const generateExample = `  timetable generate --subjects subjects.yaml
  timetable generate --subjects subjects.yaml --hours 3 --blocks Evening,Morning --exam-date 2026-02-01 --spread
  timetable generate --subjects subjects.yaml --format pdf -o plan.pdf`

var generateCmd = &cobra.Command{
	Use:     "generate",
	Short:   "Generate a timetable from a YAML subject file",
	Example: generateExample,
	RunE:    runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.StringVarP(&genOpts.subjectsPath, "subjects", "s", "", "Path to the YAML subject file (required)")
	flags.StringVarP(&genOpts.output, "output", "o", "", "Write output to this file instead of stdout")
	flags.StringVarP(&genOpts.format, "format", "f", "table", "Output format: table, json, yaml, csv or pdf")
	flags.Float64Var(&genOpts.hoursPerDay, "hours", 0, "Study hours per day (default 4)")
	flags.StringSliceVar(&genOpts.blocks, "blocks", nil, "Preferred blocks in order, e.g. Morning,Evening")
	flags.StringVar(&genOpts.examDate, "exam-date", "", "Exam date (YYYY-MM-DD); the horizon ends the day before")
	flags.IntVar(&genOpts.daysCount, "days", 0, "Planning horizon in days (default 7)")
	flags.BoolVar(&genOpts.spread, "spread", false, "Prefer the least loaded day instead of filling days in order")
	flags.StringVar(&genOpts.today, "today", "", "Override the start date (YYYY-MM-DD)")
	flags.StringVar(&genOpts.timezone, "timezone", "UTC", "Timezone used to resolve today and the exam date")
	flags.IntVar(&genOpts.granularity, "granularity", timetable.DefaultGranularity, "Allocation rounding step in minutes")
	_ = generateCmd.MarkFlagRequired("subjects")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	logr, err := logger.NewCLI(verbose)
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	raw, err := os.ReadFile(genOpts.subjectsPath)
	if err != nil {
		return fmt.Errorf("read subjects: %w", err)
	}
	var plan planFile
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return fmt.Errorf("parse %s: %w", genOpts.subjectsPath, err)
	}
	applyFlagOverrides(cmd, &plan, genOpts)

	req, start, err := buildRequest(plan, genOpts)
	if err != nil {
		return err
	}

	schedule, err := timetable.NewGenerator(timetable.Options{Granularity: genOpts.granularity}).Generate(req)
	if err != nil {
		return err
	}
	logr.Info("timetable generated",
		zap.Int("subjects", len(req.Subjects)),
		zap.Int("sessions", len(schedule.Sessions)),
		zap.Int("horizon_days", schedule.HorizonDays),
		zap.Int("unplaced_minutes", schedule.UnplacedMinutes),
	)
	if schedule.UnplacedMinutes > 0 {
		logr.Warn("not all study time fits the horizon", zap.Int("unplaced_minutes", schedule.UnplacedMinutes))
	}

	content, err := render(schedule, start, genOpts.format)
	if err != nil {
		return err
	}
	if genOpts.output == "" {
		if genOpts.format == "pdf" {
			return fmt.Errorf("pdf output requires --output")
		}
		_, err = cmd.OutOrStdout().Write(content)
		return err
	}
	return os.WriteFile(genOpts.output, content, 0o644)
}

// applyFlagOverrides copies only the flags the user actually set onto the file values.
func applyFlagOverrides(cmd *cobra.Command, plan *planFile, opts generateOptions) {
	flags := cmd.Flags()
	if flags.Changed("hours") {
		plan.HoursPerDay = opts.hoursPerDay
	}
	if flags.Changed("blocks") {
		plan.PreferredBlocks = opts.blocks
	}
	if flags.Changed("exam-date") {
		plan.ExamDate = opts.examDate
	}
	if flags.Changed("days") {
		plan.DaysCount = opts.daysCount
	}
	if flags.Changed("spread") {
		plan.Spread = opts.spread
	}
}

func buildRequest(plan planFile, opts generateOptions) (timetable.Request, time.Time, error) {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return timetable.Request{}, time.Time{}, invalidInput(err, fmt.Sprintf("invalid timezone %q", opts.timezone))
	}

	today := time.Now().In(loc)
	if opts.today != "" {
		today, err = time.ParseInLocation(dateLayout, opts.today, loc)
		if err != nil {
			return timetable.Request{}, time.Time{}, invalidInput(err, "invalid --today")
		}
	}

	req := timetable.Request{
		Subjects:        plan.Subjects,
		HoursPerDay:     plan.HoursPerDay,
		PreferredBlocks: plan.PreferredBlocks,
		DaysCount:       plan.DaysCount,
		Today:           today,
		Spread:          plan.Spread,
	}
	if req.HoursPerDay == 0 {
		req.HoursPerDay = 4
	}
	if len(req.PreferredBlocks) == 0 {
		req.PreferredBlocks = timetable.DefaultBlockNames
	}
	if req.DaysCount == 0 {
		req.DaysCount = 7
	}
	if req.DaysCount > maxDaysCount {
		return timetable.Request{}, time.Time{}, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("days_count must not exceed %d", maxDaysCount))
	}
	if plan.ExamDate != "" {
		exam, err := time.ParseInLocation(dateLayout, plan.ExamDate, loc)
		if err != nil {
			return timetable.Request{}, time.Time{}, invalidInput(err, "invalid exam_date")
		}
		req.ExamDate = &exam
	}

	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	return req, start, nil
}

func invalidInput(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, appErrors.ErrInvalidRequest.Status, message)
}

var tableHeaders = []string{"Date", "Day", "Start", "End", "Block", "Session", "Type", "Minutes"}

func render(schedule timetable.Schedule, start time.Time, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(schedule, "", "  ")
	case "yaml":
		return yaml.Marshal(schedule)
	case "csv":
		return export.NewCSVExporter().Render(dataset(schedule, start))
	case "pdf":
		return export.NewPDFExporter().Render(dataset(schedule, start), "Study plan from "+start.Format(dateLayout))
	case "table", "":
		buf := &bytes.Buffer{}
		if err := writeTable(buf, schedule, start); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func dataset(schedule timetable.Schedule, start time.Time) export.Dataset {
	rows := make([]map[string]string, 0, len(schedule.Sessions))
	for _, session := range schedule.Sessions {
		rows = append(rows, sessionRow(session, start))
	}
	return export.Dataset{
		Headers: tableHeaders,
		Rows:    rows,
		Summary: []export.Field{
			{Label: "Total hours", Value: fmt.Sprintf("%.1f", schedule.TotalHours)},
			{Label: "Days used", Value: fmt.Sprintf("%d of %d", schedule.Days, schedule.HorizonDays)},
			{Label: "Subjects covered", Value: fmt.Sprintf("%d", schedule.SubjectsCovered)},
			{Label: "Unplaced minutes", Value: fmt.Sprintf("%d", schedule.UnplacedMinutes)},
		},
	}
}

func sessionRow(session timetable.Session, start time.Time) map[string]string {
	end := session.StartTime
	if clock, err := time.Parse("15:04", session.StartTime); err == nil {
		end = clock.Add(time.Duration(session.DurationMinutes) * time.Minute).Format("15:04")
	}
	return map[string]string{
		"Date":    start.AddDate(0, 0, session.DayIndex).Format(dateLayout),
		"Day":     fmt.Sprintf("%d", session.DayIndex+1),
		"Start":   session.StartTime,
		"End":     end,
		"Block":   session.Block,
		"Session": session.Title,
		"Type":    string(session.SessionType),
		"Minutes": fmt.Sprintf("%d", session.DurationMinutes),
	}
}

func writeTable(w io.Writer, schedule timetable.Schedule, start time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeaders, "\t"))
	for _, session := range schedule.Sessions {
		row := sessionRow(session, start)
		values := make([]string, len(tableHeaders))
		for i, header := range tableHeaders {
			values[i] = row[header]
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%.1f h over %d of %d days, %d subjects covered, %d min unplaced\n",
		schedule.TotalHours, schedule.Days, schedule.HorizonDays, schedule.SubjectsCovered, schedule.UnplacedMinutes)
	return err
}
