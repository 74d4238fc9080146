package shared

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// LogLevel mirrors the zerolog levels the CLI exposes.
type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelSuccess
	LevelError
	LevelFatal
)

var zerologLevels = map[LogLevel]zerolog.Level{
	LevelTrace:   zerolog.TraceLevel,
	LevelDebug:   zerolog.DebugLevel,
	LevelInfo:    zerolog.InfoLevel,
	LevelWarn:    zerolog.WarnLevel,
	LevelSuccess: zerolog.InfoLevel,
	LevelError:   zerolog.ErrorLevel,
	LevelFatal:   zerolog.FatalLevel,
}

var levelLabels = map[string]string{
	zerolog.LevelTraceValue: "TRACE",
	zerolog.LevelDebugValue: "DEBUG",
	zerolog.LevelInfoValue:  "INFO ",
	zerolog.LevelWarnValue:  "WARN ",
	zerolog.LevelErrorValue: "ERROR",
	zerolog.LevelFatalValue: "FATAL",
}

var levelPainters = map[string]func(a ...interface{}) string{
	zerolog.LevelTraceValue: color.New(color.FgHiBlack).SprintFunc(),
	zerolog.LevelDebugValue: color.New(color.FgHiCyan).SprintFunc(),
	zerolog.LevelInfoValue:  color.New(color.FgHiBlue).SprintFunc(),
	zerolog.LevelWarnValue:  color.New(color.FgHiYellow).SprintFunc(),
	zerolog.LevelErrorValue: color.New(color.FgHiRed).SprintFunc(),
	zerolog.LevelFatalValue: color.New(color.BgRed).SprintFunc(),
}

var paintSuccess = color.New(color.FgHiGreen).SprintFunc()

var (
	outputMu  sync.Mutex
	output    io.Writer = os.Stderr
	noColor             = color.NoColor
	timestamp           = false
	// generation changes whenever the output settings do; loggers rebuild on their next write.
	generation int
)

// Logger is a package-scoped console logger.
type Logger struct {
	mu          sync.Mutex
	zl          zerolog.Logger
	out         io.Writer
	gen         int
	pkg         string
	display     string
	indentLevel int
}

// SetOutput redirects every logger, including package loggers created at init.
// Tests use it to capture output.
func SetOutput(w io.Writer, colored bool) {
	outputMu.Lock()
	defer outputMu.Unlock()
	output = w
	noColor = !colored
	generation++
}

// SetLevel sets the global minimum level.
func SetLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerologLevels[level])
	outputMu.Lock()
	generation++
	outputMu.Unlock()
}

// ParseLevel maps a level name ("debug", "warn", ...) to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return LevelInfo, fmt.Errorf("log level %q: %w", name, err)
	}
	for k, v := range zerologLevels {
		if v == lvl && k != LevelSuccess {
			return k, nil
		}
	}
	return LevelInfo, nil
}

// EnableTimestamp toggles timestamps on every logger.
func EnableTimestamp(enable bool) {
	outputMu.Lock()
	defer outputMu.Unlock()
	timestamp = enable
	generation++
}

func consoleWriter(w io.Writer, disableColor, withTime bool) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    disableColor,
		TimeFormat: "15:04:05.000",
	}
	if !withTime {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	cw.FormatLevel = func(i interface{}) string {
		name, ok := i.(string)
		if !ok || name == "" {
			if disableColor {
				return "GOOD "
			}
			return paintSuccess("GOOD ")
		}
		label, known := levelLabels[name]
		if !known {
			label = strings.ToUpper(name)
		}
		if disableColor {
			return label
		}
		if paint, ok := levelPainters[name]; ok {
			return paint(label)
		}
		return label
	}
	return cw
}

// refresh rebuilds the zerolog backend when the output settings changed. Callers hold l.mu.
func (l *Logger) refresh() {
	outputMu.Lock()
	w, disableColor, withTime, gen := output, noColor, timestamp, generation
	outputMu.Unlock()
	if l.out != nil && l.gen == gen {
		return
	}

	ctx := zerolog.New(consoleWriter(w, disableColor, withTime)).With().Timestamp()
	if l.pkg != "" && zerolog.GlobalLevel() <= zerolog.DebugLevel {
		ctx = ctx.Str("pkg", l.pkg)
	}
	l.zl = ctx.Logger()
	l.out = w
	l.gen = gen
}

// DefaultLogger creates a logger writing to the configured output.
func DefaultLogger() *Logger {
	return &Logger{}
}

// PackageLogger creates a logger that prefixes every line with displayName.
// The package name is only attached at debug level and below.
func PackageLogger(pkgName string, displayName string) *Logger {
	return &Logger{pkg: pkgName, display: displayName}
}

// Indent returns a copy of the logger that nests its messages one level deeper.
func (l *Logger) Indent() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		pkg:         l.pkg,
		display:     l.display,
		indentLevel: l.indentLevel + 1,
	}
}

func (l *Logger) format(msg string, args []interface{}) string {
	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}
	indent := strings.Repeat("  ", l.indentLevel)
	formatted = indent + strings.ReplaceAll(formatted, "\n", "\n"+indent)
	if l.display != "" {
		formatted = l.display + " " + formatted
	}
	return formatted
}

// Log logs a message at a specific level.
func (l *Logger) Log(level LogLevel, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refresh()

	var ev *zerolog.Event
	switch level {
	case LevelTrace:
		ev = l.zl.Trace()
	case LevelDebug:
		ev = l.zl.Debug()
	case LevelInfo:
		ev = l.zl.Info()
	case LevelWarn:
		ev = l.zl.Warn()
	case LevelSuccess:
		// level-less events are rendered as GOOD by the console writer
		if zerolog.GlobalLevel() > zerolog.InfoLevel {
			return
		}
		ev = l.zl.Log()
	case LevelError:
		ev = l.zl.Error()
	case LevelFatal:
		ev = l.zl.WithLevel(zerolog.FatalLevel)
	}
	if ev == nil {
		return
	}
	ev.Msg(l.format(msg, args))
}

func (l *Logger) Trace(msg string, args ...interface{}) { l.Log(LevelTrace, msg, args...) }

func (l *Logger) Debug(msg string, args ...interface{}) { l.Log(LevelDebug, msg, args...) }

func (l *Logger) Info(msg string, args ...interface{}) { l.Log(LevelInfo, msg, args...) }

func (l *Logger) Warn(msg string, args ...interface{}) { l.Log(LevelWarn, msg, args...) }

func (l *Logger) Error(msg string, args ...interface{}) { l.Log(LevelError, msg, args...) }

func (l *Logger) Success(msg string, args ...interface{}) { l.Log(LevelSuccess, msg, args...) }

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.Log(LevelFatal, msg, args...)
	os.Exit(1)
}

// Table logs tabular data at info level.
func (l *Logger) Table(headers []string, rows [][]string) {
	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	var table strings.Builder
	table.WriteString("\n")
	for i, h := range headers {
		table.WriteString(fmt.Sprintf(" %-*s ", colWidths[i], h))
		if i < len(headers)-1 {
			table.WriteString("│")
		}
	}
	table.WriteString("\n")
	for i, w := range colWidths {
		table.WriteString(strings.Repeat("─", w+2))
		if i < len(colWidths)-1 {
			table.WriteString("┼")
		}
	}
	table.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			table.WriteString(fmt.Sprintf(" %-*s ", colWidths[i], cell))
			if i < len(row)-1 {
				table.WriteString("│")
			}
		}
		table.WriteString("\n")
	}

	l.Info("%s", table.String())
}

// Progress renders a single-line progress bar, finishing the line once current reaches total.
func (l *Logger) Progress(current, total int, label string) {
	if zerolog.GlobalLevel() > zerolog.InfoLevel || total <= 0 {
		return
	}

	const barWidth = 30
	ratio := float64(current) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(barWidth * ratio)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.refresh()
	fmt.Fprintf(l.out, "\r%s [%s] %3.0f%%", label, bar, ratio*100)
	if current >= total {
		fmt.Fprintln(l.out)
	}
}
