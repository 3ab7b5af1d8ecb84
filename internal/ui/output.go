package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/skiyl9x/ghsecret/internal/remote"
	"github.com/skiyl9x/ghsecret/internal/secret"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatPlain prints the bare one-line messages scripts grep for
	FormatPlain OutputFormat = "plain"
	FormatHuman OutputFormat = "human"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Output handles formatted output to the user
type Output struct {
	writer       io.Writer
	errWriter    io.Writer
	format       OutputFormat
	colorEnabled bool
}

// NewOutput creates an Output writing results to writer and diagnostics
// and progress to errWriter. Colors are only used for the human format on
// a terminal.
func NewOutput(writer, errWriter io.Writer, format OutputFormat, noColor bool) *Output {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML:
	default:
		format = FormatPlain
	}
	return &Output{
		writer:       writer,
		errWriter:    errWriter,
		format:       format,
		colorEnabled: format == FormatHuman && !noColor && IsTerminal(writer),
	}
}

// IsTerminal reports whether w is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsStructured returns true for JSON and YAML output
func (o *Output) IsStructured() bool {
	return o.format == FormatJSON || o.format == FormatYAML
}

// Progress shows a spinner on a terminal in human format and returns the
// function that stops it. In any other case it does nothing.
func (o *Output) Progress(message string) func() {
	if o.format != FormatHuman || !IsTerminal(o.errWriter) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(o.errWriter))
	s.Suffix = " " + message
	if o.colorEnabled {
		_ = s.Color("cyan")
	}
	s.Start()
	return s.Stop
}

// resultDocument is the structured form of a submission result
type resultDocument struct {
	Status     string `json:"status" yaml:"status"`
	Message    string `json:"message" yaml:"message"`
	SecretName string `json:"secret_name" yaml:"secret_name"`
	Repository string `json:"repository" yaml:"repository"`
	KeyID      string `json:"key_id" yaml:"key_id"`
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Outcome    string `json:"outcome" yaml:"outcome"`
}

// Result prints the outcome of a secret submission
func (o *Output) Result(res *secret.Result) error {
	switch o.format {
	case FormatJSON, FormatYAML:
		status := "success"
		if !res.Succeeded() {
			status = "error"
		}
		return o.encode(resultDocument{
			Status:     status,
			Message:    res.Message(),
			SecretName: res.SecretName,
			Repository: res.Repository,
			KeyID:      res.KeyID,
			StatusCode: res.StatusCode,
			Outcome:    string(res.Outcome),
		})
	case FormatHuman:
		detail := fmt.Sprintf("%s (%s in %s)", res.Message(), res.SecretName, res.Repository)
		if res.Succeeded() {
			o.Success(detail)
		} else {
			o.Error(detail)
		}
		return nil
	default:
		_, err := fmt.Fprintln(o.writer, res.Message())
		return err
	}
}

// KeyFetchError reports a failed public key request
func (o *Output) KeyFetchError(statusCode int) error {
	message := fmt.Sprintf("Error with API request for get public key. Status code: %d", statusCode)
	switch o.format {
	case FormatJSON, FormatYAML:
		return o.encode(map[string]interface{}{
			"status":      "error",
			"message":     message,
			"status_code": statusCode,
		})
	case FormatHuman:
		o.Error(message)
		return nil
	default:
		_, err := fmt.Fprintln(o.writer, message)
		return err
	}
}

// PublicKey prints a repository public key
func (o *Output) PublicKey(repository string, key *remote.PublicKey) error {
	switch o.format {
	case FormatJSON, FormatYAML:
		return o.encode(map[string]string{
			"repository": repository,
			"key_id":     key.KeyID,
			"key":        key.Key,
		})
	case FormatHuman:
		o.Header("Public key for " + repository)
		o.Field("Key ID", key.KeyID)
		o.Field("Key", key.Key)
		return nil
	default:
		_, err := fmt.Fprintf(o.writer, "key_id: %s\nkey: %s\n", key.KeyID, key.Key)
		return err
	}
}

// Success prints a success message
func (o *Output) Success(message string) {
	if o.colorEnabled {
		fmt.Fprintf(o.writer, "%s %s\n", color.GreenString("✓"), message)
	} else {
		fmt.Fprintf(o.writer, "✓ %s\n", message)
	}
}

// Error prints an error message. Structured formats get a document on the
// result writer; the others print to the diagnostic writer.
func (o *Output) Error(message string) {
	switch o.format {
	case FormatJSON, FormatYAML:
		_ = o.encode(map[string]interface{}{
			"status":  "error",
			"message": message,
		})
	case FormatHuman:
		if o.colorEnabled {
			fmt.Fprintf(o.writer, "%s %s\n", color.RedString("✗"), message)
		} else {
			fmt.Fprintf(o.writer, "✗ %s\n", message)
		}
	default:
		fmt.Fprintf(o.errWriter, "Error: %s\n", message)
	}
}

// Hint prints a suggestion (diagnostic writer, human-readable formats only)
func (o *Output) Hint(message string) {
	if o.IsStructured() || message == "" {
		return
	}
	if o.colorEnabled {
		fmt.Fprintf(o.errWriter, "%s %s\n", color.YellowString("hint:"), message)
	} else {
		fmt.Fprintf(o.errWriter, "hint: %s\n", message)
	}
}

// Header prints a header (only in human format)
func (o *Output) Header(title string) {
	if o.colorEnabled {
		fmt.Fprintf(o.writer, "\n%s\n", color.New(color.Bold).Sprint(title))
	} else {
		fmt.Fprintf(o.writer, "\n%s\n", title)
	}
}

// Field prints an aligned "label: value" line
func (o *Output) Field(label, value string) {
	label = fmt.Sprintf("%-8s", label+":")
	if o.colorEnabled {
		label = color.CyanString(label)
	}
	fmt.Fprintf(o.writer, "  %s %s\n", label, value)
}

// encode writes data as JSON or YAML
func (o *Output) encode(data interface{}) error {
	if o.format == FormatYAML {
		encoder := yaml.NewEncoder(o.writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return err
		}
		return encoder.Close()
	}

	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
