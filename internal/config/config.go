// Package config defines the dashboard configuration file format and its
// validation. Configs are JSON documents decoded into Dashboard; Validate
// reports problems as a flat list of issues so the CLI can print all of
// them at once instead of failing on the first.
package config

import (
	"fmt"
	"strings"

	"github.com/Sagar-cesta/heatmap2/internal/warehouse"
)

// Severity classifies a validation issue. Errors block startup; warnings
// are printed and ignored.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Issue is a single validation finding. Path is a dotted locator into the
// config document (e.g. "warehouse.kind").
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func errorf(path, format string, a ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)}
}

func warnf(path, format string, a ...any) Issue {
	return Issue{Severity: SeverityWarn, Path: path, Message: fmt.Sprintf(format, a...)}
}

// Server configures the HTTP listener.
type Server struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr"`
}

// Metrics configures the metrics backend.
type Metrics struct {
	// Backend selects the implementation: "datadog" or "none"/"".
	Backend string `json:"backend"`
	// Tags are extra backend tags as "key:value" strings.
	Tags []string `json:"tags,omitempty"`
}

// Dashboard is the top-level config document.
type Dashboard struct {
	// Job names this deployment; it tags metrics and log lines.
	Job       string           `json:"job"`
	Warehouse warehouse.Config `json:"warehouse"`
	Server    Server           `json:"server"`
	Metrics   Metrics          `json:"metrics"`
}

// warehouseKinds lists the backends compiled into the binary via the
// warehouse/all bundle.
var warehouseKinds = map[string]bool{
	"postgres": true,
	"sqlite":   true,
	"mssql":    true,
}

// Validate checks a Dashboard config and returns every issue found. An
// empty result means the config is usable.
func Validate(d Dashboard) []Issue {
	var issues []Issue

	if strings.TrimSpace(d.Job) == "" {
		issues = append(issues, warnf("job", "job name is empty; metrics will use the default"))
	}

	issues = append(issues, validateWarehouse(d.Warehouse)...)

	if d.Server.Addr == "" {
		issues = append(issues, warnf("server.addr", "listen address is empty; defaulting to :8080"))
	}

	switch d.Metrics.Backend {
	case "", "none", "datadog":
	default:
		issues = append(issues, warnf("metrics.backend", "unknown backend %q; metrics will be disabled", d.Metrics.Backend))
	}
	for i, tag := range d.Metrics.Tags {
		if !strings.Contains(tag, ":") {
			issues = append(issues, warnf(fmt.Sprintf("metrics.tags[%d]", i), "tag %q is not key:value", tag))
		}
	}

	return issues
}

func validateWarehouse(c warehouse.Config) []Issue {
	var issues []Issue

	if c.Kind == "" {
		issues = append(issues, errorf("warehouse.kind", "warehouse kind is required"))
	} else if !warehouseKinds[c.Kind] {
		issues = append(issues, errorf("warehouse.kind", "unknown warehouse kind %q", c.Kind))
	}

	if c.DSN == "" {
		issues = append(issues, errorf("warehouse.dsn", "warehouse DSN is required"))
	}

	if c.Table != "" && strings.ContainsAny(c.Table, " ;'\"") {
		issues = append(issues, errorf("warehouse.table", "table name %q contains invalid characters", c.Table))
	}

	return issues
}

// HasError reports whether any issue is severity error.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
