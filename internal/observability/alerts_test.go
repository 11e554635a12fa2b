package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

var metricName = regexp.MustCompile(`ledgerdesk_[a-z_]+`)

// exportedMetrics lists the metric families a fresh registry exposes.
func exportedMetrics(t *testing.T) map[string]bool {
	t.Helper()
	m := NewMetrics()
	m.ObserveDecision(authz.ResourceInvoices, authz.ActionView, authz.Decision{})
	m.ObserveJob("probe", nil)
	m.requestsTotal.WithLabelValues("/", "200").Inc()
	m.requestDuration.WithLabelValues("/").Observe(0)

	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestAuthzAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "authz.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	var group *alertGroup
	for i := range spec.Groups {
		if spec.Groups[i].Name == "authz" {
			group = &spec.Groups[i]
			break
		}
	}
	if group == nil {
		t.Fatal("authz alert group missing")
	}

	expected := map[string]struct {
		severity string
		runbook  string
	}{
		"AuthzCheckFailures":  {severity: "critical", runbook: "docs/runbook-authz.md#check-failures"},
		"AuthzForbiddenSpike": {severity: "warning", runbook: "docs/runbook-authz.md#forbidden-spike"},
		"HighErrorRate":       {severity: "critical", runbook: "docs/runbook-authz.md#high-error-rate"},
	}

	exported := exportedMetrics(t)

	if len(group.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(group.Rules))
	}

	for _, rule := range group.Rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want.severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["runbook"] != want.runbook {
			t.Fatalf("rule %s runbook mismatch: %s", rule.Alert, rule.Annotations["runbook"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if rule.Expr == "" || rule.For == "" {
			t.Fatalf("rule %s must define an expression and hold duration", rule.Alert)
		}
		for _, name := range metricName.FindAllString(rule.Expr, -1) {
			if !exported[name] {
				t.Fatalf("rule %s references unknown metric %s", rule.Alert, name)
			}
		}
	}
}
