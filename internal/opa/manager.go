package opa

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Manager runs the embedded OPA runtime used in dev and test deployments
// where no external OPA exists. Production points the policy evaluator at a
// separately operated OPA and never touches this.
type Manager struct {
	server  *Server
	config  *Config
	running bool
}

type Config struct {
	Host           string
	Port           string
	PoliciesDir    string
	StartupTimeout time.Duration
}

func NewManager(policiesDir string) *Manager {
	return &Manager{
		config: &Config{
			Host:           "127.0.0.1",
			Port:           "8181",
			PoliciesDir:    policiesDir,
			StartupTimeout: 60 * time.Second,
		},
	}
}

func (m *Manager) Initialize() error {
	if !isPoliciesDirectory(m.config.PoliciesDir) {
		return fmt.Errorf("policies directory does not exist or contains no .rego files: %s", m.config.PoliciesDir)
	}

	policies, err := NewPolicyReader().ReadPolicies(m.config.PoliciesDir)
	if err != nil {
		return fmt.Errorf("failed to read policies: %w", err)
	}
	for name := range policies {
		zap.S().Named("opa").Infof("Loading policy: %s", name)
	}

	m.server = NewServer(m.config)
	if err := m.server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize OPA server: %w", err)
	}

	m.running = true
	zap.S().Named("opa").Infof("OPA manager initialized successfully")
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.running
}

// Address is the base URL the policy evaluator should query.
func (m *Manager) Address() string {
	return fmt.Sprintf("http://%s:%s", m.config.Host, m.config.Port)
}

func (m *Manager) Shutdown() {
	if m.server != nil {
		m.server.Shutdown()
	}
	m.running = false
	zap.S().Named("opa").Info("OPA manager shut down")
}

func isPoliciesDirectory(dir string) bool {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return false
	}

	return len(files) > 0
}
