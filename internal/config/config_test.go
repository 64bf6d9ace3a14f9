package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidationAndDefaults(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		want    Config
	}{
		{
			name:    "missing service",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "defaults applied",
			env: map[string]string{
				envService: "nginx",
			},
			want: Config{
				Service:        "nginx",
				Manager:        ManagerSystemd,
				DockerHost:     defaultDockerHost,
				ManagerTimeout: defaultManagerTimeout,
				RestartRate:    defaultRestartRate,
				RestartBurst:   defaultRestartBurst,
			},
		},
		{
			name: "invalid manager",
			env: map[string]string{
				envService: "nginx",
				envManager: "launchd",
			},
			wantErr: true,
		},
		{
			name: "manager is case insensitive",
			env: map[string]string{
				envService: "web",
				envManager: "Docker",
			},
			want: Config{
				Service:        "web",
				Manager:        ManagerDocker,
				DockerHost:     defaultDockerHost,
				ManagerTimeout: defaultManagerTimeout,
				RestartRate:    defaultRestartRate,
				RestartBurst:   defaultRestartBurst,
			},
		},
		{
			name: "invalid poll interval",
			env: map[string]string{
				envService:      "nginx",
				envPollInterval: "nope",
			},
			wantErr: true,
		},
		{
			name: "negative poll interval",
			env: map[string]string{
				envService:      "nginx",
				envPollInterval: "-5s",
			},
			wantErr: true,
		},
		{
			name: "zero poll interval means one-shot",
			env: map[string]string{
				envService:      "nginx",
				envPollInterval: "0s",
			},
			want: Config{
				Service:        "nginx",
				Manager:        ManagerSystemd,
				DockerHost:     defaultDockerHost,
				ManagerTimeout: defaultManagerTimeout,
				RestartRate:    defaultRestartRate,
				RestartBurst:   defaultRestartBurst,
			},
		},
		{
			name: "invalid manager timeout",
			env: map[string]string{
				envService:        "nginx",
				envManagerTimeout: "fast",
			},
			wantErr: true,
		},
		{
			name: "zero manager timeout",
			env: map[string]string{
				envService:        "nginx",
				envManagerTimeout: "0s",
			},
			wantErr: true,
		},
		{
			name: "invalid restart burst",
			env: map[string]string{
				envService:      "nginx",
				envRestartBurst: "0",
			},
			wantErr: true,
		},
		{
			name: "invalid health port",
			env: map[string]string{
				envService:    "nginx",
				envHealthPort: "99999",
			},
			wantErr: true,
		},
		{
			name: "docker host without host part",
			env: map[string]string{
				envService:    "web",
				envManager:    "docker",
				envDockerHost: "tcp://",
			},
			wantErr: true,
		},
		{
			name: "docker host with unsupported scheme",
			env: map[string]string{
				envService:    "web",
				envManager:    "docker",
				envDockerHost: "ftp://docker:2375",
			},
			wantErr: true,
		},
		{
			name: "custom daemon settings",
			env: map[string]string{
				envService:      "web",
				envManager:      "docker",
				envDockerHost:   "tcp://proxy:2375",
				envPollInterval: "45s",
				envRestartRate:  "2m",
				envRestartBurst: "5",
				envHealthPort:   "8080",
				envMetricsPort:  "9090",
			},
			want: Config{
				Service:        "web",
				Manager:        ManagerDocker,
				DockerHost:     "tcp://proxy:2375",
				PollInterval:   45 * time.Second,
				ManagerTimeout: defaultManagerTimeout,
				RestartRate:    2 * time.Minute,
				RestartBurst:   5,
				HealthPort:     8080,
				MetricsPort:    9090,
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			restoreDir := mustChdir(t, tmpDir)
			defer restoreDir()

			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			got, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Fatalf("unexpected config: %+v", got)
			}
		})
	}
}

func TestLoad_DotEnvWithEnvPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	restoreDir := mustChdir(t, tmpDir)
	defer restoreDir()

	dotenv := "SW_SERVICE=from-dotenv\nSW_POLL_INTERVAL=30s\nSW_LOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv(envService, "from-env")

	got, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Service != "from-env" {
		t.Fatalf("service did not prefer env: %s", got.Service)
	}
	if got.PollInterval != 30*time.Second {
		t.Fatalf("poll interval not loaded from .env: %s", got.PollInterval)
	}
	if got.LogLevel != "debug" {
		t.Fatalf("log level not loaded from .env: %s", got.LogLevel)
	}
}

func TestConfig_OneShot(t *testing.T) {
	if !(Config{}).OneShot() {
		t.Fatalf("expected zero poll interval to mean one-shot")
	}
	if (Config{PollInterval: time.Second}).OneShot() {
		t.Fatalf("expected positive poll interval to mean daemon mode")
	}
}

func mustChdir(t *testing.T, dir string) func() {
	t.Helper()
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	return func() {
		if err := os.Chdir(original); err != nil {
			t.Fatalf("restore dir: %v", err)
		}
	}
}
