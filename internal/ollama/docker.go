// Package ollama manages a local Ollama model server running in Docker.
package ollama

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	DefaultImage         = "ollama/ollama:latest"
	DefaultContainerName = "docqa-ollama"
	ContainerNamePrefix  = "docqa-ollama-"
	DefaultPort          = "11434"
	ContainerPort        = "11434/tcp"
	ModelDir             = "/root/.ollama"
	Label                = "docqa-ollama"
)

// ContainerStatus represents the state of the Ollama container.
type ContainerStatus string

const (
	StatusRunning   ContainerStatus = "running"
	StatusStopped   ContainerStatus = "stopped"
	StatusNotFound  ContainerStatus = "not_found"
	StatusUnhealthy ContainerStatus = "unhealthy"
	StatusStarting  ContainerStatus = "starting"
)

// DockerManager manages the Ollama Docker container lifecycle.
type DockerManager struct {
	cli           *client.Client
	containerName string
	imageName     string
	dataPath      string // Host path for pulled models (~/.docqa/ollama)
	hostPort      string
	labels        map[string]string
	httpClient    *http.Client
}

// DockerConfig holds configuration for the Docker manager.
type DockerConfig struct {
	ContainerName string
	HomePath      string // Used to derive a container name when none is set
	Image         string
	DataPath      string
	HostPort      string
	Labels        map[string]string // Optional labels for container (used for test cleanup)
}

// GenerateContainerName derives a stable per-home container name so two
// homes on one machine do not share a model server.
func GenerateContainerName(homePath string) string {
	sum := sha256.Sum256([]byte(homePath))
	return ContainerNamePrefix + hex.EncodeToString(sum[:])[:8]
}

// NewDockerManager creates a new Docker manager for Ollama.
func NewDockerManager(cfg DockerConfig) (*DockerManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	switch {
	case cfg.ContainerName != "":
	case cfg.HomePath != "":
		cfg.ContainerName = GenerateContainerName(cfg.HomePath)
	default:
		cfg.ContainerName = DefaultContainerName
	}
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.HostPort == "" {
		cfg.HostPort = DefaultPort
	}

	labels := map[string]string{Label: "true"}
	for k, v := range cfg.Labels {
		labels[k] = v
	}

	return &DockerManager{
		cli:           cli,
		containerName: cfg.ContainerName,
		imageName:     cfg.Image,
		dataPath:      cfg.DataPath,
		hostPort:      cfg.HostPort,
		labels:        labels,
		httpClient:    &http.Client{Timeout: 2 * time.Second},
	}, nil
}

// Close closes the Docker client.
func (m *DockerManager) Close() error {
	return m.cli.Close()
}

// ContainerName returns the managed container's name.
func (m *DockerManager) ContainerName() string {
	return m.containerName
}

// URL returns the Ollama API URL.
func (m *DockerManager) URL() string {
	return fmt.Sprintf("http://localhost:%s", m.hostPort)
}

// Start starts the Ollama container. Starting a running container is a no-op.
func (m *DockerManager) Start(ctx context.Context) error {
	if _, err := m.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker is not running: %w", err)
	}

	status, containerID, err := m.getContainerStatus(ctx)
	if err != nil {
		return err
	}

	switch status {
	case StatusRunning:
		return nil
	case StatusStopped:
		if err := m.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
			return fmt.Errorf("failed to start existing container: %w", err)
		}
		return m.waitForReady(ctx, 30*time.Second)
	case StatusNotFound:
		return m.createAndStart(ctx)
	default:
		return fmt.Errorf("container in unexpected state: %s", status)
	}
}

// Stop stops the Ollama container.
func (m *DockerManager) Stop(ctx context.Context) error {
	status, containerID, err := m.getContainerStatus(ctx)
	if err != nil {
		return err
	}
	if status == StatusNotFound {
		return nil
	}

	timeout := 10
	if err := m.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// Remove stops and removes the Ollama container. Pulled models survive in
// the data path.
func (m *DockerManager) Remove(ctx context.Context) error {
	status, containerID, err := m.getContainerStatus(ctx)
	if err != nil {
		return err
	}
	if status == StatusNotFound {
		return nil
	}

	if status == StatusRunning {
		if err := m.Stop(ctx); err != nil {
			return err
		}
	}

	if err := m.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// Status returns the current status of the Ollama container.
func (m *DockerManager) Status(ctx context.Context) (ContainerStatus, error) {
	status, _, err := m.getContainerStatus(ctx)
	return status, err
}

// Logs returns the container logs.
func (m *DockerManager) Logs(ctx context.Context, tail string) (string, error) {
	status, containerID, err := m.getContainerStatus(ctx)
	if err != nil {
		return "", err
	}
	if status == StatusNotFound {
		return "", fmt.Errorf("container not found")
	}

	logs, err := m.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tail,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get logs: %w", err)
	}
	defer logs.Close()

	logBytes, err := io.ReadAll(logs)
	if err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	return string(logBytes), nil
}

// WaitReady waits for Ollama to answer on its version endpoint.
func (m *DockerManager) WaitReady(ctx context.Context, timeout time.Duration) error {
	return m.waitForReady(ctx, timeout)
}

// Ping checks the Ollama API once.
func (m *DockerManager) Ping(ctx context.Context) error {
	return ping(ctx, m.httpClient, m.URL())
}

// PullModel asks the running server to download model. It blocks until the
// pull finishes.
func (m *DockerManager) PullModel(ctx context.Context, model string) error {
	return pullModel(ctx, m.URL(), model)
}

func (m *DockerManager) createAndStart(ctx context.Context) error {
	if err := m.ensureImage(ctx); err != nil {
		return err
	}

	containerConfig := &container.Config{
		Image:  m.imageName,
		Labels: m.labels,
		ExposedPorts: nat.PortSet{
			ContainerPort: struct{}{},
		},
		Env: []string{"OLLAMA_HOST=0.0.0.0:11434"},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			ContainerPort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: m.hostPort},
			},
		},
	}

	if m.dataPath != "" {
		hostConfig.Mounts = []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: m.dataPath,
				Target: ModelDir,
			},
		}
	}

	resp, err := m.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, m.containerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = m.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("failed to start container: %w", err)
	}

	return m.waitForReady(ctx, 30*time.Second)
}

func (m *DockerManager) getContainerStatus(ctx context.Context) (ContainerStatus, string, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("name", m.containerName)

	containers, err := m.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to list containers: %w", err)
	}

	// The name filter is a substring match.
	for _, c := range containers {
		for _, name := range c.Names {
			if name == "/"+m.containerName {
				return stateToStatus(c.State), c.ID, nil
			}
		}
	}
	return StatusNotFound, "", nil
}

func stateToStatus(state string) ContainerStatus {
	switch state {
	case "running":
		return StatusRunning
	case "exited", "dead":
		return StatusStopped
	case "created", "restarting":
		return StatusStarting
	default:
		return ContainerStatus(state)
	}
}

func (m *DockerManager) waitForReady(ctx context.Context, timeout time.Duration) error {
	attempts := uint(timeout.Seconds())
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			return ping(ctx, m.httpClient, m.URL())
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func (m *DockerManager) ensureImage(ctx context.Context) error {
	if _, err := m.cli.ImageInspect(ctx, m.imageName); err == nil {
		return nil
	}

	reader, err := m.cli.ImagePull(ctx, m.imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func ping(ctx context.Context, httpClient *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/version", nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

func pullModel(ctx context.Context, baseURL, model string) error {
	body, err := json.Marshal(map[string]any{"model": model, "stream": false})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls take minutes; the caller's context bounds them.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", model, err)
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode pull response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		return fmt.Errorf("failed to pull %s (status %d): %s", model, resp.StatusCode, result.Error)
	}
	return nil
}
