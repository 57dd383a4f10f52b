package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// CleanupLabel marks containers created by tests.
const CleanupLabel = "docqa-test"

// TestingT is the subset of testing.T the Docker helpers need.
type TestingT interface {
	Name() string
	Cleanup(func())
	Logf(format string, args ...any)
	Skipf(format string, args ...any)
	Helper()
}

// DockerClient returns a Docker client, skipping the test when the daemon
// is unreachable. Containers labeled with the test name are removed when
// the test finishes.
func DockerClient(t TestingT) *client.Client {
	t.Helper()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		t.Skipf("docker is not running: %v", err)
		return nil
	}

	t.Cleanup(func() {
		removeLabeled(t, cli, t.Name())
		cli.Close()
	})
	return cli
}

// UniqueContainerName returns docqa-test-<prefix>-<testname>-<random>.
func UniqueContainerName(t TestingT, prefix string) string {
	t.Helper()
	return fmt.Sprintf("%s-%s-%s-%s", CleanupLabel, prefix, sanitizeName(t.Name()), randString(4))
}

// ContainerLabels returns the labels DockerClient's cleanup looks for.
func ContainerLabels(t TestingT) map[string]string {
	return map[string]string{CleanupLabel: t.Name()}
}

func removeLabeled(t TestingT, cli *client.Client, testName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := filters.NewArgs()
	args.Add("label", fmt.Sprintf("%s=%s", CleanupLabel, testName))

	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		t.Logf("list test containers: %v", err)
		return
	}

	for _, c := range containers {
		// Force removal stops the container too.
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{
			Force:         true,
			RemoveVolumes: true,
		}); err != nil {
			t.Logf("remove container %s: %v", c.ID[:12], err)
			continue
		}
		t.Logf("removed test container %s", strings.Join(c.Names, ","))
	}
}

func randString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// sanitizeName maps a test name onto [a-zA-Z0-9-], max 30 bytes.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '/' || r == '_' || r == '-':
			b.WriteByte('-')
		}
		if b.Len() == 30 {
			break
		}
	}
	return b.String()
}
