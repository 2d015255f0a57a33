// Package docker wraps the Docker SDK for the optional container-isolated
// validation mode. The sandbox directory is bind-mounted at /workspace and
// the validation command runs inside a throwaway container.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// ExecResult holds the result of executing a command in a container.
type ExecResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
	TimedOut bool
}

// Client wraps the Docker SDK client with arena-specific operations.
type Client struct {
	client *client.Client
}

// NewClient creates a Docker client and verifies the daemon is reachable.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	// Fail fast when the daemon is down rather than at the first pair.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("docker daemon not accessible (is Docker running?): %w", err)
	}

	return &Client{client: cli}, nil
}

// Close closes the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnsureImage makes sure imageName is available locally, pulling when
// autoPull allows it.
func (c *Client) EnsureImage(ctx context.Context, imageName string, autoPull bool) error {
	images, err := c.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return nil
			}
		}
	}

	if !autoPull {
		return fmt.Errorf("image %s not found locally and auto-pull is disabled", imageName)
	}

	reader, err := c.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling image %s: %w", imageName, err)
	}
	defer func() { _ = reader.Close() }()

	// Consume the stream to wait for completion.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("reading pull response: %w", err)
	}
	return nil
}

// StartWorkspace creates and starts an idle container with workspaceDir
// mounted at /workspace, returning the container id.
func (c *Client) StartWorkspace(ctx context.Context, imageName, workspaceDir, name string) (string, error) {
	containerCfg := &container.Config{
		Image: imageName,
		Cmd:   []string{"sleep", "infinity"},
		Tty:   false,
		User:  fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		Env:   []string{"HOME=/tmp"},
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: workspaceDir,
			Target: "/workspace",
		}},
	}

	resp, err := c.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("creating container: %w", err)
	}
	if err := c.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = c.RemoveContainer(context.Background(), resp.ID)
		return "", fmt.Errorf("starting container: %w", err)
	}
	return resp.ID, nil
}

// RemoveContainer force-removes a container.
func (c *Client) RemoveContainer(ctx context.Context, containerID string) error {
	if err := c.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("removing container: %w", err)
	}
	return nil
}

// Exec runs cmd in /workspace of a running container with a hard timeout.
// On timeout the attach connection is severed and whatever output arrived is
// returned with TimedOut set.
func (c *Client) Exec(ctx context.Context, containerID string, cmd []string, timeout time.Duration) (*ExecResult, error) {
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execResp, err := c.client.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   "/workspace",
	})
	if err != nil {
		return nil, fmt.Errorf("creating exec: %w", err)
	}

	attachResp, err := c.client.ContainerExecAttach(execCtx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attaching to exec: %w", err)
	}

	// stdcopy.StdCopy blocks until the process exits and ignores context
	// cancellation, so it runs in a goroutine and the connection is closed
	// when the timeout fires. The mutex guards the buffer against the
	// timed-out read below.
	var output bytes.Buffer
	var bufMu sync.Mutex
	copyDone := make(chan error, 1)

	go func() {
		bufMu.Lock()
		_, copyErr := stdcopy.StdCopy(&output, &output, attachResp.Reader)
		bufMu.Unlock()
		copyDone <- copyErr
	}()

	select {
	case copyErr := <-copyDone:
		attachResp.Close()
		if copyErr != nil {
			return nil, fmt.Errorf("reading exec output: %w", copyErr)
		}
	case <-execCtx.Done():
		attachResp.Close()
		<-copyDone
		bufMu.Lock()
		captured := output.String()
		bufMu.Unlock()
		return &ExecResult{
			ExitCode: -1,
			Output:   captured,
			Duration: time.Since(start),
			TimedOut: true,
		}, nil
	}

	// The exec context may be close to its deadline; inspect on a fresh one.
	inspectCtx, inspectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer inspectCancel()

	var exitCode int
	for {
		inspectResp, err := c.client.ContainerExecInspect(inspectCtx, execResp.ID)
		if err != nil {
			return nil, fmt.Errorf("inspecting exec: %w", err)
		}
		if !inspectResp.Running {
			exitCode = inspectResp.ExitCode
			break
		}
		select {
		case <-inspectCtx.Done():
			return nil, fmt.Errorf("timeout waiting for exec exit code")
		case <-time.After(50 * time.Millisecond):
		}
	}

	return &ExecResult{
		ExitCode: exitCode,
		Output:   output.String(),
		Duration: time.Since(start),
	}, nil
}
