package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

const maxOutputLine = 1024 * 1024

func (e *dockerEngine) Exec(ctx context.Context, h *Handle, command string, output bool) (*ExecResult, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("exec: %w", ErrNotFound)
	}

	execCfg := container.ExecOptions{
		Cmd:          []string{"sh", "-c", command},
		AttachStdout: output,
		AttachStderr: output,
		Detach:       !output,
	}

	created, err := e.api.ContainerExecCreate(ctx, h.ID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec in container %s: %w", h.Name, err)
	}

	if !output {
		if err := e.api.ContainerExecStart(ctx, created.ID, container.ExecStartOptions{Detach: true}); err != nil {
			return nil, fmt.Errorf("failed to start exec in container %s: %w", h.Name, err)
		}
		e.logger.Debug("exec detached", "container", h.Name, "command", command)
		return nil, nil
	}

	attach, err := e.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach exec in container %s: %w", h.Name, err)
	}
	defer attach.Close()

	var combined bytes.Buffer
	if _, err := stdcopy.StdCopy(&combined, &combined, attach.Reader); err != nil {
		return nil, fmt.Errorf("failed to read exec output from container %s: %w", h.Name, err)
	}

	inspect, err := e.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec in container %s: %w", h.Name, err)
	}

	lines, err := splitOutputLines(&combined)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exec output from container %s: %w", h.Name, err)
	}

	return &ExecResult{ExitCode: inspect.ExitCode, Output: lines}, nil
}

// splitOutputLines splits demultiplexed output into lines without their
// terminators. A trailing newline does not produce an empty final line.
func splitOutputLines(reader io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading output at line %d: %w", len(lines), err)
	}

	return lines, nil
}
